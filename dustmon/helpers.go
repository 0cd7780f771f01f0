package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/itohio/dustnode/pkg/config"
	"github.com/itohio/dustnode/pkg/node"
	"github.com/itohio/dustnode/pkg/sample"
	"github.com/itohio/dustnode/pkg/store"
	"github.com/itohio/dustnode/pkg/store/memory"
	"github.com/itohio/dustnode/pkg/store/sqlite"
)

// Density bands in mg/m3, upper bounds exclusive.
const (
	bandModerate  = 35
	bandUnhealthy = 75
	bandHazardous = 150
)

var (
	colorGood      = color.New(color.FgGreen)
	colorModerate  = color.New(color.FgYellow)
	colorUnhealthy = color.New(color.FgHiRed)
	colorHazardous = color.New(color.FgMagenta, color.Bold)
	colorMuted     = color.New(color.Faint)
)

func densityBand(density float32) (string, *color.Color) {
	switch {
	case density < bandModerate:
		return "good", colorGood
	case density < bandUnhealthy:
		return "moderate", colorModerate
	case density < bandHazardous:
		return "unhealthy", colorUnhealthy
	default:
		return "hazardous", colorHazardous
	}
}

func formatSample(s sample.Sample) string {
	ts := s.Timestamp.Format("15:04:05")
	if !s.Ready {
		return colorMuted.Sprintf("%s  uptime=%-10v calibrating  raw=%4d  %.3f V", ts, s.Uptime, s.Raw, s.Voltage)
	}

	band, c := densityBand(s.Density)
	return fmt.Sprintf("%s  uptime=%-10v %s  raw=%4d  %.3f V  rain %3.0f%% %3.0f%%",
		ts, s.Uptime, c.Sprintf("%7.2f mg/m3 %-9s", s.Density, band), s.Raw, s.Voltage, s.Rain1, s.Rain2)
}

func openDevice(c *config.Config, mock bool) node.Device {
	if mock {
		return node.NewMock(c)
	}
	return node.NewSerial(c.Serial.Port, c.Serial.BaudRate, node.DefaultBufferSize)
}

func openStore(c config.StoreConfig) (store.Repository, error) {
	switch c.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		repo, err := sqlite.Open(c.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open store %s: %w", c.Path, err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("%w: unknown store.driver %q", config.ErrInvalid, c.Driver)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
