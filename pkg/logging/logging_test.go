package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	defer func(l zerolog.Logger) { log.Logger = l }(log.Logger)

	var buf bytes.Buffer
	require.NoError(t, SetupWriter(&buf, "warn", false))

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestSetupWriter_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, SetupWriter(&buf, "loud", false))
}

func TestDust(t *testing.T) {
	var buf bytes.Buffer
	l := Dust(zerolog.New(&buf))

	l.Infof("Dust baseline learned: %.3f V  (gain=%.1f)", 0.612, 1.8)
	l.Warnf("no samples")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "dust", first["component"])
	assert.Equal(t, "Dust baseline learned: 0.612 V  (gain=1.8)", first["message"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "warn", second["level"])
}
