//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/dustnode/pkg/dust"
	"github.com/itohio/dustnode/pkg/rain"
	"github.com/itohio/dustnode/pkg/telemetry"
)

var (
	uart = machine.UART0
	boot time.Time

	driver *dust.Driver
	rains  *rain.Sensors
	log    lineLogger

	// Serial buffer for reading command lines
	serialBuffer   [16]byte
	serialPos      int
	serialOverflow bool

	lineBuffer [64]byte
)

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})
	log = lineLogger{w: uart}
	boot = time.Now()

	machine.InitADC()

	cfg := dust.DefaultConfig()
	cfg.ADCBits = ADC_RESOLUTION
	cfg.VRef = ADC_REFERENCE_MV / 1000.0

	driver = dust.New(cfg, pinLED{pin: PIN_DUST_LED_CTRL}, newADC(PIN_DUST_ANALOG), dust.SystemClock{}, log)
	rains = rain.New(newADC(PIN_RAIN1), newADC(PIN_RAIN2), dust.SystemClock{}, ADC_RESOLUTION, rain.DefaultOversample, rain.DefaultInterval)
	rains.Configure()

	// The baseline is learned over the first seconds after power-up,
	// so the node must start in clean air.
	driver.Initialize()
	report()

	lastReport := time.Now()
	for {
		if processSerial() {
			report()
			lastReport = time.Now()
		}

		if time.Since(lastReport) >= LOOP_PERIOD {
			report()
			lastReport = time.Now()
		}

		time.Sleep(10 * time.Millisecond)
	}
}

// report reads both sensors and writes one telemetry line.
func report() {
	d := driver.Read(SAMPLE_AVG)
	r := rains.Read()
	rec := telemetry.NewRecord(time.Since(boot), driver.Ready(), d, r)
	uart.Write(rec.AppendLine(lineBuffer[:0]))
}

// processSerial consumes buffered command bytes and reports whether a
// recalibration ran.
func processSerial() bool {
	recalibrated := false

	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialOverflow {
				log.Warnf("command too long")
			} else if serialPos > 0 {
				recalibrated = runCommand(string(serialBuffer[:serialPos])) || recalibrated
			}
			serialPos = 0
			serialOverflow = false
			continue
		}

		// Overlong lines are dropped whole
		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		} else {
			serialOverflow = true
		}
	}

	return recalibrated
}

func runCommand(line string) bool {
	cmd, err := telemetry.ParseCommand(line)
	if err != nil {
		log.Warnf("%v", err)
		return false
	}

	driver.RecalibrateBaseline(cmd.Recalibrate)
	return true
}
