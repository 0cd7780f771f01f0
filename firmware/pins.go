//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// Sampling configuration
	LOOP_PERIOD = 10 * time.Second // time between telemetry lines
	SAMPLE_AVG  = 5                // dust pulses averaged per reading

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Sensor pins
	PIN_DUST_LED_CTRL = machine.D7 // GP2Y1010 pin 3, active low
	PIN_DUST_ANALOG   = machine.A1 // GP2Y1010 pin 5 (Vo)
	PIN_RAIN1         = machine.A2 // HW-028 AO
	PIN_RAIN2         = machine.A3 // HW-028 AO

	// Serial configuration
	// Line format: "uptime_ms,ready,raw,voltage_mV,density_cmgm3,rain1,rain2\n"
	// Example: "4294967295,1,4095,3300,99999,100,100\n" = ~40 bytes max per line,
	// one line per LOOP_PERIOD. Any standard rate is enough; 115200 matches the host default.
	UART_BAUD_RATE = 115200
)
