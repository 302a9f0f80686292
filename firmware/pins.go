//go:build tinygo

package main

import (
	"machine"
	"time"

	"github.com/itohio/sensord/pkg/store"
)

const (
	// Sensor link configuration
	// The sensor sends one 7 byte frame per measurement. At 1200 baud 8N1 a frame
	// takes ~58ms on the wire, so polling every 100ms never falls behind.
	SENSOR_BAUD_RATE = 1200
	POLL_INTERVAL    = 100 * time.Millisecond

	// History capacities. Fixed at build time, allocated once at start-up.
	READINGS_CAPACITY      = 32
	SENSOR_ERRORS_CAPACITY = 16
	PARSE_ERRORS_CAPACITY  = 16
	FRAMES_CAPACITY        = 32

	// Console command that dumps the history as JSON.
	CMD_DUMP = 'd'
)

var (
	// Sensor UART pins
	PIN_SENSOR_TX = machine.UART_TX_PIN
	PIN_SENSOR_RX = machine.UART_RX_PIN

	sensorUART = machine.UART1
	console    = machine.Serial
)

var capacities = store.Capacities{
	Readings:     READINGS_CAPACITY,
	SensorErrors: SENSOR_ERRORS_CAPACITY,
	ParseErrors:  PARSE_ERRORS_CAPACITY,
	Frames:       FRAMES_CAPACITY,
}
