//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"encoding/json"
	"machine"
	"time"

	"github.com/itohio/sensord/pkg/frame"
	"github.com/itohio/sensord/pkg/store"
)

var (
	// Loop counter used as the taint of every recorded frame
	loopCount uint32

	readings = store.New[uint32](capacities)
)

func main() {
	sensorUART.Configure(machine.UARTConfig{
		BaudRate: SENSOR_BAUD_RATE,
		TX:       PIN_SENSOR_TX,
		RX:       PIN_SENSOR_RX,
	})

	// Main loop
	for {
		processConsole()
		pollSensor()

		loopCount++
		time.Sleep(POLL_INTERVAL)
	}
}

// pollSensor records at most one frame per call, and only once a whole
// frame is buffered.
func pollSensor() {
	if sensorUART.Buffered() < frame.Size {
		return
	}

	var f frame.Frame
	for i := range f {
		b, err := sensorUART.ReadByte()
		if err != nil {
			return
		}
		f[i] = b
	}

	res := readings.Record(loopCount, f)
	switch res.Status {
	case store.NewReading:
		print(loopCount)
		print(" reading ")
		println(res.Reading.String())
	case store.ParseError:
		print(loopCount)
		print(" error ")
		println(res.Err.Error())
	}
	// Repeated readings are not printed
}

func processConsole() {
	for console.Buffered() > 0 {
		data, err := console.ReadByte()
		if err != nil {
			return
		}
		if data == CMD_DUMP {
			dumpHistory()
		}
	}
}

func dumpHistory() {
	data, err := json.Marshal(readings.Snapshot())
	if err != nil {
		println("dump failed:", err.Error())
		return
	}
	console.Write(data)
	console.Write([]byte("\r\n"))
}
