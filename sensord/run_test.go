package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/sensord/pkg/config"
	"github.com/itohio/sensord/pkg/frame"
	"github.com/itohio/sensord/pkg/logging"
	"github.com/itohio/sensord/pkg/sensor"
)

// scriptedDevice delivers a fixed list of frames and then closes its channel.
type scriptedDevice struct {
	frames     chan frame.Frame
	connectErr error
	closed     bool
}

var _ sensor.Device = (*scriptedDevice)(nil)

func newScriptedDevice(frames ...frame.Frame) *scriptedDevice {
	ch := make(chan frame.Frame, len(frames))
	for _, f := range frames {
		ch <- f
	}
	close(ch)
	return &scriptedDevice{frames: ch}
}

func (d *scriptedDevice) Connect() error             { return d.connectErr }
func (d *scriptedDevice) Close() error               { d.closed = true; return nil }
func (d *scriptedDevice) Frames() <-chan frame.Frame { return d.frames }
func (d *scriptedDevice) IsConnected() bool          { return !d.closed }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.HTTP.Listen = ""
	return cfg
}

func TestRunSensor_DeviceEOF(t *testing.T) {
	a := frame.Encode(frame.Reading{Raw: 1})
	b := frame.Encode(frame.Reading{Raw: 2})
	dev := newScriptedDevice(a, a, b, frame.EncodeFault(0x01))
	cfg := testConfig()
	cfg.Capacity.Readings = 7

	var logs bytes.Buffer
	log := logging.New(&logs, "text", slog.LevelInfo)

	err := runSensor(context.Background(), cfg, dev, log)
	require.NoError(t, err)
	assert.True(t, dev.closed)

	out := logs.String()
	assert.Contains(t, out, "new_readings=2")
	assert.Contains(t, out, "repeated=1")
	assert.Contains(t, out, "parse_errors=1")
	assert.Contains(t, out, "latest=2")
	assert.Contains(t, out, `msg="store ready" readings=7 sensor_errors=32`)
}

func TestRunSensor_NoReadingsOmitsLatest(t *testing.T) {
	dev := newScriptedDevice(frame.EncodeFault(0x02))

	var logs bytes.Buffer
	require.NoError(t, runSensor(context.Background(), testConfig(), dev, logging.New(&logs, "text", slog.LevelInfo)))
	assert.Contains(t, logs.String(), "sensor stopped")
	assert.NotContains(t, logs.String(), "latest=")
}

func TestRunSensor_ConnectError(t *testing.T) {
	dev := newScriptedDevice()
	dev.connectErr = errors.New("port busy")

	err := runSensor(context.Background(), testConfig(), dev, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port busy")
}

func TestRunSensor_MockUntilCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Mock.Interval = time.Millisecond
	cfg.Mock.Seed = 5
	cfg.HTTP.Listen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(100*time.Millisecond, cancel)

	var logs bytes.Buffer
	err := runSensor(ctx, cfg, newDevice(cfg, true), logging.New(&logs, "text", slog.LevelInfo))
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "http server listening")
	assert.Contains(t, out, "sensor stopped")
}
