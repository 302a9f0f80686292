package sensor

import "github.com/itohio/sensord/pkg/frame"

// Device defines the interface for sensor links (real or simulated).
type Device interface {
	Connect() error
	Close() error
	Frames() <-chan frame.Frame
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
