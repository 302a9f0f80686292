package store

import "github.com/itohio/sensord/pkg/frame"

// Snapshot is a point-in-time copy of every buffer, oldest entry first.
type Snapshot[T any] struct {
	Readings     []Entry[T, frame.Reading]   `json:"readings"`
	SensorErrors []Entry[T, frame.FaultCode] `json:"sensor_errors"`
	ParseErrors  []Entry[T, frame.Reason]    `json:"parse_errors"`
	Frames       []Entry[T, frame.Frame]     `json:"frames"`
}

// Snapshot copies all buffers under one lock acquisition, so the result is
// never torn across a concurrent Record. Slices are never nil.
func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot[T]{
		Readings:     s.readings.All(),
		SensorErrors: s.sensorErrors.All(),
		ParseErrors:  s.parseErrors.All(),
		Frames:       s.frames.All(),
	}
}
