package store

import (
	"fmt"
	"sync"

	"github.com/itohio/sensord/pkg/frame"
	"github.com/itohio/sensord/pkg/ring"
)

// DefaultCapacity is the size of every buffer in DefaultCapacities.
const DefaultCapacity = 32

// Status is the caller-visible outcome of recording one frame.
type Status uint8

const (
	// NewReading means the frame was accepted and differs from the previous reading.
	NewReading Status = iota + 1
	// NoNewReading means the frame was accepted but repeats the previous reading.
	NoNewReading
	// ParseError means the frame was malformed or reported a sensor fault.
	ParseError
)

func (s Status) String() string {
	switch s {
	case NewReading:
		return "new_reading"
	case NoNewReading:
		return "no_new_reading"
	case ParseError:
		return "parse_error"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Result is returned by Record. Reading is set for NewReading; Err is a
// frame.Reason or frame.FaultCode for ParseError.
type Result struct {
	Status  Status
	Reading frame.Reading
	Err     error
}

func (r Result) String() string {
	switch r.Status {
	case NewReading:
		return "NewReading(" + r.Reading.String() + ")"
	case ParseError:
		return "ParseError(" + r.Err.Error() + ")"
	default:
		return r.Status.String()
	}
}

// Capacities fixes the size of each buffer. Values below 1 are raised to 1.
type Capacities struct {
	Readings     int
	SensorErrors int
	ParseErrors  int
	Frames       int
}

// DefaultCapacities returns DefaultCapacity for every buffer.
func DefaultCapacities() Capacities {
	return Capacities{
		Readings:     DefaultCapacity,
		SensorErrors: DefaultCapacity,
		ParseErrors:  DefaultCapacity,
		Frames:       DefaultCapacity,
	}
}

// Entry pairs a payload with the provenance it was recorded under.
type Entry[T, P any] struct {
	Taint   T `json:"taint"`
	Payload P `json:"payload"`
}

// Store retains bounded history of classified frames. T is the caller's
// provenance type; it is stored and serialized but never inspected.
// All methods are safe for concurrent use.
type Store[T any] struct {
	mu sync.Mutex

	readings     *ring.Ring[Entry[T, frame.Reading]]
	sensorErrors *ring.Ring[Entry[T, frame.FaultCode]]
	parseErrors  *ring.Ring[Entry[T, frame.Reason]]
	frames       *ring.Ring[Entry[T, frame.Frame]]
}

// New allocates every buffer up front; nothing grows afterwards.
func New[T any](c Capacities) *Store[T] {
	return &Store[T]{
		readings:     ring.New[Entry[T, frame.Reading]](c.Readings),
		sensorErrors: ring.New[Entry[T, frame.FaultCode]](c.SensorErrors),
		parseErrors:  ring.New[Entry[T, frame.Reason]](c.ParseErrors),
		frames:       ring.New[Entry[T, frame.Frame]](c.Frames),
	}
}

// Record classifies f and files it. Every frame lands in the audit trail;
// accepted frames equal to the previous reading touch nothing else.
func (s *Store[T]) Record(taint T, f frame.Frame) Result {
	ev := frame.Classify(f)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames.Push(Entry[T, frame.Frame]{Taint: taint, Payload: f})

	switch ev.Kind {
	case frame.Accepted:
		// Eviction only drops the oldest entry, so the newest reading is the
		// last accepted one.
		if last, ok := s.readings.Last(); ok && last.Payload == ev.Reading {
			return Result{Status: NoNewReading}
		}
		s.readings.Push(Entry[T, frame.Reading]{Taint: taint, Payload: ev.Reading})
		return Result{Status: NewReading, Reading: ev.Reading}

	case frame.SensorError:
		s.sensorErrors.Push(Entry[T, frame.FaultCode]{Taint: taint, Payload: ev.Code})
		return Result{Status: ParseError, Err: ev.Code}

	default:
		s.parseErrors.Push(Entry[T, frame.Reason]{Taint: taint, Payload: ev.Reason})
		return Result{Status: ParseError, Err: ev.Reason}
	}
}

// Latest returns the most recently accepted reading.
func (s *Store[T]) Latest() (frame.Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.readings.Last()
	return last.Payload, ok
}

// Capacities reports the buffer sizes the store was built with.
func (s *Store[T]) Capacities() Capacities {
	// Capacities never change, no lock needed.
	return Capacities{
		Readings:     s.readings.Cap(),
		SensorErrors: s.sensorErrors.Cap(),
		ParseErrors:  s.parseErrors.Cap(),
		Frames:       s.frames.Cap(),
	}
}
