package poll

import (
	"sync/atomic"
	"time"
)

// Provenance supplies the taint attached to each recorded frame.
type Provenance[T any] func() T

// Stamp is the host provenance: a monotonic sequence number and the wall-clock
// time the frame was recorded.
type Stamp struct {
	Seq uint64    `json:"seq"`
	At  time.Time `json:"at"`
}

// NewStamper returns a provenance producing Stamps numbered from 1. A nil
// clock selects time.Now.
func NewStamper(clock func() time.Time) Provenance[Stamp] {
	if clock == nil {
		clock = time.Now
	}
	var seq atomic.Uint64
	return func() Stamp {
		return Stamp{Seq: seq.Add(1), At: clock().UTC()}
	}
}

// NewCounter returns a provenance producing 1, 2, 3, ...
func NewCounter() Provenance[uint64] {
	var seq atomic.Uint64
	return func() uint64 { return seq.Add(1) }
}
