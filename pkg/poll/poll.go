// Package poll drives a store from a stream of frames.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/itohio/sensord/pkg/frame"
	"github.com/itohio/sensord/pkg/store"
)

// Recorder is the part of store.Store the poller writes to.
type Recorder[T any] interface {
	Record(taint T, f frame.Frame) store.Result
}

// Poller is the single writer of a store. It stamps each frame with a taint,
// records it and logs the outcome.
type Poller[T any] struct {
	rec   Recorder[T]
	taint Provenance[T]
	log   *slog.Logger

	callbacks []func(taint T, res store.Result)
	cbMu      sync.RWMutex
}

// New creates a poller. A nil logger selects slog.Default().
func New[T any](rec Recorder[T], taint Provenance[T], log *slog.Logger) *Poller[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Poller[T]{
		rec:   rec,
		taint: taint,
		log:   log,
	}
}

// OnResult registers a callback invoked after every recorded frame.
// Callbacks run on the poll goroutine and should return quickly.
func (p *Poller[T]) OnResult(cb func(taint T, res store.Result)) {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	p.callbacks = append(p.callbacks, cb)
}

// Run records frames until the channel closes (returns nil) or ctx is
// cancelled (returns ctx.Err()).
func (p *Poller[T]) Run(ctx context.Context, frames <-chan frame.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			p.Step(f)
		}
	}
}

// Step records a single frame and returns its result.
func (p *Poller[T]) Step(f frame.Frame) store.Result {
	taint := p.taint()
	res := p.rec.Record(taint, f)

	switch res.Status {
	case store.NewReading:
		p.log.Info("new reading", "taint", taint, "value", res.Reading.String())
	case store.ParseError:
		kind := frame.Malformed
		var code frame.FaultCode
		if errors.As(res.Err, &code) {
			kind = frame.SensorError
		}
		// Error() is logged explicitly; slog would otherwise prefer MarshalText
		// and drop the "sensor fault" wording.
		p.log.Warn("parse error",
			"taint", taint,
			"kind", kind.String(),
			"frame", f.String(),
			slog.String("err", res.Err.Error()))
	}

	p.cbMu.RLock()
	callbacks := p.callbacks
	p.cbMu.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb(taint, res)
		}
	}
	return res
}
