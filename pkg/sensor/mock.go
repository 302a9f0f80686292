package sensor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/itohio/sensord/pkg/config"
	"github.com/itohio/sensord/pkg/frame"
)

// Mock simulates the sensor for testing and development. It repeats each
// value for HoldFrames frames and injects corrupt and fault frames at the
// configured rates.
type Mock struct {
	cfg config.MockConfig

	frames    chan frame.Frame
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	started   bool
	closed    bool

	// Simulation state, owned by the generator goroutine.
	rng   *rand.Rand
	value uint16
	held  int
}

// NewMock creates a new simulated device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.Default().Mock
	}
	c := *cfg
	if c.Interval <= 0 {
		c.Interval = 500 * time.Millisecond
	}
	if c.HoldFrames <= 0 {
		c.HoldFrames = 1
	}

	seed := c.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:    c,
		frames: make(chan frame.Frame, DefaultBufferSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		value:  c.Base,
	}
}

// Connect starts generating frames.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.closed || m.started {
		return fmt.Errorf("device closed")
	}

	m.connected = true
	m.started = true

	go m.generateFrames()

	return nil
}

// Close stops the generator and waits for the frames channel to close.
func (m *Mock) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.connected = false
	m.cancel()
	started := m.started
	m.mu.Unlock()

	if started {
		<-m.done
	} else {
		close(m.frames)
	}
	return nil
}

// Frames returns the channel for reading frames.
func (m *Mock) Frames() <-chan frame.Frame {
	return m.frames
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) generateFrames() {
	defer close(m.done)
	defer close(m.frames)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			f := m.nextFrame()
			select {
			case m.frames <- f:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// nextFrame produces one simulated frame and advances the simulation.
func (m *Mock) nextFrame() frame.Frame {
	p := m.rng.Float64()
	switch {
	case p < m.cfg.CorruptRate:
		f := frame.Encode(m.reading())
		f[frame.Size-2] ^= byte(1 << m.rng.IntN(8))
		return f
	case p < m.cfg.CorruptRate+m.cfg.FaultRate:
		return frame.EncodeFault(frame.FaultCode(1 + m.rng.IntN(0x7F)))
	}

	f := frame.Encode(m.reading())
	m.held++
	if m.held >= m.cfg.HoldFrames {
		m.held = 0
		m.value = m.step()
	}
	return f
}

func (m *Mock) reading() frame.Reading {
	return frame.Reading{Raw: m.value, Decimals: m.cfg.Decimals}
}

// step moves the value by a non-zero random amount within Step, reflecting
// off the uint16 bounds.
func (m *Mock) step() uint16 {
	maxStep := max(int(m.cfg.Step), 1)
	delta := 1 + m.rng.IntN(maxStep)
	if m.rng.IntN(2) == 0 {
		delta = -delta
	}
	next := int(m.value) + delta
	if next < 0 || next > 0xFFFF {
		next = int(m.value) - delta
	}
	return uint16(next)
}
