package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/itohio/sensord/pkg/frame"
)

const (
	// DefaultReadTimeout bounds each read so the reader notices Close promptly.
	DefaultReadTimeout = 100 * time.Millisecond
	// DefaultBufferSize is the default size for the frames channel buffer.
	DefaultBufferSize = 16
)

// Port is the part of a serial port the reader needs.
type Port interface {
	io.Reader
	io.Closer
}

// Opener opens the named port. It is replaced in tests.
type Opener func(name string, mode *serial.Mode, timeout time.Duration) (Port, error)

// PortInfo describes an available serial port.
type PortInfo struct {
	Name        string
	Description string
	IsUSB       bool
	VID         string
	PID         string
}

// Serial reads fixed-size frames from a serial port.
type Serial struct {
	port    string
	opts    PortOptions
	timeout time.Duration
	open    Opener
	log     *slog.Logger

	conn      Port
	frames    chan frame.Frame
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	started   bool
	closed    bool
}

// SerialOption customises a Serial.
type SerialOption func(*Serial)

// WithOpener replaces the function used to open the port.
func WithOpener(open Opener) SerialOption {
	return func(s *Serial) { s.open = open }
}

// WithLogger sets the logger used for read errors and dropped frames.
func WithLogger(l *slog.Logger) SerialOption {
	return func(s *Serial) { s.log = l }
}

// WithReadTimeout sets the per-read timeout.
func WithReadTimeout(d time.Duration) SerialOption {
	return func(s *Serial) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSerial creates a Serial device for the given port. bufSize 0 selects
// DefaultBufferSize.
func NewSerial(port string, opts PortOptions, bufSize int, options ...SerialOption) *Serial {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Serial{
		port:    port,
		opts:    opts,
		timeout: DefaultReadTimeout,
		open:    openSerial,
		log:     slog.Default(),
		frames:  make(chan frame.Frame, bufSize),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func openSerial(name string, mode *serial.Mode, timeout time.Duration) (Port, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return p, nil
}

// Ports returns the serial ports present on the host.
func Ports() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]PortInfo, 0, len(details))
	for _, d := range details {
		desc := d.Product
		if desc == "" {
			desc = d.Name
		}
		result = append(result, PortInfo{
			Name:        d.Name,
			Description: desc,
			IsUSB:       d.IsUSB,
			VID:         d.VID,
			PID:         d.PID,
		})
	}
	return result, nil
}

// Connect opens the serial port and starts reading frames.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}
	if s.closed || s.started {
		return fmt.Errorf("device closed")
	}

	mode, err := s.opts.Mode()
	if err != nil {
		return fmt.Errorf("invalid serial options: %w", err)
	}

	port, err := s.open(s.port, mode, s.timeout)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	s.conn = port
	s.connected = true
	s.started = true

	go s.readFrames(port)

	return nil
}

// Close stops the reader, closes the port and waits for the frames channel
// to close. Closing twice is a no-op.
func (s *Serial) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected = false
	s.cancel()
	conn, started := s.conn, s.started
	s.conn = nil
	s.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}

	if started {
		<-s.done
	} else {
		close(s.frames)
	}

	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// Frames returns the channel frames are delivered on. It is closed once the
// reader stops.
func (s *Serial) Frames() <-chan frame.Frame {
	return s.frames
}

// IsConnected returns whether the device is currently connected.
func (s *Serial) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// readFrames accumulates bytes into frames until the port fails or the
// device is closed. It owns the frames channel.
func (s *Serial) readFrames(port Port) {
	defer close(s.done)
	defer close(s.frames)

	r := newFrameReader(port)
	for {
		if s.ctx.Err() != nil {
			return
		}

		f, ok, err := r.Next()
		if ok {
			select {
			case s.frames <- f:
			case <-s.ctx.Done():
				return
			default:
				s.log.Warn("frames channel full, dropping frame", "frame", f.String())
			}
		}
		if err != nil {
			if s.ctx.Err() == nil && !errors.Is(err, io.EOF) {
				s.log.Error("error reading from serial port", "port", s.port, "err", err)
			}
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()
			return
		}
	}
}

// frameReader assembles exact frame.Size units from a stream that may return
// short reads or none at all on timeout.
type frameReader struct {
	r   io.Reader
	buf frame.Frame
	n   int
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r}
}

// Next performs one read. ok reports a complete frame; err may accompany a
// complete frame when the stream ends right after it.
func (fr *frameReader) Next() (f frame.Frame, ok bool, err error) {
	n, err := fr.r.Read(fr.buf[fr.n:])
	fr.n += n
	if fr.n == frame.Size {
		fr.n = 0
		return fr.buf, true, err
	}
	return f, false, err
}
