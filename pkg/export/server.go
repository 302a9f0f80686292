// Package export serves store snapshots over HTTP.
package export

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/itohio/sensord/pkg/store"
)

// ShutdownTimeout bounds how long in-flight requests may run after the
// context passed to ListenAndServe is cancelled.
const ShutdownTimeout = 5 * time.Second

//go:embed static/index.html
var indexHTML []byte

// Snapshotter is the read side of store.Store.
type Snapshotter[T any] interface {
	Snapshot() store.Snapshot[T]
}

// Document is the body of GET /readings.
type Document[T any] struct {
	// BootID changes every process start so clients can tell the volatile
	// history was reset.
	BootID      uuid.UUID         `json:"boot_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Store       store.Snapshot[T] `json:"store"`
}

// Server exposes a landing page and the readings document.
type Server[T any] struct {
	src    Snapshotter[T]
	bootID uuid.UUID
	clock  func() time.Time
	log    *slog.Logger
}

// Option customises a Server.
type Option[T any] func(*Server[T])

// WithBootID fixes the boot id instead of generating one.
func WithBootID[T any](id uuid.UUID) Option[T] {
	return func(s *Server[T]) { s.bootID = id }
}

// WithClock replaces the clock used for generated_at.
func WithClock[T any](clock func() time.Time) Option[T] {
	return func(s *Server[T]) { s.clock = clock }
}

// WithLogger sets the request logger.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(s *Server[T]) { s.log = l }
}

// NewServer creates a server reading from src.
func NewServer[T any](src Snapshotter[T], opts ...Option[T]) *Server[T] {
	s := &Server[T]{
		src:    src,
		bootID: uuid.New(),
		clock:  time.Now,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// BootID returns the id reported in every document.
func (s *Server[T]) BootID() uuid.UUID {
	return s.bootID
}

// Document takes a snapshot and wraps it.
func (s *Server[T]) Document() Document[T] {
	return Document[T]{
		BootID:      s.bootID,
		GeneratedAt: s.clock().UTC(),
		Store:       s.src.Snapshot(),
	}
}

// ServeMux returns the routes of the server.
func (s *Server[T]) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/readings", s.readingsHandler)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server[T]) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server[T]) readingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Encode before writing so a failure can still produce a 500.
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(s.Document()); err != nil {
		s.log.Error("failed to encode readings", "err", err)
		http.Error(w, "Failed to encode readings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Debug("failed to write readings", "remote", r.RemoteAddr, "err", err)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server[T]) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server[T]) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.ServeMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
