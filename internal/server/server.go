// Package server runs HTTP handlers until their context ends, then drains them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-sod/knn/internal/logging"
)

type Option func(*options)

type options struct {
	shutdownTimeout   time.Duration
	readHeaderTimeout time.Duration
}

// WithShutdownTimeout bounds how long in-flight requests may run after ctx ends.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

func WithReadHeaderTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readHeaderTimeout = d
		}
	}
}

type Server struct {
	listener net.Listener
	opts     options
}

func New(addr string, opts ...Option) (*Server, error) {
	o := options{shutdownTimeout: 5 * time.Second, readHeaderTimeout: 10 * time.Second}
	for _, f := range opts {
		f(&o)
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on %s: %w", addr, err)
	}
	return &Server{listener: listener, opts: o}, nil
}

// Addr is the address the server listens on, with the port resolved.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// ServeHTTP serves srv until ctx is done and then shuts it down gracefully.
func (s *Server) ServeHTTP(ctx context.Context, srv *http.Server) error {
	logger := logging.FromContext(ctx).With("addr", s.Addr())
	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Debugf("context done, draining for up to %s", s.opts.shutdownTimeout)
		shutdownCtx, done := context.WithTimeout(context.Background(), s.opts.shutdownTimeout)
		defer done()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("failed to shutdown: %w", err)
	}
	logger.Debugf("serving stopped")
	return nil
}

func (s *Server) ServeHTTPHandler(ctx context.Context, handler http.Handler) error {
	return s.ServeHTTP(ctx, &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.opts.readHeaderTimeout,
	})
}

// HandleHealth answers 200 while ctx is alive and 503 once shutdown has begun.
func HandleHealth(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		select {
		case <-ctx.Done():
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprint(w, `{"status": "shutting down"}`)
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{"status": "ok"}`)
		}
	})
}
