// Package server provides the HTTP API with lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// shutdownTimeout bounds graceful shutdown after the run context ends.
const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// Write timeout bounds. A recommend response is written only after the LLM
// call returns, so the write budget always exceeds the LLM timeout by
// writeTimeoutMargin.
const (
	minWriteTimeout    = 90 * time.Second
	writeTimeoutMargin = 30 * time.Second
)

// New creates a server listening on addr. llmTimeout is the per-call LLM
// budget that /api/recommend may spend before writing its response.
func New(addr string, handler http.Handler, llmTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      writeTimeoutFor(llmTimeout),
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func writeTimeoutFor(llmTimeout time.Duration) time.Duration {
	return max(minWriteTimeout, llmTimeout+writeTimeoutMargin)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting HTTP server", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
