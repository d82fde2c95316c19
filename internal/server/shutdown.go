package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// Run listens on the configured address and serves until ctx is done or the
// process receives SIGINT or SIGTERM. Shutdown then happens in two steps that
// share one deadline: the HTTP server stops accepting webhooks and finishes
// in-flight requests, then the dispatcher drains the review runs those
// requests queued. Runs still active at the deadline are cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- hs.Serve(listener)
	}()

	s.logger.Infow("Server started", "addr", listener.Addr().String())
	close(s.ready)

	var errs []error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutdown requested")
	case err := <-serveErr:
		errs = append(errs, fmt.Errorf("server error: %w", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()

	if err := hs.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorw("HTTP shutdown incomplete", "error", err)
		errs = append(errs, fmt.Errorf("stopping http server: %w", err))
	}

	if d := s.opts.Dispatcher; d != nil {
		active := d.ActiveCount()
		if err := d.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnw("Review runs cancelled at shutdown deadline", "active", active, "error", err)
			errs = append(errs, fmt.Errorf("draining review runs: %w", err))
		} else {
			s.logger.Infow("Review runs drained", "active", active)
		}
	}

	s.logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}

// Addr returns the address the server is listening on, or "" before Run has
// opened its listener.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) shutdownTimeout() time.Duration {
	if secs := s.cfg.Server.ShutdownTimeoutSeconds; secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultShutdownTimeout
}
