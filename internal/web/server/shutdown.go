package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Run serves until ctx is cancelled or the listener fails, then shuts down.
// A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.Addr()))
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
		return s.Shutdown(context.Background())
	case err, ok := <-errCh:
		if !ok {
			return s.Shutdown(context.Background())
		}
		if shutdownErr := s.Shutdown(context.Background()); shutdownErr != nil {
			s.logger.Warn("shutdown after serve failure", zap.Error(shutdownErr))
		}
		return err
	}
}

// Shutdown stops accepting connections, waits for in-flight requests up to the
// shutdown timeout, then runs the hooks. Later calls return the first result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down", zap.Duration("timeout", s.shutdownTimeout))
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.shutdownErr = fmt.Errorf("server shutdown: %w", err)
		}

		s.mu.Lock()
		if s.listener != nil {
			// already closed when Serve was running
			_ = s.listener.Close()
		}
		hooks := make([]ShutdownHook, len(s.hooks))
		copy(hooks, s.hooks)
		s.mu.Unlock()

		for i, hook := range hooks {
			if err := hook(ctx); err != nil {
				s.logger.Error("shutdown hook failed", zap.Int("hook", i), zap.Error(err))
				if s.shutdownErr == nil {
					s.shutdownErr = fmt.Errorf("shutdown hook %d: %w", i, err)
				}
			}
		}
		if s.shutdownErr == nil {
			s.logger.Info("shutdown complete")
		}
	})
	return s.shutdownErr
}
