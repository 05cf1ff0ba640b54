package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start runs the HTTP server until an interrupt or terminate signal
// arrives, then shuts down gracefully and runs the registered cleanup
// functions (broker disconnect, store close, ...) in order.
func (s *Server) Start(cleanup ...func(ctx context.Context)) {
	go func() {
		if err := s.E.Start(s.cfg.Addr); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("chat service listening", "addr", s.cfg.Addr, "server_id", s.cfg.ServerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.E.Shutdown(ctx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	for _, fn := range cleanup {
		fn(ctx)
	}
	slog.Info("chat service stopped")
}
