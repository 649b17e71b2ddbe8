package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ShutdownTimeout bounds how long in-flight requests and background drains
// get once the serving context is cancelled.
const ShutdownTimeout = 30 * time.Second

// New builds an HTTP server with sane defaults for this project.
// WriteTimeout leaves room for synchronous enrichment, which waits on every
// provider check before responding.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves srv until ctx is cancelled, then shuts it down and runs each
// drain in order. A drain error is logged; it does not fail the shutdown.
func Run(ctx context.Context, srv *http.Server, log *slog.Logger, drains ...func(context.Context) error) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return Serve(ctx, srv, ln, log, drains...)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, log *slog.Logger, drains ...func(context.Context) error) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	for _, drain := range drains {
		if err := drain(shutdownCtx); err != nil {
			log.Warn("shutdown drain incomplete", "error", err)
		}
	}
	return nil
}
