package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ewilliams-labs/moodgraph/internal/adapters/rest"
)

// Serve runs the REST API until ctx is canceled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Orchestrator.Warm(ctx); err != nil {
		a.log.WithError(err).Warn("catalog not loaded at startup, will retry on first request")
	}

	addr := a.Config.GetAddress()
	srv := &http.Server{
		Addr:              addr,
		Handler:           rest.NewHandler(a.Orchestrator, a.log),
		ReadHeaderTimeout: time.Duration(a.Config.Server.ReadHeaderTimeout) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()
	a.log.WithField("addr", addr).Info("moodgraph API is running")

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.Config.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: shutdown: %w", err)
		}
		return nil
	}
}
