// Package app assembles and runs the admin API server: configuration,
// connection pool, middleware chain and HTTP listener.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/verinode/token-registry-server/internal/config"
)

// RegistryApp is a fully wired admin API server ready to listen
type RegistryApp struct {
	config     *config.Config
	components *Components
	httpServer *http.Server

	// ctx is canceled by Stop after the listener drains; owned resources
	// such as the connection pool are released through cancelFunc
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start runs the HTTP listener and blocks until it stops. A server closed
// through Stop reports no error.
func (app *RegistryApp) Start() error {
	slog.Info("Server listening", "address", app.httpServer.Addr)

	err := app.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests within the timeout, then cancels the
// application context. The pool is released only after the drain: requests
// still executing use it.
func (app *RegistryApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	shutdownErr := app.httpServer.Shutdown(shutdownCtx)

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if shutdownErr != nil {
		return fmt.Errorf("server forced to shutdown: %w", shutdownErr)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the configuration the app was built with
func (app *RegistryApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer exposes the underlying server, mainly so tests can reach
// the configured address
func (app *RegistryApp) GetHTTPServer() *http.Server {
	return app.httpServer
}
