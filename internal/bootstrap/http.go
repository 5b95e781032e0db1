package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/orafinite/scan-api/config"
	httpx "github.com/orafinite/scan-api/internal/http"
	"github.com/orafinite/scan-api/internal/service"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// httpServerHandle pairs the server with its listen error channel so the
// orchestrator can surface ListenAndServe failures.
type httpServerHandle struct {
	server *http.Server
	errCh  chan error
}

// Wait blocks until the context is cancelled or the server fails to listen.
func (h *httpServerHandle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-h.errCh:
		return err
	}
}

// StartHTTPServer creates and starts the HTTP server.
// Returns a handle for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *httpServerHandle {
	if cfg == nil || cfg.Services == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Scans:           cfg.Services.Scans,
		Engine:          cfg.Services.Engine,
		Cache:           cfg.Services.Cache,
		RateLimitMax:    appCfg.HTTP.RateLimitMax,
		RateLimitWindow: appCfg.HTTP.RateLimitWindow,
		Logger:          logger,
	})

	return startServer(logger, handler, appCfg.HTTP)
}

func startServer(logger *slog.Logger, handler http.Handler, cfg config.HTTPConfig) *httpServerHandle {
	// Guard against empty addr to avoid listening on Go default
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	handle := &httpServerHandle{server: server, errCh: make(chan error, 1)}
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			handle.errCh <- err
		}
	}()

	return handle
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context     context.Context
	Server      *httpServerHandle
	ScanService *service.ScanService
	Logger      *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server and drains the
// scan executors.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	if err := cfg.Server.server.Shutdown(cfg.Context); err != nil {
		return err
	}

	// Drain in-flight scan executors after the listener stops.
	if cfg.ScanService != nil {
		if err := cfg.ScanService.Shutdown(cfg.Context); err != nil {
			return err
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
