package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/municipal-portal/config"
	httpx "github.com/target/municipal-portal/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// Errors receives the listener error if the server stops unexpectedly.
	Errors chan<- error
}

// StartHTTPServer builds the router and starts serving in the background.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler, err := buildHTTPHandler(cfg.Config, cfg.Services, logger)
	if err != nil {
		return nil, err
	}

	server := newServer(cfg.Config.HTTP, handler)
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", serveErr)
			if cfg.Errors != nil {
				cfg.Errors <- fmt.Errorf("http server: %w", serveErr)
			}
		}
	}()

	return server, nil
}

func buildHTTPHandler(cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) (http.Handler, error) {
	if cfg.HTTP.CompressionEnabled {
		logger.Info("HTTP compression enabled", "level", cfg.HTTP.CompressionLevel)
	}

	router, err := httpx.NewRouter(httpx.RouterServices{
		Auth:       services.Auth,
		Users:      services.Users,
		Roads:      services.Roads,
		Orders:     services.Orders,
		Leadership: services.Leadership,
		Gate:       services.Gate,
		Cookies: httpx.SessionCookies{
			Name:   cfg.Session.CookieName,
			Domain: cfg.HTTP.CookieDomain,
			Secure: cfg.HTTP.SecureCookies,
			TTL:    cfg.Session.TTL,
		},
		AfterLogin:       cfg.Routes.AfterLogin,
		SessionInitWait:  cfg.Session.InitWait,
		BackendTimeout:   cfg.Backend.Timeout,
		RefreshInterval:  cfg.Dataset.RefreshInterval,
		PageSize:         cfg.Dataset.PageSize,
		Compression:      cfg.HTTP.CompressionEnabled,
		CompressionLevel: cfg.HTTP.CompressionLevel,
		Metrics:          services.Metrics,
		MetricsPath:      cfg.Metrics.Path,
		IsDev:            cfg.HTTP.DevAssets,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return router, nil
}

func newServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = shutdownWaitTimeout
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
