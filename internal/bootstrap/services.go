package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/municipal-portal/config"
	"github.com/target/municipal-portal/internal/adapters/backend"
	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/gate"
	httpx "github.com/target/municipal-portal/internal/http"
	"github.com/target/municipal-portal/internal/observability/metrics"
	"github.com/target/municipal-portal/internal/poller"
	"github.com/target/municipal-portal/internal/service"
	"github.com/target/municipal-portal/internal/session"
)

const shutdownWaitTimeout = 10 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Backend    *backend.Client
	Registry   *session.Registry
	Auth       *service.AuthService
	Users      *service.UserService
	Roads      *service.RoadsService
	Orders     *service.OrderService
	Leadership *service.LeadershipService
	Gate       *gate.Table
	// Metrics is nil when METRICS_ENABLED=false.
	Metrics *metrics.Metrics
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	// HTTPClient overrides the backend transport, mainly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewServices wires the backend client, session registry, domain services and
// route table.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps require a config")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		m        *metrics.Metrics
		observer backend.Observer
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		observer = m.ObserveBackend
	}

	client, err := backend.NewClient(backend.Options{
		BaseURL:     cfg.Backend.URL,
		Timeout:     cfg.Backend.Timeout,
		DatasetPath: cfg.Backend.DatasetPath,
		RowsExpr:    cfg.Backend.DatasetRowsExpr,
		HTTPClient:  deps.HTTPClient,
		Observer:    observer,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("backend client: %w", err)
	}

	persistence, err := buildSessionPersistence(cfg.Session, cfg.Redis, deps.RedisClient)
	if err != nil {
		return ServiceContainer{}, err
	}
	registry := session.NewRegistry(session.RegistryOptions{
		Boundary: client,
		Cache:    persistence.identities,
		Sessions: persistence.sessions,
		TTL:      cfg.Session.TTL,
		Size:     cfg.Session.CacheSize,
		Logger:   logger,
	})

	table, err := gate.NewTable(gate.Config{
		Routes:              httpx.GateRoutes(),
		AnonymousLanding:    cfg.Routes.AnonymousLanding,
		UnauthorizedLanding: cfg.Routes.UnauthorizedLanding,
		DefaultPath:         cfg.Routes.DefaultPath,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("route table: %w", err)
	}

	return ServiceContainer{
		Backend:  client,
		Registry: registry,
		Auth:     service.NewAuthService(service.AuthServiceOptions{Registry: registry, Logger: logger}),
		Users:    service.NewUserService(service.UserServiceOptions{Directory: client, Logger: logger}),
		Roads: service.NewRoadsService(service.RoadsServiceOptions{
			Source: client,
			MaxAge: cfg.Dataset.RefreshInterval,
			Logger: logger,
		}),
		Orders: service.NewOrderService(service.OrderServiceOptions{Repo: client, Logger: logger}),
		Leadership: service.NewLeadershipService(service.LeadershipServiceOptions{
			Requests:       client,
			Municipalities: client,
			Logger:         logger,
		}),
		Gate:    table,
		Metrics: m,
	}, nil
}

// ServiceOrchestrationConfig contains everything needed to run the process.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// Signals overrides the shutdown signals, mainly for tests.
	Signals <-chan os.Signal
}

// backgroundService describes a long-running worker started next to the HTTP server.
type backgroundService struct {
	name string
	run  func(ctx context.Context) error
}

type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// newDatasetWarmerService keeps the dataset snapshot fresh with a service account.
func newDatasetWarmerService(cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) backgroundService {
	var observer func(string, error, time.Duration)
	if services.Metrics != nil {
		observer = services.Metrics.ObservePoll
	}
	p := poller.New(poller.Options{
		Logger:   logger,
		Jitter:   true,
		Observer: observer,
	})
	warm := services.Roads.Warmer(services.Backend, domainauth.Credentials{
		Username: cfg.Dataset.WarmUsername,
		Password: cfg.Dataset.WarmPassword,
	})

	return backgroundService{
		name: "dataset-warmer",
		run: func(ctx context.Context) error {
			p.Start(ctx, service.DatasetPollerName, cfg.Dataset.RefreshInterval, warm)
			return p.Run(ctx)
		},
	}
}

func buildBackgroundServices(cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) []backgroundService {
	var out []backgroundService
	if cfg.IsDatasetWarmerEnabled() {
		out = append(out, newDatasetWarmerService(cfg, services, logger))
	}
	return out
}

func launchBackground(ctx context.Context, svc backgroundService, errCh chan<- error, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.InfoContext(ctx, "starting "+svc.name)
		if err := svc.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("%s: %w", svc.name, err)
		}
	}()
	return done
}

// RunServicesWithShutdown starts the HTTP server and the enabled background
// services, then blocks until a shutdown signal or a service failure.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backgrounds := buildBackgroundServices(cfg.Config, cfg.Services, logger)
	errCh := make(chan error, errorChannelBufferSize(len(backgrounds)))

	server, err := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
		Errors:   errCh,
	})
	if err != nil {
		return err
	}

	handles := make([]backgroundServiceHandle, 0, len(backgrounds))
	for _, svc := range backgrounds {
		handles = append(handles, backgroundServiceHandle{
			name: svc.name,
			done: launchBackground(serviceCtx, svc, errCh, logger),
		})
	}

	signals := cfg.Signals
	if signals == nil {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		signals = quit
	}

	return waitForShutdown(shutdownConfig{
		cancel:          cancel,
		signals:         signals,
		errCh:           errCh,
		httpServer:      server,
		shutdownTimeout: cfg.Config.HTTP.ShutdownTimeout,
		logger:          logger,
		backgrounds:     handles,
	})
}

// errorChannelBufferSize leaves room for the HTTP server, every background
// service and one spare so no sender blocks during shutdown.
func errorChannelBufferSize(backgrounds int) int {
	if backgrounds < 0 {
		backgrounds = 0
	}
	return backgrounds + 2
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel          context.CancelFunc
	signals         <-chan os.Signal
	errCh           <-chan error
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
	backgrounds     []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	select {
	case <-cfg.signals:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop drains the HTTP server and waits for background services.
func gracefulStop(cfg shutdownConfig) error {
	if err := ShutdownHTTPServer(ShutdownConfig{
		Context: context.Background(),
		Server:  cfg.httpServer,
		Timeout: cfg.shutdownTimeout,
		Logger:  cfg.logger,
	}); err != nil {
		return err
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}
	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn(name + " did not stop within timeout")
	}
}
