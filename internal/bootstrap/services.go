package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/orafinite/scan-api/config"
	reaperadapter "github.com/orafinite/scan-api/internal/adapters/reaper"
	"github.com/orafinite/scan-api/internal/core"
	"github.com/orafinite/scan-api/internal/data"
	"github.com/orafinite/scan-api/internal/engine"
	"github.com/orafinite/scan-api/internal/observability/statsd"
	"github.com/orafinite/scan-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Registry *core.ScanRegistry
	Engine   *engine.Engine
	Cache    core.CacheRepository
	Scans    *service.ScanService

	Observability ObservabilityContainer

	// Redis is nil when the cache runs in-memory.
	Redis redis.UniversalClient
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
}

// NewServices builds the full service container from configuration.
func NewServices(deps ServiceDeps) (*ServiceContainer, error) {
	if deps.Config == nil {
		return nil, errors.New("app config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	obs := buildObservability(logger, cfg.Observability)

	registry, err := core.NewScanRegistry(core.ScanRegistryOptions{
		MaxActive: cfg.Orchestrator.MaxRunningScans,
	})
	if err != nil {
		return nil, fmt.Errorf("build scan registry: %w", err)
	}

	scanEngine, err := engine.New(engine.Options{
		Config: cfg.Engine,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build scan engine: %w", err)
	}

	cache, redisClient, err := buildCache(cfg, logger)
	if err != nil {
		return nil, err
	}

	scans, err := service.NewScanService(service.ScanServiceOptions{
		Registry:  registry,
		Engine:    scanEngine,
		Cache:     cache,
		ReportTTL: cfg.Cache.ReportTTL,
		Logger:    logger,
		Metrics:   obs.MetricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("build scan service: %w", err)
	}

	return &ServiceContainer{
		Registry:      registry,
		Engine:        scanEngine,
		Cache:         cache,
		Scans:         scans,
		Observability: obs,
		Redis:         redisClient,
	}, nil
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obs := ObservabilityContainer{MetricsConfig: cfg.Metrics}
	if !cfg.Metrics.IsEnabled() {
		return obs
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  "scand",
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return obs
	}

	obs.MetricsSink = client
	return obs
}

// buildCache picks the Redis-backed cache when Redis is enabled, otherwise
// the in-memory fallback.
func buildCache(cfg *config.AppConfig, logger *slog.Logger) (core.CacheRepository, redis.UniversalClient, error) {
	if !cfg.Redis.Enabled {
		logger.Info("redis disabled; using in-memory cache")
		return data.NewMemoryCacheRepo(), nil, nil
	}

	client, err := ConnectRedis(RedisConnectConfig{RedisConfig: cfg.Redis, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return data.NewRedisCacheRepo(client), client, nil
}

// ServiceOrchestrationConfig groups dependencies for running the enabled services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

const shutdownWaitTimeout = 10 * time.Second

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal is received or a service
// fails, then stops everything gracefully.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	if cfg.Services == nil {
		return errors.New("service orchestration config missing services")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	var server *httpServerHandle
	if enabled[config.ServiceModeHTTP] {
		server = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
		group.Go(func() error {
			return server.Wait(groupCtx)
		})
	}

	if enabled[config.ServiceModeReaper] {
		runner, runnerErr := reaperadapter.NewRunner(reaperadapter.RunnerOptions{
			Registry: cfg.Services.Registry,
			Config:   cfg.Config.Reaper,
			Logger:   logger,
			Metrics:  cfg.Services.Observability.MetricsSink,
		})
		if runnerErr != nil {
			stop()
			return fmt.Errorf("build reaper runner: %w", runnerErr)
		}
		group.Go(func() error {
			return runner.Run(groupCtx)
		})
	}

	<-groupCtx.Done()
	logger.Info("shutting down services...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
	defer cancel()

	var shutdownErr error
	if server != nil {
		shutdownErr = ShutdownHTTPServer(ShutdownConfig{
			Context:     shutdownCtx,
			Server:      server,
			ScanService: cfg.Services.Scans,
			Logger:      logger,
		})
	} else if cfg.Services.Scans != nil {
		shutdownErr = cfg.Services.Scans.Shutdown(shutdownCtx)
	}

	if waitErr := group.Wait(); waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	if shutdownErr != nil {
		return shutdownErr
	}

	closeServices(cfg.Services, logger)
	return nil
}

// closeServices releases shared resources after all services stopped.
func closeServices(services *ServiceContainer, logger *slog.Logger) {
	if services.Observability.MetricsSink != nil {
		if err := services.Observability.MetricsSink.Close(); err != nil {
			logger.Warn("failed to close statsd client", "error", err)
		}
	}
	if services.Redis != nil {
		if err := services.Redis.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
}
