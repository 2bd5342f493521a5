package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/testfarm/broker/config"
	"github.com/testfarm/broker/internal/data"
	"github.com/testfarm/broker/internal/observability/statsd"
	"github.com/testfarm/broker/internal/service"
	"golang.org/x/sync/errgroup"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Dispatcher    *service.Dispatcher
	Results       *service.ResultStore
	Output        *service.OutputStream
	Artifacts     *service.ArtifactStore
	Registry      *service.Registry
	OutputRepo    *data.OutputRepo
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs      *data.JobRepo
	Output    *data.OutputRepo
	Artifacts *data.ArtifactRepo
	Agents    *data.AgentRepo
	Queues    *data.QueueRepo
}

// buildObservability configures the metric sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.StatsdPrefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(deps *ServiceDeps) *serviceRepositories {
	repoCfg := data.RepoConfig{Logger: deps.Logger}
	return &serviceRepositories{
		Jobs: data.NewJobRepo(deps.DB, repoCfg),
		Output: data.NewOutputRepo(deps.RedisClient, data.OutputRepoConfig{
			MaxChunks: deps.Config.Output.MaxChunks,
			Logger:    deps.Logger,
		}),
		Artifacts: data.NewArtifactRepo(deps.DB, repoCfg),
		Agents:    data.NewAgentRepo(deps.DB, repoCfg),
		Queues:    data.NewQueueRepo(deps.DB, repoCfg),
	}
}

// NewServices wires repositories and services for the broker runtime.
func NewServices(deps *ServiceDeps) ServiceContainer {
	repos := buildRepositories(deps)
	obs := buildObservability(deps.Logger, deps.Config.Observability)

	var sink statsd.Sink
	if obs.MetricsSink != nil {
		sink = obs.MetricsSink
	}

	return ServiceContainer{
		Dispatcher: service.MustNewDispatcher(service.DispatcherOptions{
			Repo:   repos.Jobs,
			Logger: deps.Logger,
			Sink:   sink,
		}),
		Results: service.MustNewResultStore(service.ResultStoreOptions{
			Repo:   repos.Jobs,
			Logger: deps.Logger,
		}),
		Output: service.MustNewOutputStream(service.OutputStreamOptions{
			Repo:   repos.Output,
			Logger: deps.Logger,
		}),
		Artifacts: service.MustNewArtifactStore(service.ArtifactStoreOptions{
			Repo:   repos.Artifacts,
			Logger: deps.Logger,
		}),
		Registry: service.MustNewRegistry(service.RegistryOptions{
			Agents: repos.Agents,
			Queues: repos.Queues,
			Logger: deps.Logger,
		}),
		OutputRepo:    repos.Output,
		Observability: obs,
	}
}

// ServiceOrchestrationConfig groups dependencies for the service runtime.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// RunServicesWithShutdown runs the HTTP server until SIGINT/SIGTERM, then
// shuts everything down gracefully.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		DB:       cfg.DB,
		Logger:   cfg.Logger,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-groupCtx.Done()
		return ShutdownHTTPServer(ShutdownConfig{
			Context: context.Background(),
			Server:  server,
			Logger:  cfg.Logger,
		})
	})

	err := group.Wait()

	if sink := cfg.Services.Observability.MetricsSink; sink != nil {
		if closeErr := sink.Close(); closeErr != nil && cfg.Logger != nil {
			cfg.Logger.Error("close statsd client failed", "error", closeErr)
		}
	}

	return err
}
