// Package di wires the gateway's object graph with Wire. Providers
// construct components; lifecycle (initial sync, rebuilds, the HTTP
// listener) belongs to App.
package di

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/wire"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"datagate/internal/config"
	"datagate/internal/configcache"
	"datagate/internal/configstore"
	"datagate/internal/enum"
	"datagate/internal/handlers"
	"datagate/internal/observability"
	"datagate/internal/orchestrator"
	"datagate/internal/registry"
	"datagate/internal/repository"
	"datagate/internal/repository/memory"
	"datagate/internal/repository/mongodb"
	"datagate/internal/schema"
	"datagate/internal/write"
)

const metricsNamespace = "datagate"

// ProviderSet is the complete object graph.
var ProviderSet = wire.NewSet(
	provideLogger,
	provideConfigStore,
	provideCache,
	provideSyncer,
	provideEndpointRegistry,
	provideEnumRegistry,
	provideEnumClient,
	provideRefresher,
	provideSchemaRegistry,
	provideCollector,
	provideTracerProvider,
	provideTracer,
	provideDocumentStore,
	providePipeline,
	provideOrchestrator,
	provideGateway,
	provideRouter,
	provideApp,
)

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == config.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// provideConfigStore picks the store backend: a seed file yields an
// in-memory store, otherwise the directory tree is watched.
func provideConfigStore(cfg *config.Config, logger *zap.Logger) (configstore.Store, error) {
	if cfg.ConfigSeed != "" {
		data, err := os.ReadFile(cfg.ConfigSeed)
		if err != nil {
			return nil, fmt.Errorf("config seed %s: %w", cfg.ConfigSeed, err)
		}
		store, err := configstore.SeedMemStore(data)
		if err != nil {
			return nil, fmt.Errorf("config seed %s: %w", cfg.ConfigSeed, err)
		}
		logger.Info("configuration store seeded from file",
			zap.String("seed", cfg.ConfigSeed),
		)
		return store, nil
	}
	return configstore.NewFileStore(cfg.ConfigDir, logger)
}

func provideCache() *configcache.Cache {
	return configcache.New()
}

func provideSyncer(store configstore.Store, cache *configcache.Cache, logger *zap.Logger) *configcache.Syncer {
	return configcache.NewSyncer(store, cache, logger)
}

func provideEndpointRegistry(cfg *config.Config, cache *configcache.Cache, logger *zap.Logger) *registry.Registry {
	return registry.New(cfg.EndpointsPath(), cache, logger)
}

func provideEnumRegistry() *enum.Registry {
	return enum.NewRegistry()
}

func provideEnumClient(cfg *config.Config, logger *zap.Logger) *enum.Client {
	return enum.NewClient(cfg.EnumServiceURL, logger)
}

func provideRefresher(client *enum.Client, enums *enum.Registry, cache *configcache.Cache, cfg *config.Config, logger *zap.Logger) *enum.Refresher {
	return enum.NewRefresher(client, enums, cache, cfg.GlobalsPath(), logger)
}

func provideSchemaRegistry(cfg *config.Config, cache *configcache.Cache, enums *enum.Registry, logger *zap.Logger) *schema.Registry {
	return schema.NewRegistry(cfg.SchemasPath(), cache, enums, logger)
}

func provideCollector() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// provideTracerProvider returns a nil provider when no OTLP endpoint
// is configured; tracing is then disabled throughout.
func provideTracerProvider(cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, error) {
	if cfg.OTELEndpoint == "" {
		return nil, nil
	}
	tp, err := observability.InitTracing(cfg.Service, string(cfg.Environment), cfg.OTELEndpoint)
	if err != nil {
		return nil, err
	}
	logger.Info("tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
	return tp, nil
}

func provideTracer(tp *observability.TracerProvider) trace.Tracer {
	if tp == nil {
		return nil
	}
	return tp.Tracer()
}

func provideDocumentStore(ctx context.Context, cfg *config.Config, collector *observability.Collector, tracer trace.Tracer, logger *zap.Logger) (repository.DocumentStore, error) {
	var store repository.DocumentStore
	if strings.HasPrefix(cfg.MongoURI, "memory://") {
		logger.Warn("using in-memory document store; data will not survive a restart")
		store = memory.New()
	} else {
		mongoStore, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		store = mongoStore
	}
	return observability.InstrumentStore(store, collector, tracer), nil
}

func providePipeline(store repository.DocumentStore, schemas *schema.Registry, logger *zap.Logger) *write.Pipeline {
	return write.NewPipeline(store, schemas, logger)
}

func provideOrchestrator(store repository.DocumentStore, pipeline *write.Pipeline, schemas *schema.Registry, enums *enum.Registry, logger *zap.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(store, pipeline, schemas, enums, logger)
}

func provideGateway(endpoints *registry.Registry, orch *orchestrator.Orchestrator, cfg *config.Config, logger *zap.Logger) *handlers.Gateway {
	return handlers.NewGateway(endpoints, orch, cfg.APIPrefix, logger)
}

func provideRouter(gateway *handlers.Gateway, endpoints *registry.Registry, cache *configcache.Cache, collector *observability.Collector, tracer trace.Tracer, cfg *config.Config, logger *zap.Logger) http.Handler {
	return handlers.NewRouter(handlers.RouterConfig{
		Gateway:     gateway,
		Registry:    endpoints,
		Cache:       cache,
		Collector:   collector,
		Tracer:      tracer,
		GlobalsPath: cfg.GlobalsPath(),
		Env:         cfg.Env,
		APIPrefix:   cfg.APIPrefix,
		Logger:      logger,
	})
}
