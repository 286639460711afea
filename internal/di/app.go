package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"datagate/internal/config"
	"datagate/internal/configcache"
	"datagate/internal/configstore"
	"datagate/internal/enum"
	"datagate/internal/observability"
	"datagate/internal/registry"
	"datagate/internal/repository"
	"datagate/internal/schema"
)

// App owns the assembled gateway and its lifecycle: the initial
// configuration sync, registry builds, the refresh loops, and the
// HTTP listener.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     configstore.Store
	syncer    *configcache.Syncer
	endpoints *registry.Registry
	schemas   *schema.Registry
	refresher *enum.Refresher
	docs      repository.DocumentStore
	collector *observability.Collector
	tracer    *observability.TracerProvider
	server    *http.Server
}

func provideApp(
	cfg *config.Config,
	logger *zap.Logger,
	store configstore.Store,
	syncer *configcache.Syncer,
	endpoints *registry.Registry,
	schemas *schema.Registry,
	refresher *enum.Refresher,
	docs repository.DocumentStore,
	collector *observability.Collector,
	tracer *observability.TracerProvider,
	handler http.Handler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		syncer:    syncer,
		endpoints: endpoints,
		schemas:   schemas,
		refresher: refresher,
		docs:      docs,
		collector: collector,
		tracer:    tracer,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start brings the gateway up: load the config tree, build the
// registries, hook rebuilds to subtree changes, start the enum loop,
// then serve. It blocks until the listener stops.
func (a *App) Start(ctx context.Context) error {
	root := "/" + a.cfg.Env

	if err := a.syncer.Initialize(ctx, root); err != nil {
		return fmt.Errorf("initial configuration load: %w", err)
	}
	if err := a.endpoints.Rebuild(); err != nil {
		return fmt.Errorf("endpoint registry build: %w", err)
	}
	if err := a.schemas.Rebuild(); err != nil {
		return fmt.Errorf("schema registry build: %w", err)
	}

	a.syncer.OnSubtree(a.cfg.EndpointsPath(), func() {
		err := a.endpoints.Rebuild()
		a.collector.ObserveRebuild("endpoints", err)
	})
	a.syncer.OnSubtree(a.cfg.SchemasPath(), func() {
		err := a.schemas.Rebuild()
		a.collector.ObserveRebuild("schemas", err)
	})
	if err := a.syncer.Start(ctx, root); err != nil {
		return fmt.Errorf("configuration watch: %w", err)
	}

	a.refresher.OnRefresh = a.collector.ObserveEnumRefresh
	if err := a.refresher.Initialize(ctx); err != nil {
		return err
	}
	a.refresher.Start(ctx)

	a.logger.Info("gateway listening",
		zap.String("addr", a.server.Addr),
		zap.String("env", a.cfg.Env),
		zap.String("service", a.cfg.Service),
		zap.Int("endpoints", len(a.endpoints.Snapshot())),
	)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains the listener and releases backends.
func (a *App) Shutdown(ctx context.Context) {
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("http server shutdown", zap.Error(err))
	}
	if err := a.docs.Close(ctx); err != nil {
		a.logger.Warn("document store close", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("config store close", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
