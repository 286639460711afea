package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"datagate/internal/configcache"
	"datagate/internal/middleware"
	"datagate/internal/observability"
	"datagate/internal/registry"
	"datagate/pkg/api"
)

// RouterConfig carries everything the router assembly needs.
type RouterConfig struct {
	Gateway     *Gateway
	Registry    *registry.Registry
	Cache       *configcache.Cache
	Collector   *observability.Collector
	Tracer      trace.Tracer
	GlobalsPath string
	Env         string
	APIPrefix   string
	Logger      *zap.Logger
}

// NewRouter assembles the HTTP surface: operational endpoints at the
// root, the dynamic gateway under the API prefix, and the middleware
// chain around it.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(observability.Middleware(cfg.Collector, cfg.Tracer))
	r.Use(middleware.EnvValidation(cfg.Cache, cfg.GlobalsPath, cfg.Env))
	r.Use(middleware.TimeFormat)
	r.Use(middleware.Timeout(60*time.Second, cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if len(cfg.Registry.Snapshot()) == 0 {
			api.Error(w, http.StatusServiceUnavailable, "endpoint registry not loaded")
			return
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if cfg.Collector != nil {
		r.Handle("/metrics", cfg.Collector.Handler())
	}

	// Only the dynamic routes run behind the breaker; operational
	// endpoints must answer even when the backend is failing.
	breaker := middleware.CircuitBreaker(
		middleware.DefaultCircuitBreakerConfig("gateway"), cfg.Logger)
	gateway := breaker(cfg.Gateway)
	r.Handle(cfg.APIPrefix+"/*", gateway)
	r.Handle(cfg.APIPrefix, gateway)

	return r
}
