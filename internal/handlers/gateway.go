// Package handlers exposes the gateway over HTTP: one dispatcher that
// resolves every request under the API prefix against the endpoint
// registry, plus the operational endpoints.
package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"datagate/internal/middleware"
	"datagate/internal/orchestrator"
	"datagate/internal/registry"
	"datagate/internal/request"
	"datagate/pkg/api"
	"datagate/pkg/errors"
)

// Gateway dispatches dynamic API requests. It resolves the endpoint
// descriptor once per request and uses that same descriptor through
// the request's whole lifetime.
type Gateway struct {
	registry     *registry.Registry
	orchestrator *orchestrator.Orchestrator
	apiPrefix    string
	logger       *zap.Logger
}

// NewGateway creates the dispatcher.
func NewGateway(reg *registry.Registry, orch *orchestrator.Orchestrator, apiPrefix string, logger *zap.Logger) *Gateway {
	return &Gateway{
		registry:     reg,
		orchestrator: orch,
		apiPrefix:    strings.TrimSuffix(apiPrefix, "/"),
		logger:       logger,
	}
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	relative := strings.TrimPrefix(r.URL.Path, g.apiPrefix)
	if relative == "" {
		relative = "/"
	}

	endpoint, ok := g.registry.Find(relative, r.Method)
	if !ok {
		status, body := orchestrator.RenderError(errors.New(errors.KindEndpointNotFound,
			"no endpoint registered for "+strings.ToUpper(r.Method)+" "+relative))
		api.Success(w, status, body)
		return
	}

	requestID := middleware.RequestIDFrom(r.Context())
	g.logger.Debug("request dispatched",
		zap.String("endpoint", endpoint.Name),
		zap.String("requestId", requestID),
	)

	parsed, err := request.Parse(r, endpoint, requestID)
	if err != nil {
		status, body := orchestrator.RenderError(err)
		api.Success(w, status, body)
		return
	}

	status, body := g.orchestrator.Execute(r.Context(), parsed, endpoint)
	api.Success(w, status, body)
}
