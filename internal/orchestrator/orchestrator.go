// Package orchestrator runs the top-level request flow: validate,
// execute, transform, respond. It never lets an error or panic escape
// upward; every path ends in a status code and a JSON-shaped body.
package orchestrator

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"datagate/internal/document"
	"datagate/internal/middleware"
	"datagate/internal/registry"
	"datagate/internal/repository"
	"datagate/internal/request"
	"datagate/internal/schema"
	"datagate/internal/write"
	"datagate/pkg/api"
	"datagate/pkg/errors"
)

// LiteralBindings resolves the enum bindings recorded for a schema.
type LiteralBindings interface {
	Bindings(name string) []schema.Binding
}

// Orchestrator executes parsed requests against the backend.
type Orchestrator struct {
	store    repository.DocumentStore
	pipeline *write.Pipeline
	schemas  LiteralBindings
	literals schema.LiteralSource
	logger   *zap.Logger
}

// New wires an orchestrator.
func New(store repository.DocumentStore, pipeline *write.Pipeline, schemas LiteralBindings, literals schema.LiteralSource, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		pipeline: pipeline,
		schemas:  schemas,
		literals: literals,
		logger:   logger,
	}
}

// Execute runs one parsed request and returns the HTTP status and
// body to render.
func (o *Orchestrator) Execute(ctx context.Context, parsed *request.Parsed, endpoint *registry.EndpointDescriptor) (status int, body any) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("panic in request execution",
				zap.Any("panic", rec),
				zap.String("endpoint", endpoint.Name),
			)
			status = http.StatusInternalServerError
			body = &api.ErrorResponse{Error: "internal server error"}
		}
	}()

	if parsed.Read != nil {
		return o.executeQuery(ctx, parsed, endpoint)
	}
	return o.executeWrite(ctx, parsed, endpoint)
}

func (o *Orchestrator) executeQuery(ctx context.Context, parsed *request.Parsed, endpoint *registry.EndpointDescriptor) (int, any) {
	if errs := parsed.Read.Validate(endpoint); len(errs) > 0 {
		return http.StatusBadRequest, &api.ErrorResponse{
			Error:   "filter validation failed",
			Details: errs,
		}
	}

	result, err := parsed.Read.Execute(ctx, o.store, endpoint)
	if err != nil {
		return o.renderError(err, endpoint)
	}
	o.transform(ctx, result, endpoint)
	return http.StatusOK, result
}

func (o *Orchestrator) executeWrite(ctx context.Context, parsed *request.Parsed, endpoint *registry.EndpointDescriptor) (int, any) {
	if errs := parsed.Write.Validate(endpoint); len(errs) > 0 {
		return http.StatusBadRequest, &api.ErrorResponse{
			Error:   "write validation failed",
			Details: errs,
		}
	}

	result, err := parsed.Write.Execute(ctx, o.pipeline, endpoint)
	if err != nil {
		return o.renderError(err, endpoint)
	}

	switch resp := result.(type) {
	case *api.CreateResponse:
		return http.StatusCreated, resp
	case *api.UpsertResponse:
		if resp.WasInserted {
			return http.StatusCreated, resp
		}
		return http.StatusOK, resp
	default:
		return http.StatusOK, result
	}
}

// transform applies the read-side post-processing: enum codes become
// display literals, audit timestamps take the requested rendering.
func (o *Orchestrator) transform(ctx context.Context, result any, endpoint *registry.EndpointDescriptor) {
	var docs []map[string]any
	switch resp := result.(type) {
	case *api.DocumentListResponse:
		docs = resp.Data
	case *api.SequenceResponse:
		docs = resp.Data
	default:
		return
	}

	var bindings []schema.Binding
	if endpoint.SchemaName != "" {
		bindings = o.schemas.Bindings(endpoint.SchemaName)
	}
	format := middleware.TimeFormatFrom(ctx)

	for _, doc := range docs {
		if len(bindings) > 0 {
			schema.ApplyLiterals(doc, bindings, o.literals)
		}
		document.RenderAudit(doc, format)
	}
}

func (o *Orchestrator) renderError(err error, endpoint *registry.EndpointDescriptor) (int, any) {
	status, body := RenderError(err)
	if status >= http.StatusInternalServerError {
		o.logger.Error("request execution failed",
			zap.String("endpoint", endpoint.Name),
			zap.Error(err),
		)
	} else {
		o.logger.Warn("request rejected",
			zap.String("endpoint", endpoint.Name),
			zap.Error(err),
		)
	}
	return status, body
}

// RenderError maps an error onto its HTTP status and body. 5xx bodies
// carry a single message, never internals.
func RenderError(err error) (int, *api.ErrorResponse) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		return status, &api.ErrorResponse{Error: errors.MessageOf(err)}
	}
	return status, &api.ErrorResponse{
		Error:   errors.MessageOf(err),
		Details: errors.DetailsOf(err),
	}
}

func statusOf(err error) int {
	switch errors.KindOf(err) {
	case errors.KindInvalidFilter,
		errors.KindFilterValidationFailed,
		errors.KindSchemaValidationFailed,
		errors.KindSubEntityConflict:
		return http.StatusBadRequest
	case errors.KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case errors.KindEndpointNotFound:
		return http.StatusNotFound
	case errors.KindEnvironmentMismatch:
		return http.StatusForbidden
	case errors.KindBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
