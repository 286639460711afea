package observability

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Middleware records request metrics and opens a server span per
// request. The endpoint label is the request path; the registry keeps
// the path set closed, so cardinality stays bounded.
func Middleware(collector *Collector, tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := r.Context()
			var span trace.Span
			if tracer != nil {
				ctx, span = tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path),
					trace.WithSpanKind(trace.SpanKindServer),
					trace.WithAttributes(
						attribute.String("http.method", r.Method),
						attribute.String("http.target", r.URL.Path),
					),
				)
				defer span.End()
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))

			if span != nil {
				span.SetAttributes(attribute.Int("http.status_code", recorder.statusCode))
				if recorder.statusCode >= 500 {
					span.SetStatus(codes.Error, http.StatusText(recorder.statusCode))
				}
			}
			if collector != nil {
				collector.ObserveRequest(r.Method, r.URL.Path, recorder.statusCode, time.Since(start))
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.statusCode = code
	s.ResponseWriter.WriteHeader(code)
}
