package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// HeaderRequestID is the correlation header.
const HeaderRequestID = "X-Request-ID"

// RequestID binds a correlation id to every request: an incoming
// X-Request-ID wins, then the active trace id, then a fresh UUIDv7.
// The chosen id is always echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			if span := trace.SpanContextFromContext(r.Context()); span.HasTraceID() {
				id = span.TraceID().String()
			}
		}
		if id == "" {
			id = newRequestID()
		}

		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
