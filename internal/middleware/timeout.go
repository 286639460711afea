package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"datagate/pkg/api"
)

// Timeout bounds each request with a deadline. The pipeline honours
// cancellation at its next backend call; here we make sure the client
// gets a response instead of a hung connection.
func Timeout(timeout time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			r = r.WithContext(ctx)

			done := make(chan struct{})
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						logger.Error("panic in timed handler",
							zap.Any("panic", rec),
							zap.String("requestId", RequestIDFrom(ctx)),
						)
					}
					close(done)
				}()
				next.ServeHTTP(w, r)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				logger.Warn("request timed out",
					zap.String("requestId", RequestIDFrom(ctx)),
					zap.String("path", r.URL.Path),
				)
				if w.Header().Get("Content-Type") == "" {
					api.Error(w, http.StatusRequestTimeout, "request timeout")
				}
			}
		})
	}
}
