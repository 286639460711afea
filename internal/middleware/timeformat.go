package middleware

import (
	"net/http"

	"datagate/internal/document"
)

// HeaderTimeFormat selects the audit timestamp rendering.
const HeaderTimeFormat = "X-Time-Format"

// TimeFormat resolves the requested audit time format and echoes the
// effective one. Unknown values fall back to the default silently.
func TimeFormat(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := document.ParseTimeFormat(r.Header.Get(HeaderTimeFormat))
		w.Header().Set(HeaderTimeFormat, string(format))
		next.ServeHTTP(w, r.WithContext(WithTimeFormat(r.Context(), format)))
	})
}
