package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"datagate/internal/configcache"
	"datagate/internal/configstore"
	"datagate/internal/document"
)

func okHandler(capture *http.Request) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			*capture = *r
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("Should prefer an incoming X-Request-ID", func(t *testing.T) {
		var seen http.Request
		handler := RequestID(okHandler(&seen))

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set(HeaderRequestID, "client-id")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, "client-id", w.Header().Get(HeaderRequestID))
		assert.Equal(t, "client-id", RequestIDFrom(seen.Context()))
	})

	t.Run("Should generate an id when none is provided", func(t *testing.T) {
		var seen http.Request
		handler := RequestID(okHandler(&seen))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		id := w.Header().Get(HeaderRequestID)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, RequestIDFrom(seen.Context()))
	})
}

func envCache(enabled bool) *configcache.Cache {
	cache := configcache.New()
	value := "false"
	if enabled {
		value = "true"
	}
	cache.Apply(configstore.Event{
		Type: configstore.NodeUpdated,
		Path: "/prod/Globals/IsEnvValidate",
		Data: []byte(value),
	})
	return cache
}

func TestEnvValidation(t *testing.T) {
	t.Run("Should reject a mismatching env header with the exact body", func(t *testing.T) {
		handler := EnvValidation(envCache(true), "/prod/Globals", "prod")(okHandler(nil))

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set(HeaderEnv, "staging")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"error":"Fatal attempt of a breach of environments."}`, w.Body.String())
		assert.Equal(t, "prod", w.Header().Get(HeaderEnv))
	})

	t.Run("Should accept a case-insensitive match", func(t *testing.T) {
		handler := EnvValidation(envCache(true), "/prod/Globals", "prod")(okHandler(nil))

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set(HeaderEnv, "PROD")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should pass everything through when validation is disabled", func(t *testing.T) {
		handler := EnvValidation(envCache(false), "/prod/Globals", "prod")(okHandler(nil))

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set(HeaderEnv, "staging")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "prod", w.Header().Get(HeaderEnv))
	})

	t.Run("Should default to disabled when the flag is absent", func(t *testing.T) {
		handler := EnvValidation(configcache.New(), "/prod/Globals", "prod")(okHandler(nil))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestTimeFormat(t *testing.T) {
	t.Run("Should bind and echo a known format", func(t *testing.T) {
		var seen http.Request
		handler := TimeFormat(okHandler(&seen))

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set(HeaderTimeFormat, "unix")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, "UNIX", w.Header().Get(HeaderTimeFormat))
		assert.Equal(t, document.FormatUnix, TimeFormatFrom(seen.Context()))
	})

	t.Run("Should fall back to the default for unknown formats", func(t *testing.T) {
		var seen http.Request
		handler := TimeFormat(okHandler(&seen))

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set(HeaderTimeFormat, "STARDATE")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, string(document.DefaultTimeFormat), w.Header().Get(HeaderTimeFormat))
		assert.Equal(t, document.DefaultTimeFormat, TimeFormatFrom(seen.Context()))
	})
}

func TestRecovery(t *testing.T) {
	handler := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTimeout(t *testing.T) {
	handler := Timeout(20*time.Millisecond, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
}
