package middleware

import (
	"net/http"
	"strings"

	"datagate/internal/configcache"
	"datagate/pkg/api"
)

// HeaderEnv carries the caller's claimed environment.
const HeaderEnv = "env"

// envBreachMessage is the exact body mandated for a mismatch.
const envBreachMessage = "Fatal attempt of a breach of environments."

// leafIsEnvValidate is the Globals flag switching validation on.
const leafIsEnvValidate = "IsEnvValidate"

// EnvValidation rejects requests whose env header does not match the
// configured environment. The configured environment is always set on
// the response, whether validation is enabled or not.
func EnvValidation(cache *configcache.Cache, globalsPath, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(HeaderEnv, env)

			if cache.GetBool(globalsPath+"/"+leafIsEnvValidate, false) {
				claimed := r.Header.Get(HeaderEnv)
				if !strings.EqualFold(claimed, env) {
					api.Error(w, http.StatusForbidden, envBreachMessage)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
