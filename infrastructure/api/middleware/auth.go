package middleware

import (
	"crypto/subtle"
	"net/http"
)

// apiKeyHeader carries the caller's key.
const apiKeyHeader = "X-API-KEY"

// AuthConfig holds the API keys accepted by the server.
type AuthConfig struct {
	keys []string
}

// NewAuthConfigWithKeys creates an AuthConfig accepting the given keys.
// An empty key list disables authentication.
func NewAuthConfigWithKeys(keys []string) AuthConfig {
	return AuthConfig{keys: append([]string{}, keys...)}
}

// Enabled reports whether any keys are configured.
func (c AuthConfig) Enabled() bool { return len(c.keys) > 0 }

// Accepts reports whether the presented key matches a configured key.
func (c AuthConfig) Accepts(key string) bool {
	if key == "" {
		return false
	}
	for _, candidate := range c.keys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// WriteProtect returns a middleware that requires a valid API key on
// mutating methods. Reads stay open; with no keys configured everything
// passes through.
func WriteProtect(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled() || !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if !config.Accepts(r.Header.Get(apiKeyHeader)) {
				WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or missing API key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
