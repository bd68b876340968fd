// Package middleware provides HTTP middleware functions.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int // Preflight cache duration in seconds
}

// CORS creates a middleware that handles CORS headers.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowAll := len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*"

	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Content-Type", "X-Requested-With"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 86400
	}

	methodsStr := strings.Join(cfg.AllowedMethods, ", ")
	headersStr := strings.Join(cfg.AllowedHeaders, ", ")
	maxAgeStr := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			w.Header().Add("Vary", "Origin")

			allowedOrigin := ""
			if origin != "" {
				if allowAll || originAllowed(cfg.AllowedOrigins, origin) {
					allowedOrigin = origin
				}
			}

			if allowedOrigin == "" && origin != "" {
				// Cross-origin request from a disallowed origin: answer
				// preflights with 403, pass everything else through bare.
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methodsStr)
				w.Header().Set("Access-Control-Allow-Headers", headersStr)
				w.Header().Set("Access-Control-Max-Age", maxAgeStr)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CheckOrigin returns a function for WebSocket origin checking.
func CheckOrigin(allowedOrigins []string) func(*http.Request) bool {
	allowAll := len(allowedOrigins) == 0 ||
		(len(allowedOrigins) == 1 && allowedOrigins[0] == "*")

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// No origin header (same-origin or non-browser client)
		if origin == "" {
			return true
		}
		if allowAll {
			return true
		}
		return originAllowed(allowedOrigins, origin)
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == origin {
			return true
		}
		if strings.Contains(a, "*") && matchWildcardOrigin(a, origin) {
			return true
		}
	}
	return false
}

// matchWildcardOrigin checks if origin matches a pattern with a subdomain
// wildcard, e.g. "https://*.example.com" matches "https://app.example.com"
// but not "https://example.com".
func matchWildcardOrigin(pattern, origin string) bool {
	patternParts := strings.SplitN(pattern, "://", 2)
	originParts := strings.SplitN(origin, "://", 2)
	if len(patternParts) != 2 || len(originParts) != 2 {
		return false
	}
	if patternParts[0] != originParts[0] {
		return false
	}

	patternHost := patternParts[1]
	originHost := originParts[1]
	if idx := strings.Index(patternHost, ":"); idx != -1 {
		patternHost = patternHost[:idx]
	}
	if idx := strings.Index(originHost, ":"); idx != -1 {
		originHost = originHost[:idx]
	}

	if strings.HasPrefix(patternHost, "*.") {
		suffix := patternHost[1:] // ".example.com"
		return strings.HasSuffix(originHost, suffix) && len(originHost) > len(suffix)
	}
	return false
}
