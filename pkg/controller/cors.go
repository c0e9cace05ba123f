package controller

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	"multiapi/pkg/logger"
	"multiapi/pkg/metrics"
)

const (
	corsAllowHeaders = "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, " +
		TrustHeader
	corsAllowMethods = "POST, GET, OPTIONS"
)

// CORSOptions configures WithCORS.
type CORSOptions struct {
	// AllowedOrigins may call every route with credentials.
	AllowedOrigins []string
	// OpenPaths answer any origin with a wildcard.
	OpenPaths []string
}

// WithCORS returns a middleware enforcing the origin allow-list.
//
// Requests without an Origin header are not cross-origin browser requests and
// pass untouched. Paths listed in OpenPaths answer every origin with "*".
// Other origins must be allow-listed; unknown ones get 403 before reaching
// the handler. OPTIONS preflights are answered with 204 No Content.
func WithCORS(opts CORSOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case slices.Contains(opts.OpenPaths, r.URL.Path):
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin == "":
				next.ServeHTTP(w, r)

				return
			case OriginAllowed(opts.AllowedOrigins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			default:
				metrics.CORSRejected.Inc()
				logger.Warn(r.Context(), "origin not allowed by CORS", zap.String("origin", origin))
				writeDenied(w, "Not allowed by CORS", "CORS_REJECTED")

				return
			}

			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)

			// handle preflight requests quickly
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
