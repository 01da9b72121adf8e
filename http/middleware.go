package http

import (
	"net/http"
)

// RequireSession creates middleware that rejects requests without a valid
// session. Applied to route groups, not per handler, so the protected
// surface is visible in one place.
func RequireSession(auth Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil || !auth.IsAuthorized(r) {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize creates middleware that caps the request body at limit
// bytes. Oversized multipart uploads then fail during form parsing.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}

			next.ServeHTTP(w, r)
		})
	}
}
