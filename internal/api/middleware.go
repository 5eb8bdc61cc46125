package api

import (
	"net/http"
	"strings"

	"github.com/astlabs/run-portal/internal/auth"
)

// PageGate redirects unauthenticated page requests to the login page.
// The login page itself, API routes, and static assets pass through.
func PageGate(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if openPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if !gate.Authenticated(r) {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func openPath(path string) bool {
	return path == "/" ||
		path == "/favicon.ico" ||
		strings.HasPrefix(path, "/api/") ||
		strings.HasPrefix(path, "/static/")
}

// RequireSession rejects API requests without a valid session cookie.
func RequireSession(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Authenticated(r) {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
