package middleware

import (
	"net/http"
)

// SessionChecker reports whether a bearer token is currently held.
type SessionChecker interface {
	IsValid() bool
}

// RequireSession sends requests without a session to loginPath.
func RequireSession(sessions SessionChecker, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessions.IsValid() {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
