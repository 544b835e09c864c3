package middleware

import (
	"net/http"

	"github.com/moteeees/library/backend/authz"
)

// Require gates a route group on authorization requirements. A deny
// ends the request before the handler runs.
func Require(reqs ...authz.Requirement) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if err := authz.Check(identity, reqs...); err != nil {
				if err == authz.ErrUnauthenticated {
					http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				} else {
					http.Error(w, `{"error":"permission denied"}`, http.StatusForbidden)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
