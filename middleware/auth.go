package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/moteeees/library/backend/authz"
	"github.com/moteeees/library/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const identityKey contextKey = "identity"

type Claims struct {
	UserID    string `json:"userId"`
	Login     string `json:"login"`
	Role      string `json:"role"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// SessionStore is the slice of the store the middleware needs to check
// that a token's session has not been logged out.
type SessionStore interface {
	SessionByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error)
}

// Auth parses the bearer token, verifies that its session still exists
// (logout deletes the session, revoking outstanding tokens), and loads
// the caller's identity into the request context.
func Auth(jwtSecret string, sessions SessionStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, `{"error":"invalid authorization format"}`, http.StatusUnauthorized)
				return
			}
			token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(t *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			claims, ok := token.Claims.(*Claims)
			if !ok {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				http.Error(w, `{"error":"invalid user id"}`, http.StatusUnauthorized)
				return
			}
			sessionID, err := primitive.ObjectIDFromHex(claims.SessionID)
			if err != nil {
				http.Error(w, `{"error":"invalid session id"}`, http.StatusUnauthorized)
				return
			}
			if _, err := sessions.SessionByID(r.Context(), sessionID); err != nil {
				http.Error(w, `{"error":"session expired"}`, http.StatusUnauthorized)
				return
			}
			identity := &authz.Identity{
				UserID:    userID,
				Login:     claims.Login,
				Role:      claims.Role,
				SessionID: sessionID,
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated identity, or nil for an
// anonymous request.
func IdentityFromContext(ctx context.Context) *authz.Identity {
	id, _ := ctx.Value(identityKey).(*authz.Identity)
	return id
}
