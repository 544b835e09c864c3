package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/moteeees/library/backend/middleware"
	"github.com/moteeees/library/backend/models"
	"github.com/moteeees/library/backend/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// IdentityStore is the slice of the store the auth handler needs.
// *store.DB satisfies it; tests use an in-memory fake.
type IdentityStore interface {
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	UserByLogin(ctx context.Context, login string) (*models.User, error)
	UserByOIDCSubject(ctx context.Context, subject string) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) (primitive.ObjectID, error)
	SessionByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error)
	DeleteSession(ctx context.Context, id primitive.ObjectID) error
}

type AuthHandler struct {
	DB        IdentityStore
	JWTSecret string
	OIDC      *OIDC // nil when no identity provider is configured
}

type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	ID    string `json:"id"`
	Login string `json:"login"`
	Role  string `json:"role"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Login string `json:"login"`
	Role  string `json:"role"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		http.Error(w, `{"error":"login and password required"}`, http.StatusBadRequest)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, `{"error":"failed to register"}`, http.StatusInternalServerError)
		return
	}
	user := &models.User{
		Login:     req.Login,
		Password:  string(hash),
		Role:      models.RoleUser,
		CreatedAt: time.Now(),
	}
	id, err := h.DB.CreateUser(r.Context(), user)
	if err == store.ErrDuplicateLogin {
		http.Error(w, `{"error":"login already taken"}`, http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"failed to register"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(RegisterResponse{ID: id.Hex(), Login: user.Login, Role: user.Role})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, `{"error":"login and password required"}`, http.StatusBadRequest)
		return
	}
	// One generic message for unknown login and wrong password, so a
	// caller cannot enumerate accounts.
	user, err := h.DB.UserByLogin(r.Context(), req.Login)
	if err == store.ErrNotFound {
		http.Error(w, `{"error":"invalid login or password"}`, http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		return
	}
	if user.Password == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		http.Error(w, `{"error":"invalid login or password"}`, http.StatusUnauthorized)
		return
	}
	token, err := h.issueToken(r.Context(), user, "")
	if err != nil {
		http.Error(w, `{"error":"could not create token"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token, Login: user.Login, Role: user.Role})
}

// Logout ends the session. When the session was established through the
// identity provider, the client is redirected to the provider's
// end-session endpoint (id_token_hint + post_logout_redirect_uri) so
// the external session dies with the local one.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return
	}
	session, err := h.DB.SessionByID(r.Context(), identity.SessionID)
	if err != nil {
		http.Error(w, `{"error":"session expired"}`, http.StatusUnauthorized)
		return
	}
	if err := h.DB.DeleteSession(r.Context(), session.ID); err != nil {
		http.Error(w, `{"error":"logout failed"}`, http.StatusInternalServerError)
		return
	}
	if session.ExternalIDToken != "" && h.OIDC != nil {
		http.Redirect(w, r, h.OIDC.LogoutURL(session.ExternalIDToken), http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// issueToken records a session and signs a JWT bound to it. Both local
// and OIDC logins go through here; externalIDToken is empty for local.
func (h *AuthHandler) issueToken(ctx context.Context, user *models.User, externalIDToken string) (string, error) {
	sessionID, err := h.DB.CreateSession(ctx, &models.Session{
		UserID:          user.ID,
		ExternalIDToken: externalIDToken,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		return "", err
	}
	claims := &middleware.Claims{
		UserID:    user.ID.Hex(),
		Login:     user.Login,
		Role:      user.Role,
		SessionID: sessionID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour * 7)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}
