package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/moteeees/library/backend/models"
	"github.com/moteeees/library/backend/store"
	"golang.org/x/oauth2"
)

const stateCookie = "oidc_state"

// OIDC wraps the identity provider (Keycloak) for the code flow and
// logout. Token exchange and verification are delegated to go-oidc.
type OIDC struct {
	verifier           *oidc.IDTokenVerifier
	oauth              oauth2.Config
	endSessionEndpoint string
	postLogoutRedirect string
}

func NewOIDC(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL, postLogoutRedirect string) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, err
	}
	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, err
	}
	return &OIDC{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		endSessionEndpoint: extra.EndSessionEndpoint,
		postLogoutRedirect: postLogoutRedirect,
	}, nil
}

// LogoutURL builds the provider end-session URL for a session that was
// established via OIDC.
func (o *OIDC) LogoutURL(idTokenHint string) string {
	q := url.Values{}
	q.Set("id_token_hint", idTokenHint)
	if o.postLogoutRedirect != "" {
		q.Set("post_logout_redirect_uri", o.postLogoutRedirect)
	}
	return o.endSessionEndpoint + "?" + q.Encode()
}

// OIDCLogin starts the code flow: a random state pinned in a cookie,
// then a redirect to the provider.
func (h *AuthHandler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.OIDC == nil {
		http.Error(w, `{"error":"oidc login not configured"}`, http.StatusNotFound)
		return
	}
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
	})
	http.Redirect(w, r, h.OIDC.oauth.AuthCodeURL(state), http.StatusFound)
}

// OIDCCallback finishes the code flow: verify state, exchange the code,
// verify the ID token, get-or-create the local user, and hand back a
// local token. The raw ID token is kept on the session so logout can
// pass it as id_token_hint.
func (h *AuthHandler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.OIDC == nil {
		http.Error(w, `{"error":"oidc login not configured"}`, http.StatusNotFound)
		return
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, `{"error":"state mismatch"}`, http.StatusBadRequest)
		return
	}
	token, err := h.OIDC.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, `{"error":"code exchange failed"}`, http.StatusUnauthorized)
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		http.Error(w, `{"error":"no id_token in response"}`, http.StatusUnauthorized)
		return
	}
	idToken, err := h.OIDC.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		http.Error(w, `{"error":"invalid id_token"}`, http.StatusUnauthorized)
		return
	}
	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, `{"error":"invalid id_token claims"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.ensureOIDCUser(r.Context(), idToken.Subject, claims.PreferredUsername, claims.Email)
	if err != nil {
		http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		return
	}
	local, err := h.issueToken(r.Context(), user, rawIDToken)
	if err != nil {
		http.Error(w, `{"error":"could not create token"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: local, Login: user.Login, Role: user.Role})
}

// ensureOIDCUser fetches the local user for a provider subject,
// creating one on first external login. A login collision with an
// existing local account falls back to the subject itself as login.
func (h *AuthHandler) ensureOIDCUser(ctx context.Context, subject, preferredUsername, email string) (*models.User, error) {
	user, err := h.DB.UserByOIDCSubject(ctx, subject)
	if err == nil {
		return user, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}
	login := preferredUsername
	if login == "" {
		login = email
	}
	if login == "" {
		login = subject
	}
	newUser := &models.User{
		Login:       login,
		Role:        models.RoleUser,
		OIDCSubject: subject,
		CreatedAt:   time.Now(),
	}
	id, err := h.DB.CreateUser(ctx, newUser)
	if err == store.ErrDuplicateLogin {
		newUser.Login = subject
		id, err = h.DB.CreateUser(ctx, newUser)
	}
	if err != nil {
		return nil, err
	}
	newUser.ID = id
	return newUser, nil
}
