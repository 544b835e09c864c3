package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/moteeees/library/backend/authz"
	"github.com/moteeees/library/backend/middleware"
	"github.com/moteeees/library/backend/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	_ IdentityStore           = (*fakeDB)(nil)
	_ CatalogStore            = (*fakeDB)(nil)
	_ CartStore               = (*fakeDB)(nil)
	_ ManageStore             = (*fakeDB)(nil)
	_ middleware.SessionStore = (*fakeDB)(nil)
	_ CoverStore              = (*fakeBlob)(nil)
)

const testSecret = "test-secret"

// newRouter wires the handlers into a router shaped like the one in
// main.go, backed by the in-memory store.
func newRouter(db *fakeDB, blob CoverStore) http.Handler {
	authHandler := &AuthHandler{DB: db, JWTSecret: testSecret}
	booksHandler := &BooksHandler{DB: db, Blob: blob, MaxBytes: 1 << 20}
	cartHandler := &CartHandler{DB: db}
	usersHandler := &UsersHandler{DB: db}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/books", booksHandler.List)
		r.Get("/books/{id}", booksHandler.Get)
		r.Get("/books/{id}/cover", booksHandler.Cover)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(testSecret, db))
			r.Post("/auth/logout", authHandler.Logout)
			r.Post("/cart/add/{bookID}", cartHandler.Add)
			r.Post("/cart/remove/{itemID}", cartHandler.Remove)
			r.Get("/cart", cartHandler.List)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Require(authz.Staff))
				r.Post("/books", booksHandler.Create)
				r.Put("/books/{id}", booksHandler.Update)
				r.Delete("/books/{id}", booksHandler.Delete)
				r.Get("/manage/users", usersHandler.List)
				r.Post("/manage/users/{id}/promote", usersHandler.Promote)
				r.Get("/manage/stats", usersHandler.Stats)
			})
		})
	})
	return r
}

func newTestEnv() (*fakeDB, http.Handler) {
	db := newFakeDB()
	return db, newRouter(db, nil)
}

// newBlobEnv is newTestEnv plus an in-memory blob store, for the
// cover-upload paths.
func newBlobEnv() (*fakeDB, *fakeBlob, http.Handler) {
	db := newFakeDB()
	blob := newFakeBlob()
	return db, blob, newRouter(db, blob)
}

// newAuthOnlyRouter exposes just the logout route behind the auth
// middleware, for tests that build their own AuthHandler.
func newAuthOnlyRouter(authHandler *AuthHandler, db *fakeDB) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(testSecret, db))
			r.Post("/auth/logout", authHandler.Logout)
		})
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// doForm sends a multipart form, the way the book screens submit.
func doForm(t *testing.T, h http.Handler, method, path, token string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// doFormFile is doForm plus a single file part.
func doFormFile(t *testing.T, h http.Handler, method, path, token string, fields map[string]string, fileField, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(fileField, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, h http.Handler, login, password string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "",
		LoginRequest{Login: login, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func loginUser(t *testing.T, h http.Handler, login, password string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Login: login, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// seedAdmin plants an admin account directly in the store, the way
// EnsureSeedData does at boot.
func seedAdmin(t *testing.T, db *fakeDB, login, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = db.CreateUser(context.Background(), &models.User{
		Login:     login,
		Password:  string(hash),
		Role:      models.RoleAdmin,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}

// addBook creates a catalog book via the admin endpoint and returns its id.
func addBook(t *testing.T, h http.Handler, token, title string) int {
	t.Helper()
	rec := doForm(t, h, http.MethodPost, "/api/books", token, map[string]string{
		"title":     title,
		"author":    "A",
		"year":      "2000",
		"publisher": "P",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view BookView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view.ID
}
