package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/moteeees/library/backend/middleware"
	"github.com/moteeees/library/backend/models"
	"github.com/moteeees/library/backend/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ManageStore is the slice of the store the management screens need.
type ManageStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ToggleUserRole(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UsersCount(ctx context.Context) (int64, error)
	AdminsCount(ctx context.Context) (int64, error)
	BooksCount(ctx context.Context) (int64, error)
	CartsCount(ctx context.Context) (int64, error)
	CartItemsCount(ctx context.Context) (int64, error)
}

type UsersHandler struct {
	DB ManageStore
}

type UserResponse struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func userToResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID.Hex(),
		Login:     u.Login,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// List returns all users (admin only). The password hash is omitted via
// json:"-".
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	users, err := h.DB.ListUsers(r.Context())
	if err != nil {
		http.Error(w, `{"error":"failed to list users"}`, http.StatusInternalServerError)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userToResponse(&users[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// Promote toggles the target between user and admin (admin only). An
// admin cannot change their own role, so there is always somebody left
// who did it.
func (h *UsersHandler) Promote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	identity := middleware.IdentityFromContext(r.Context())
	if identity != nil && identity.UserID == id {
		http.Error(w, `{"error":"cannot change your own role"}`, http.StatusForbidden)
		return
	}
	user, err := h.DB.ToggleUserRole(r.Context(), id)
	if err == store.ErrNotFound {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"failed to update role"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userToResponse(user))
}

type StatsResponse struct {
	Users     int64 `json:"users"`
	Admins    int64 `json:"admins"`
	Books     int64 `json:"books"`
	Carts     int64 `json:"carts"`
	CartItems int64 `json:"cartItems"`
}

// Stats returns usage counters for the admin panel.
func (h *UsersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var resp StatsResponse
	for _, count := range []struct {
		dst  *int64
		load func(context.Context) (int64, error)
	}{
		{&resp.Users, h.DB.UsersCount},
		{&resp.Admins, h.DB.AdminsCount},
		{&resp.Books, h.DB.BooksCount},
		{&resp.Carts, h.DB.CartsCount},
		{&resp.CartItems, h.DB.CartItemsCount},
	} {
		n, err := count.load(r.Context())
		if err != nil {
			http.Error(w, `{"error":"failed to load stats"}`, http.StatusInternalServerError)
			return
		}
		*count.dst = n
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
