package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/moteeees/library/backend/authz"
	"github.com/moteeees/library/backend/middleware"
	"github.com/moteeees/library/backend/models"
	"github.com/moteeees/library/backend/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartStore is the slice of the store the cart handler needs.
type CartStore interface {
	BookByID(ctx context.Context, id int) (*models.Book, error)
	BooksByIDs(ctx context.Context, ids []int) (map[int]models.Book, error)
	CartForUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	CartByID(ctx context.Context, id primitive.ObjectID) (*models.Cart, error)
	UpsertCartItem(ctx context.Context, cartID primitive.ObjectID, bookID, delta int) (*models.CartItem, error)
	CartItemByID(ctx context.Context, id primitive.ObjectID) (*models.CartItem, error)
	ItemsInCart(ctx context.Context, cartID primitive.ObjectID) ([]models.CartItem, error)
	DeleteCartItem(ctx context.Context, id primitive.ObjectID) error
}

type CartHandler struct {
	DB CartStore
}

// CartItemView is one cart row joined with its book, rendered in the
// requested language.
type CartItemView struct {
	ID       string   `json:"id"`
	Quantity int      `json:"quantity"`
	AddedAt  string   `json:"addedAt"`
	Book     BookView `json:"book"`
}

// Add puts a book in the caller's cart. Repeated adds of the same book
// merge into the existing row's quantity.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := middleware.IdentityFromContext(r.Context())
	if err := authz.Check(identity, authz.Authenticated); err != nil {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return
	}
	bookID, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	qty := 1
	if q := r.URL.Query().Get("qty"); q != "" {
		qty, err = strconv.Atoi(q)
		if err != nil {
			http.Error(w, `{"error":"qty must be an integer"}`, http.StatusBadRequest)
			return
		}
	}
	if _, err := h.DB.BookByID(r.Context(), bookID); err == store.ErrNotFound {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, `{"error":"failed to add to cart"}`, http.StatusInternalServerError)
		return
	}
	cart, err := h.DB.CartForUser(r.Context(), identity.UserID)
	if err != nil {
		http.Error(w, `{"error":"failed to add to cart"}`, http.StatusInternalServerError)
		return
	}
	item, err := h.DB.UpsertCartItem(r.Context(), cart.ID, bookID, qty)
	if err != nil {
		http.Error(w, `{"error":"failed to add to cart"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// Remove deletes one item from the caller's cart. Removing somebody
// else's item is Forbidden; removing an already-removed item is a 404.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := middleware.IdentityFromContext(r.Context())
	if err := authz.Check(identity, authz.Authenticated); err != nil {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return
	}
	itemID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "itemID"))
	if err != nil {
		http.Error(w, `{"error":"invalid item id"}`, http.StatusBadRequest)
		return
	}
	item, err := h.DB.CartItemByID(r.Context(), itemID)
	if err == store.ErrNotFound {
		http.Error(w, `{"error":"item not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"failed to remove item"}`, http.StatusInternalServerError)
		return
	}
	cart, err := h.DB.CartByID(r.Context(), item.CartID)
	if err != nil {
		http.Error(w, `{"error":"failed to remove item"}`, http.StatusInternalServerError)
		return
	}
	if err := authz.Check(identity, authz.Owner(cart.UserID)); err != nil {
		http.Error(w, `{"error":"permission denied"}`, http.StatusForbidden)
		return
	}
	if err := h.DB.DeleteCartItem(r.Context(), itemID); err == store.ErrNotFound {
		http.Error(w, `{"error":"item not found"}`, http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, `{"error":"failed to remove item"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List returns the caller's cart items joined with book detail,
// creating the cart on first view.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := middleware.IdentityFromContext(r.Context())
	if err := authz.Check(identity, authz.Authenticated); err != nil {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return
	}
	lang := langParam(r)
	cart, err := h.DB.CartForUser(r.Context(), identity.UserID)
	if err != nil {
		http.Error(w, `{"error":"failed to load cart"}`, http.StatusInternalServerError)
		return
	}
	items, err := h.DB.ItemsInCart(r.Context(), cart.ID)
	if err != nil {
		http.Error(w, `{"error":"failed to load cart"}`, http.StatusInternalServerError)
		return
	}
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.BookID)
	}
	books, err := h.DB.BooksByIDs(r.Context(), ids)
	if err != nil {
		http.Error(w, `{"error":"failed to load cart"}`, http.StatusInternalServerError)
		return
	}
	out := make([]CartItemView, 0, len(items))
	for _, it := range items {
		book := books[it.BookID]
		out = append(out, CartItemView{
			ID:       it.ID.Hex(),
			Quantity: it.Quantity,
			AddedAt:  it.AddedAt.UTC().Format(time.RFC3339),
			Book:     bookView(&book, lang),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
