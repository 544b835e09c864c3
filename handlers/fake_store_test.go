package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moteeees/library/backend/models"
	"github.com/moteeees/library/backend/service"
	"github.com/moteeees/library/backend/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeDB is an in-memory stand-in for *store.DB. It mirrors the
// storage-level guarantees the real store gets from unique indexes:
// one user per login, one cart per user, one item per (cart, book),
// quantity merged as max(1, existing+delta), book ids max+1.
type fakeDB struct {
	mu       sync.Mutex
	users    []*models.User
	sessions map[primitive.ObjectID]*models.Session
	books    []*models.Book
	carts    []*models.Cart
	items    []*models.CartItem
}

func newFakeDB() *fakeDB {
	return &fakeDB{sessions: make(map[primitive.ObjectID]*models.Session)}
}

func (f *fakeDB) CreateUser(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == user.Login {
			return primitive.NilObjectID, store.ErrDuplicateLogin
		}
	}
	cp := *user
	cp.ID = primitive.NewObjectID()
	f.users = append(f.users, &cp)
	return cp.ID, nil
}

func (f *fakeDB) UserByLogin(_ context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDB) UserByOIDCSubject(_ context.Context, subject string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.OIDCSubject != "" && u.OIDCSubject == subject {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDB) ListUsers(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeDB) ToggleUserRole(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			if u.Role == models.RoleAdmin {
				u.Role = models.RoleUser
			} else {
				u.Role = models.RoleAdmin
			}
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDB) UsersCount(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

func (f *fakeDB) AdminsCount(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.Role == models.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) CreateSession(_ context.Context, session *models.Session) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	cp.ID = primitive.NewObjectID()
	f.sessions[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeDB) SessionByID(_ context.Context, id primitive.ObjectID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeDB) DeleteSession(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeDB) CreateBook(_ context.Context, book *models.Book) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	maxID := 0
	for _, b := range f.books {
		if b.ID > maxID {
			maxID = b.ID
		}
	}
	book.ID = maxID + 1
	cp := *book
	f.books = append(f.books, &cp)
	return cp.ID, nil
}

func (f *fakeDB) AllBooks(_ context.Context) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Book, 0, len(f.books))
	for _, b := range f.books {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeDB) BookByID(_ context.Context, id int) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDB) BooksByIDs(_ context.Context, ids []int) (map[int]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]models.Book, len(ids))
	for _, id := range ids {
		for _, b := range f.books {
			if b.ID == id {
				out[id] = *b
			}
		}
	}
	return out, nil
}

func (f *fakeDB) UpdateBook(_ context.Context, id int, book *models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.books {
		if b.ID == id {
			cp := *book
			cp.ID = id
			f.books[i] = &cp
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeDB) DeleteBook(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.books[:0]
	for _, b := range f.books {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	f.books = kept
	return nil
}

func (f *fakeDB) BooksCount(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.books)), nil
}

func (f *fakeDB) CartForUser(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	cart := &models.Cart{ID: primitive.NewObjectID(), UserID: userID, CreatedAt: time.Now()}
	f.carts = append(f.carts, cart)
	cp := *cart
	return &cp, nil
}

func (f *fakeDB) CartByID(_ context.Context, id primitive.ObjectID) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDB) UpsertCartItem(_ context.Context, cartID primitive.ObjectID, bookID, delta int) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.CartID == cartID && it.BookID == bookID {
			it.Quantity += delta
			if it.Quantity < 1 {
				it.Quantity = 1
			}
			cp := *it
			return &cp, nil
		}
	}
	item := &models.CartItem{
		ID:       primitive.NewObjectID(),
		CartID:   cartID,
		BookID:   bookID,
		Quantity: delta,
		AddedAt:  time.Now(),
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	f.items = append(f.items, item)
	cp := *item
	return &cp, nil
}

func (f *fakeDB) CartItemByID(_ context.Context, id primitive.ObjectID) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID == id {
			cp := *it
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDB) ItemsInCart(_ context.Context, cartID primitive.ObjectID) ([]models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CartItem
	for _, it := range f.items {
		if it.CartID == cartID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (f *fakeDB) DeleteCartItem(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeDB) CartsCount(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.carts)), nil
}

func (f *fakeDB) CartItemsCount(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), nil
}

// fakeBlob is an in-memory stand-in for *service.BlobStore. It keys
// objects the same way (generated name plus sanitized extension) and
// records deletions.
type fakeBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (f *fakeBlob) Put(_ context.Context, originalFilename string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := "covers/" + uuid.New().String() + service.SafeExt(originalFilename)
	f.objects[key] = data
	return key, nil
}

func (f *fakeBlob) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("no such object: " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), "image/png", nil
}

func (f *fakeBlob) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// keys returns the stored object keys, for assertions.
func (f *fakeBlob) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	return out
}
