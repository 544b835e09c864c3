package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/moteeees/library/backend/models"
	"github.com/moteeees/library/backend/service"
	"github.com/moteeees/library/backend/store"
)

// CatalogStore is the slice of the store the books handler needs.
type CatalogStore interface {
	CreateBook(ctx context.Context, book *models.Book) (int, error)
	AllBooks(ctx context.Context) ([]models.Book, error)
	BookByID(ctx context.Context, id int) (*models.Book, error)
	UpdateBook(ctx context.Context, id int, book *models.Book) error
	DeleteBook(ctx context.Context, id int) error
}

// CoverStore is the slice of the blob store the handlers need. Satisfied
// by *service.BlobStore.
type CoverStore interface {
	Put(ctx context.Context, originalFilename string, body io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

type BooksHandler struct {
	DB         CatalogStore
	Blob       CoverStore
	Translator service.Translator
	MaxBytes   int64
}

// BookView is a book rendered in one language.
type BookView struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Year        int    `json:"year"`
	Publisher   string `json:"publisher"`
	Description string `json:"description,omitempty"`
	CoverURL    string `json:"coverUrl,omitempty"`
}

func bookView(b *models.Book, lang string) BookView {
	v := BookView{
		ID:          b.ID,
		Title:       b.Title.In(lang),
		Author:      b.Author.In(lang),
		Year:        b.Year,
		Publisher:   b.Publisher,
		Description: b.Description.In(lang),
	}
	if b.CoverKey != "" {
		v.CoverURL = "/api/books/" + strconv.Itoa(b.ID) + "/cover"
	}
	return v
}

func langParam(r *http.Request) string {
	return models.NormalizeLang(r.URL.Query().Get("lang"))
}

func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	lang := langParam(r)
	books, err := h.DB.AllBooks(r.Context())
	if err != nil {
		http.Error(w, `{"error":"failed to list books"}`, http.StatusInternalServerError)
		return
	}
	out := make([]BookView, 0, len(books))
	for i := range books {
		out = append(out, bookView(&books[i], lang))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	book, err := h.DB.BookByID(r.Context(), id)
	if err == store.ErrNotFound {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"failed to load book"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookView(book, langParam(r)))
}

// parseBookForm validates the multipart book form. The returned message
// names the offending field; an empty message means the form is valid.
func parseBookForm(r *http.Request) (title, author, publisher, description string, year int, msg string) {
	title = strings.TrimSpace(r.FormValue("title"))
	author = strings.TrimSpace(r.FormValue("author"))
	publisher = strings.TrimSpace(r.FormValue("publisher"))
	description = strings.TrimSpace(r.FormValue("description"))
	yearStr := strings.TrimSpace(r.FormValue("year"))

	switch {
	case title == "":
		msg = "title is required"
	case author == "":
		msg = "author is required"
	case publisher == "":
		msg = "publisher is required"
	case yearStr == "":
		msg = "year is required"
	}
	if msg != "" {
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 0 {
		msg = "year must be a non-negative integer"
	}
	return
}

// saveCover stores an uploaded cover image, when one was sent. Returns
// the blob key, or "" when the form had no cover.
func (h *BooksHandler) saveCover(r *http.Request) (string, int, string) {
	file, header, err := r.FormFile("cover")
	if err == http.ErrMissingFile {
		return "", 0, ""
	}
	if err != nil {
		return "", http.StatusBadRequest, `{"error":"invalid cover upload"}`
	}
	defer file.Close()
	if h.Blob == nil {
		return "", http.StatusServiceUnavailable, `{"error":"upload not configured (missing S3)"}`
	}
	contentType := header.Header.Get("Content-Type")
	if service.SafeExt(header.Filename) == "" && !strings.HasPrefix(contentType, "image/") {
		return "", http.StatusBadRequest, `{"error":"cover must be an image"}`
	}
	key, err := h.Blob.Put(r.Context(), header.Filename, file, contentType)
	if err != nil {
		return "", http.StatusInternalServerError, `{"error":"failed to save image"}`
	}
	return key, 0, ""
}

// Create adds a book. The text fields are stored verbatim in the
// submitted language and localized into the others at write time, so
// reads never wait on the translation service.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, `{"error":"failed to parse form"}`, http.StatusBadRequest)
		return
	}
	title, author, publisher, description, year, msg := parseBookForm(r)
	if msg != "" {
		http.Error(w, `{"error":"`+msg+`"}`, http.StatusBadRequest)
		return
	}
	lang := models.NormalizeLang(r.FormValue("lang"))

	coverKey, status, errBody := h.saveCover(r)
	if errBody != "" {
		http.Error(w, errBody, status)
		return
	}

	book := &models.Book{
		Title:     service.LocalizeAll(r.Context(), h.Translator, title, lang),
		Author:    service.LocalizeAll(r.Context(), h.Translator, author, lang),
		Year:      year,
		Publisher: publisher,
		CoverKey:  coverKey,
		CreatedAt: time.Now(),
	}
	if description != "" {
		book.Description = service.LocalizeAll(r.Context(), h.Translator, description, lang)
	}
	if _, err := h.DB.CreateBook(r.Context(), book); err != nil {
		http.Error(w, `{"error":"failed to create book"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(bookView(book, lang))
}

// Update edits a book with the same form as Create; text fields are
// re-localized from the submitted language. The existing cover is kept
// unless a new one is sent.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	existing, err := h.DB.BookByID(r.Context(), id)
	if err == store.ErrNotFound {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"failed to load book"}`, http.StatusInternalServerError)
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, `{"error":"failed to parse form"}`, http.StatusBadRequest)
		return
	}
	title, author, publisher, description, year, msg := parseBookForm(r)
	if msg != "" {
		http.Error(w, `{"error":"`+msg+`"}`, http.StatusBadRequest)
		return
	}
	lang := models.NormalizeLang(r.FormValue("lang"))

	newCover, status, errBody := h.saveCover(r)
	if errBody != "" {
		http.Error(w, errBody, status)
		return
	}
	coverKey := newCover
	if coverKey == "" {
		coverKey = existing.CoverKey
	}

	book := &models.Book{
		ID:        id,
		Title:     service.LocalizeAll(r.Context(), h.Translator, title, lang),
		Author:    service.LocalizeAll(r.Context(), h.Translator, author, lang),
		Year:      year,
		Publisher: publisher,
		CoverKey:  coverKey,
		CreatedAt: existing.CreatedAt,
	}
	if description != "" {
		book.Description = service.LocalizeAll(r.Context(), h.Translator, description, lang)
	}
	if err := h.DB.UpdateBook(r.Context(), id, book); err == store.ErrNotFound {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, `{"error":"failed to update book"}`, http.StatusInternalServerError)
		return
	}
	// Best effort: the book already points at the new cover.
	if newCover != "" && existing.CoverKey != "" && existing.CoverKey != newCover && h.Blob != nil {
		_ = h.Blob.Delete(r.Context(), existing.CoverKey)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookView(book, lang))
}

// Delete removes a book. Deleting an absent id is a no-op success.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	book, err := h.DB.BookByID(r.Context(), id)
	if err != nil && err != store.ErrNotFound {
		http.Error(w, `{"error":"failed to load book"}`, http.StatusInternalServerError)
		return
	}
	if err := h.DB.DeleteBook(r.Context(), id); err != nil {
		http.Error(w, `{"error":"failed to delete book"}`, http.StatusInternalServerError)
		return
	}
	// Best effort: the catalog row is already gone.
	if book != nil && book.CoverKey != "" && h.Blob != nil {
		_ = h.Blob.Delete(r.Context(), book.CoverKey)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cover streams the book's cover image from the blob store. Public so
// img src works without a token.
func (h *BooksHandler) Cover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return
	}
	book, err := h.DB.BookByID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	if book.CoverKey == "" || h.Blob == nil {
		http.Error(w, `{"error":"no cover"}`, http.StatusNotFound)
		return
	}
	body, contentType, err := h.Blob.Get(r.Context(), book.CoverKey)
	if err != nil {
		http.Error(w, `{"error":"failed to load cover"}`, http.StatusInternalServerError)
		return
	}
	defer body.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	io.Copy(w, body)
}
