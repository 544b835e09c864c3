package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/moteeees/library/backend/service"
)

type UploadHandler struct {
	Blob     CoverStore
	MaxBytes int64
}

type UploadResponse struct {
	Filename string `json:"filename"`
}

// Upload stores a standalone image and returns the generated object
// key. The key, not the client filename, is what callers put in a
// book's cover reference.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Blob == nil {
		http.Error(w, `{"error":"upload not configured (missing S3)"}`, http.StatusServiceUnavailable)
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, `{"error":"failed to parse multipart form"}`, http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"missing file"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if service.SafeExt(header.Filename) == "" && !strings.HasPrefix(contentType, "image/") {
		http.Error(w, `{"error":"only images are allowed"}`, http.StatusBadRequest)
		return
	}
	key, err := h.Blob.Put(r.Context(), header.Filename, file, contentType)
	if err != nil {
		http.Error(w, `{"error":"failed to save image"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(UploadResponse{Filename: key})
}
