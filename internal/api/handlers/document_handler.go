package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"ragchat-backend/internal/core"
	"ragchat-backend/internal/services"
)

type DocumentHandler struct {
	docs *services.DocumentService
}

func NewDocumentHandler(docs *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// List returns one record per uploaded file.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.docs.ListFiles(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

// Upload ingests one multipart file.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read file", http.StatusBadRequest)
		return
	}

	fileName := filepath.Base(header.Filename)
	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))

	rec, err := h.docs.Upload(r.Context(), content, services.UploadMeta{
		FileName: fileName,
		FileType: fileType,
	})
	if err != nil {
		writeUploadError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// Delete removes every chunk of the file; deleting an unknown file_id
// succeeds.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "file_id")
	if err := h.docs.Delete(r.Context(), fileID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Content reassembles and returns the file's text.
func (h *DocumentHandler) Content(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "file_id")
	content, found, err := h.docs.GetContent(r.Context(), fileID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, fmt.Sprintf("file not found: %s", fileID), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"file_id": fileID,
		"content": content,
	})
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Search runs a similarity search over all stored chunks.
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	results, err := h.docs.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []core.SearchResult{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

func writeUploadError(w http.ResponseWriter, err error) {
	var unsupported *core.UnsupportedTypeError
	var ingestion *core.IngestionError
	switch {
	case errors.As(err, &unsupported):
		http.Error(w, unsupported.Error(), http.StatusUnsupportedMediaType)
	case errors.As(err, &ingestion):
		http.Error(w, ingestion.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("upload failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
