package app

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat-backend/internal/config"
	"ragchat-backend/internal/core"
	"ragchat-backend/internal/core/ingestion_engine"
	"ragchat-backend/internal/core/memstore"
	"ragchat-backend/internal/core/retrieval"
	"ragchat-backend/internal/models"
	"ragchat-backend/internal/services"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New32a()
		h.Write([]byte(text))
		theta := float64(h.Sum32()%360) * math.Pi / 180
		out[i] = []float32{float32(math.Cos(theta)), float32(math.Sin(theta))}
	}
	return out, nil
}

type stubCompleter struct{}

func (stubCompleter) Complete(context.Context, string, core.CompletionOptions) (models.Message, error) {
	return models.Message{Role: models.RoleAssistant, Content: "stub"}, nil
}

func (stubCompleter) ChatComplete(context.Context, []models.Message) (models.Message, error) {
	return models.Message{Role: models.RoleAssistant, Content: "stub"}, nil
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{Port: "0", JWTSecret: "test-secret"}

	store := memstore.New(2)
	pipeline := ingestion_engine.NewPipeline(
		ingestion_engine.NewDocconvExtractor(),
		stubEmbedder{},
		store,
		&ingestion_engine.Config{ChunkSize: 200, ChunkOverlap: 20},
	)
	docs := services.NewDocumentService(store, pipeline, retrieval.NewRetriever(stubEmbedder{}, store))
	chat := services.NewChatService(docs, stubCompleter{})

	return NewServer(cfg, docs, chat).httpServer.Handler
}

func uploadFile(t *testing.T, h http.Handler, name, content string) models.FileRecord {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out models.FileRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_Health(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_DocumentLifecycle(t *testing.T) {
	h := newTestHandler(t)

	rec := uploadFile(t, h, "notes.txt", "chunk one\n\nchunk two")
	assert.Equal(t, "notes.txt", rec.FileName)
	assert.Equal(t, "txt", rec.FileType)
	assert.Greater(t, rec.DocCount, 0)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var files []models.FileRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	require.Len(t, files, 1)
	assert.Equal(t, rec.FileID, files[0].FileID)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/"+rec.FileID+"/content", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var content map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &content))
	assert.Equal(t, "chunk one\n\nchunk two", content["content"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/documents/"+rec.FileID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/"+rec.FileID+"/content", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_UploadUnsupportedType(t *testing.T) {
	h := newTestHandler(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "image.png")
	require.NoError(t, err)
	part.Write([]byte{0x89, 0x50})
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestServer_DocumentSearch(t *testing.T) {
	h := newTestHandler(t)
	uploadFile(t, h, "facts.txt", "the sky is blue")

	body, _ := json.Marshal(map[string]any{"query": "the sky is blue", "top_k": 1})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []core.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "the sky is blue", results[0].Document.Content)
}

func TestServer_ChatRequiresToken(t *testing.T) {
	h := newTestHandler(t)

	body, _ := json.Marshal(map[string]string{"query": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ChatFlow(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sess map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess["token"])
	require.NotEmpty(t, sess["session_id"])

	body, _ := json.Marshal(map[string]string{"query": "hello there"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/query", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+sess["token"])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var msg models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.Equal(t, "stub", msg.Content)

	req = httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	req.Header.Set("Authorization", "Bearer "+sess["token"])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 3)
	assert.Equal(t, models.RoleSystem, history[0].Role)
	assert.Equal(t, "hello there", history[1].Content)
	assert.Equal(t, "stub", history[2].Content)
}

func TestServer_ChatQueryValidation(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	var sess map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))

	body, _ := json.Marshal(map[string]string{"query": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/query", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+sess["token"])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
