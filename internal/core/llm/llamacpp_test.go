package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat-backend/internal/core"
	"ragchat-backend/internal/models"
)

func TestLlamaClient_Complete(t *testing.T) {
	var gotReq completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/completion", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(completionResponse{
			Content:         "  The answer is 42.  ",
			TokensPredicted: 12,
			TokensEvaluated: 30,
		})
	}))
	defer srv.Close()

	c := NewLlamaClient(srv.URL, 0)
	msg, err := c.Complete(context.Background(), "what is the answer?", core.DefaultCompletionOptions())
	require.NoError(t, err)

	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.Equal(t, "The answer is 42.", msg.Content)
	assert.Equal(t, 42, msg.TokensUsed)
	assert.Greater(t, msg.ProcessingTime, 0.0)

	assert.Equal(t, "what is the answer?", gotReq.Prompt)
	assert.Equal(t, 500, gotReq.NPredict)
	assert.InDelta(t, 0.7, gotReq.Temperature, 1e-9)
	assert.InDelta(t, 0.9, gotReq.TopP, 1e-9)
	assert.False(t, gotReq.Stream)
	assert.NotNil(t, gotReq.Stop)
}

func TestLlamaClient_CompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewLlamaClient(srv.URL, 0)
	_, err := c.Complete(context.Background(), "hi", core.CompletionOptions{})

	var ce *core.CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusInternalServerError, ce.StatusCode)
	assert.Contains(t, ce.Body, "model exploded")
	assert.Greater(t, ce.Elapsed, 0.0)
	assert.Contains(t, ce.Error(), "500")
}

func TestLlamaClient_CompleteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	c := NewLlamaClient(srv.URL, 0)
	_, err := c.Complete(context.Background(), "hi", core.CompletionOptions{})

	var ce *core.CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Zero(t, ce.StatusCode)
	assert.Error(t, ce.Err)
}

func TestLlamaClient_ChatComplete(t *testing.T) {
	var gotReq completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(completionResponse{Content: "Hello!"})
	}))
	defer srv.Close()

	c := NewLlamaClient(srv.URL, 0)
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "Be brief."},
		{Role: models.RoleUser, Content: "Say hello."},
	}
	msg, err := c.ChatComplete(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", msg.Content)

	assert.Equal(t, "System: Be brief.\n\nUser: Say hello.\n\nAssistant:", gotReq.Prompt)
	assert.Equal(t, []string{"User:", "System:"}, gotReq.Stop)
}

func TestLlamaClient_EmbedTexts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embedding", r.URL.Path)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float32{float32(len(req.Content)), 0}})
	}))
	defer srv.Close()

	c := NewLlamaClient(srv.URL, 0)
	vecs, err := c.EmbedTexts(context.Background(), []string{"ab", "abcd"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{2, 0}, vecs[0])
	assert.Equal(t, []float32{4, 0}, vecs[1])
}

func TestFlattenTranscript(t *testing.T) {
	out := FlattenTranscript([]models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, "User: hi\n\nAssistant: hello\n\nAssistant:", out)
}
