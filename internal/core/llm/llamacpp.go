// Package llm provides completion and embedding providers: a llama.cpp
// server client and Gemini adapters.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ragchat-backend/internal/core"
	"ragchat-backend/internal/models"
)

var _ core.CompletionClient = (*LlamaClient)(nil)
var _ core.EmbeddingProvider = (*LlamaClient)(nil)

const (
	DefaultLlamaBaseURL = "http://localhost:8080"
	DefaultLlamaTimeout = 30 * time.Second
)

// LlamaClient talks to a llama.cpp server over HTTP. One fixed timeout per
// call, no retries, no streaming.
type LlamaClient struct {
	client  *http.Client
	baseURL string
}

func NewLlamaClient(baseURL string, timeout time.Duration) *LlamaClient {
	if baseURL == "" {
		baseURL = DefaultLlamaBaseURL
	}
	if timeout == 0 {
		timeout = DefaultLlamaTimeout
	}
	return &LlamaClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// completionRequest is the llama.cpp /completion request format.
type completionRequest struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop"`
	Stream      bool     `json:"stream"`
}

// completionResponse is the llama.cpp /completion response format.
type completionResponse struct {
	Content         string `json:"content"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
}

// Complete sends one prompt to POST {base}/completion and returns the
// assistant message. Any non-200 status or transport failure surfaces as a
// *core.CompletionError carrying the elapsed wall time.
func (c *LlamaClient) Complete(ctx context.Context, prompt string, opts core.CompletionOptions) (models.Message, error) {
	start := time.Now()

	if opts.MaxTokens <= 0 {
		opts.MaxTokens = core.DefaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = core.DefaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = core.DefaultTopP
	}
	if opts.Stop == nil {
		opts.Stop = []string{}
	}

	payload := completionRequest{
		Prompt:      prompt,
		NPredict:    opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
		Stream:      false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Message{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return models.Message{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Message{}, &core.CompletionError{Err: err, Elapsed: elapsedSeconds(start)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.Message{}, &core.CompletionError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			Elapsed:    elapsedSeconds(start),
		}
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Message{}, &core.CompletionError{Err: fmt.Errorf("decode response: %w", err), Elapsed: elapsedSeconds(start)}
	}

	return models.Message{
		Role:           models.RoleAssistant,
		Content:        strings.TrimSpace(result.Content),
		TokensUsed:     result.TokensPredicted + result.TokensEvaluated,
		ProcessingTime: elapsedSeconds(start),
	}, nil
}

// ChatComplete flattens the transcript into a single prompt and stops the
// model before it continues past its own turn.
func (c *LlamaClient) ChatComplete(ctx context.Context, msgs []models.Message) (models.Message, error) {
	opts := core.DefaultCompletionOptions()
	opts.Stop = []string{"User:", "System:"}
	return c.Complete(ctx, FlattenTranscript(msgs), opts)
}

// embeddingRequest is the llama.cpp /embedding request format.
type embeddingRequest struct {
	Content string `json:"content"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedTexts embeds each text with one POST {base}/embedding call, letting a
// single llama.cpp server cover both sides of the RAG loop.
func (c *LlamaClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		body, err := json.Marshal(embeddingRequest{Content: text})
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embedding", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("embedding server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}

		var result embeddingResponse
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		out = append(out, result.Embedding)
	}
	return out, nil
}

// FlattenTranscript serializes a chat transcript as "{Role}: {content}"
// paragraphs with a trailing "Assistant:" cue.
func FlattenTranscript(msgs []models.Message) string {
	parts := make([]string, 0, len(msgs)+1)
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleSystem:
			parts = append(parts, "System: "+msg.Content)
		case models.RoleAssistant:
			parts = append(parts, "Assistant: "+msg.Content)
		default:
			parts = append(parts, "User: "+msg.Content)
		}
	}
	parts = append(parts, "Assistant:")
	return strings.Join(parts, "\n\n")
}

func elapsedSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}
