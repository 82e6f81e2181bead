package llm

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ragchat-backend/internal/core"
	"ragchat-backend/internal/models"
)

var _ core.CompletionClient = (*GeminiClient)(nil)

// GeminiClient is an alternative completion provider backed by the Gemini
// API, selectable via LLM_PROVIDER.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiClient{client: cl, modelName: modelName}, nil
}

func (g *GeminiClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiClient) Complete(ctx context.Context, prompt string, opts core.CompletionOptions) (models.Message, error) {
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

	m := g.client.GenerativeModel(g.modelName)
	m.SetMaxOutputTokens(int32(opts.MaxTokens))
	m.SetTemperature(float32(opts.Temperature))
	m.SetTopP(float32(opts.TopP))
	m.StopSequences = opts.Stop

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return models.Message{}, &core.CompletionError{Err: err, Elapsed: elapsedSeconds(start)}
	}

	var b strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}

	msg := models.Message{
		Role:           models.RoleAssistant,
		Content:        strings.TrimSpace(b.String()),
		ProcessingTime: elapsedSeconds(start),
	}
	if resp.UsageMetadata != nil {
		msg.TokensUsed = int(resp.UsageMetadata.PromptTokenCount) + int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return msg, nil
}

func (g *GeminiClient) ChatComplete(ctx context.Context, msgs []models.Message) (models.Message, error) {
	opts := core.DefaultCompletionOptions()
	opts.Stop = []string{"User:", "System:"}
	return g.Complete(ctx, FlattenTranscript(msgs), opts)
}
