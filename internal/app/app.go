package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"ragchat-backend/internal/config"
	"ragchat-backend/internal/core"
	"ragchat-backend/internal/core/database"
	"ragchat-backend/internal/core/ingestion_engine"
	"ragchat-backend/internal/core/llm"
	"ragchat-backend/internal/core/memstore"
	"ragchat-backend/internal/core/retrieval"
	"ragchat-backend/internal/services"
)

// App holds the wired service graph. All dependencies are constructed here
// and injected; nothing is a process-wide singleton.
type App struct {
	Store     core.DocumentStore
	Documents *services.DocumentService
	Chat      *services.ChatService
	Server    *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := newStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Document store (%s) initialized and ready.", cfg.VectorStore)

	embedder, err := newEmbedder(appCtx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	completer, err := newCompleter(appCtx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("couldn't initialize the completion client: %w", err)
	}

	pipeline := ingestion_engine.NewPipeline(
		ingestion_engine.NewDocconvExtractor(),
		embedder,
		store,
		&ingestion_engine.Config{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
			BatchSize:    cfg.EmbedBatchSize,
		},
	)
	retriever := retrieval.NewRetriever(embedder, store)

	docService := services.NewDocumentService(store, pipeline, retriever)
	chatService := services.NewChatService(docService, completer)

	if records, err := docService.Bootstrap(appCtx, cfg.DocumentsDir); err != nil {
		log.Printf("bootstrap from %q failed: %v", cfg.DocumentsDir, err)
	} else if len(records) > 0 {
		log.Printf("bootstrap: ingested %d file(s) from %q", len(records), cfg.DocumentsDir)
	}

	server := NewServer(cfg, docService, chatService)

	return &App{Store: store, Documents: docService, Chat: chatService, Server: server}, nil
}

func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
}

func newStore(ctx context.Context, cfg *config.Config) (core.DocumentStore, error) {
	switch cfg.VectorStore {
	case "pgvector":
		return database.NewStore(ctx, cfg.DatabaseURL, cfg.EmbedDim)
	case "memory":
		return memstore.New(cfg.EmbedDim), nil
	}
	return nil, fmt.Errorf("unknown VECTOR_STORE %q", cfg.VectorStore)
}

func newEmbedder(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	switch cfg.EmbedProvider {
	case "gemini":
		return llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
	case "llamacpp":
		return llm.NewLlamaClient(cfg.LLMBaseURL, 0), nil
	}
	return nil, fmt.Errorf("unknown EMBED_PROVIDER %q", cfg.EmbedProvider)
}

func newCompleter(ctx context.Context, cfg *config.Config) (core.CompletionClient, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return llm.NewGeminiClient(ctx, cfg.AIAPIKey, cfg.GenModel)
	case "llamacpp":
		return llm.NewLlamaClient(cfg.LLMBaseURL, 0), nil
	}
	return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
}
