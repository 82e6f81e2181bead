package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ragchat-backend/internal/core"
	"ragchat-backend/internal/models"
)

// Config tunes the ingestion pipeline.
//
// ChunkSize:    maximum characters per chunk.
// ChunkOverlap: characters repeated between consecutive chunks.
// BatchSize:    chunks per embedding request.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// FileMeta carries the file-level metadata copied onto every chunk of one
// upload.
type FileMeta struct {
	FileID   string
	FileName string
	FileType string
	FileSize int
}

// Pipeline transforms one raw uploaded file into stored chunks through a
// fixed sequence of stages: convert, clean, split, embed, write.
type Pipeline struct {
	extractor core.DocumentExtractor
	embedder  core.EmbeddingProvider
	store     core.DocumentStore
	splitter  *Splitter
	batchSize int
}

func NewPipeline(extractor core.DocumentExtractor, embedder core.EmbeddingProvider, store core.DocumentStore, cfg *Config) *Pipeline {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 16
	}
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		splitter:  NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		batchSize: batch,
	}
}

// Ingest runs all stages for one upload and returns the persisted chunks.
// An unrecognized declared file type fails before any stage runs; a pipeline
// that yields no chunks fails with *core.IngestionError.
func (p *Pipeline) Ingest(ctx context.Context, content []byte, meta FileMeta) ([]models.Document, error) {
	if !p.extractor.Supports(meta.FileType) {
		return nil, &core.UnsupportedTypeError{FileType: meta.FileType}
	}

	text, err := p.extractor.Extract(ctx, content, meta.FileType)
	if err != nil {
		return nil, fmt.Errorf("convert %q: %w", meta.FileName, err)
	}

	pieces := p.splitter.Split(Clean(text))
	if len(pieces) == 0 {
		return nil, &core.IngestionError{FileName: meta.FileName, Reason: "no chunks produced"}
	}

	docs := make([]models.Document, len(pieces))
	for i, piece := range pieces {
		docs[i] = models.Document{
			ID:      uuid.NewString(),
			Content: piece.Text,
			Meta: map[string]any{
				models.MetaFileID:   meta.FileID,
				models.MetaFileName: meta.FileName,
				models.MetaFileType: meta.FileType,
				models.MetaFileSize: meta.FileSize,
				models.MetaPosition: i,
				models.MetaOverlap:  piece.Overlap,
			},
		}
	}

	if err := p.embedAll(ctx, docs); err != nil {
		return nil, fmt.Errorf("embed %q: %w", meta.FileName, err)
	}

	if err := p.store.WriteDocuments(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// embedAll computes embeddings for every chunk, batching requests and running
// the batches under one errgroup.
func (p *Pipeline) embedAll(ctx context.Context, docs []models.Document) error {
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(docs); start += p.batchSize {
		end := start + p.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Content
			}
			vecs, err := p.embedder.EmbedTexts(gctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			return nil
		})
	}
	return g.Wait()
}
