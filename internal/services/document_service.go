package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ragchat-backend/internal/core"
	"ragchat-backend/internal/core/ingestion_engine"
	"ragchat-backend/internal/core/retrieval"
	"ragchat-backend/internal/models"
)

// DocumentService is the facade over the document store, the ingestion
// pipeline and the retrieval pipeline.
type DocumentService struct {
	store     core.DocumentStore
	pipeline  *ingestion_engine.Pipeline
	retriever *retrieval.Retriever

	// Uploads and deletes serialize per file_id so concurrent sessions
	// cannot interleave partial writes for the same file.
	mu        sync.Mutex
	fileLocks map[string]*sync.Mutex
}

func NewDocumentService(store core.DocumentStore, pipeline *ingestion_engine.Pipeline, retriever *retrieval.Retriever) *DocumentService {
	return &DocumentService{
		store:     store,
		pipeline:  pipeline,
		retriever: retriever,
		fileLocks: make(map[string]*sync.Mutex),
	}
}

func (s *DocumentService) fileLock(fileID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.fileLocks[fileID]
	if !ok {
		lock = &sync.Mutex{}
		s.fileLocks[fileID] = lock
	}
	return lock
}

// ListFiles groups all stored chunks by file_id, one record per group.
// Chunks without a file_id are skipped from the grouped view.
func (s *DocumentService) ListFiles(ctx context.Context) ([]models.FileRecord, error) {
	docs, err := s.store.FilterDocuments(ctx, nil)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*models.FileRecord)
	var order []string
	for _, doc := range docs {
		fileID := doc.MetaString(models.MetaFileID)
		if fileID == "" {
			continue
		}
		rec, ok := groups[fileID]
		if !ok {
			rec = &models.FileRecord{
				FileID:   fileID,
				FileName: doc.MetaString(models.MetaFileName),
				FileType: doc.MetaString(models.MetaFileType),
				FileSize: doc.MetaInt(models.MetaFileSize),
			}
			groups[fileID] = rec
			order = append(order, fileID)
		}
		rec.DocCount++
	}

	out := make([]models.FileRecord, 0, len(order))
	for _, id := range order {
		out = append(out, *groups[id])
	}
	return out, nil
}

// UploadMeta describes an incoming file.
type UploadMeta struct {
	FileName string
	FileType string
}

// Upload assigns a fresh file_id, runs the ingestion pipeline and returns
// the enriched record on success.
func (s *DocumentService) Upload(ctx context.Context, content []byte, meta UploadMeta) (models.FileRecord, error) {
	fileID := uuid.NewString()

	lock := s.fileLock(fileID)
	lock.Lock()
	defer lock.Unlock()

	docs, err := s.pipeline.Ingest(ctx, content, ingestion_engine.FileMeta{
		FileID:   fileID,
		FileName: meta.FileName,
		FileType: meta.FileType,
		FileSize: len(content),
	})
	if err != nil {
		return models.FileRecord{}, err
	}

	return models.FileRecord{
		FileID:   fileID,
		FileName: meta.FileName,
		FileType: meta.FileType,
		FileSize: len(content),
		DocCount: len(docs),
	}, nil
}

// Delete removes every chunk belonging to the file. An unknown file_id is a
// no-op, not an error.
func (s *DocumentService) Delete(ctx context.Context, fileID string) error {
	lock := s.fileLock(fileID)
	lock.Lock()
	defer lock.Unlock()

	docs, err := s.store.FilterDocuments(ctx, &core.Filter{Field: models.MetaFileID, Value: fileID})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	return s.store.DeleteDocuments(ctx, ids)
}

// GetContent reassembles the file text from its chunks, sorted by stored
// position and with the recorded overlap stripped from each chunk after the
// first. found is false for an unknown file_id.
func (s *DocumentService) GetContent(ctx context.Context, fileID string) (content string, found bool, err error) {
	docs, err := s.store.FilterDocuments(ctx, &core.Filter{Field: models.MetaFileID, Value: fileID})
	if err != nil {
		return "", false, err
	}
	if len(docs) == 0 {
		return "", false, nil
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].MetaInt(models.MetaPosition) < docs[j].MetaInt(models.MetaPosition)
	})

	var b strings.Builder
	for i, doc := range docs {
		text := doc.Content
		if i > 0 {
			if overlap := doc.MetaInt(models.MetaOverlap); overlap > 0 && overlap <= len(text) {
				text = text[overlap:]
			}
		}
		b.WriteString(text)
	}
	return b.String(), true, nil
}

// Search delegates to the retrieval pipeline.
func (s *DocumentService) Search(ctx context.Context, query string, topK int) ([]core.SearchResult, error) {
	return s.retriever.Search(ctx, query, topK)
}

// Bootstrap ingests every regular file directly under dir once at startup,
// deriving the file type from the extension. A missing directory is created
// and yields an empty result. Files of unsupported types are skipped rather
// than failing startup.
func (s *DocumentService) Bootstrap(ctx context.Context, dir string) ([]models.FileRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create documents dir: %w", err)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	var out []models.FileRecord
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}

		rec, err := s.Upload(ctx, content, UploadMeta{FileName: name, FileType: fileType})
		if err != nil {
			log.Printf("bootstrap: skipping %q: %v", name, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
