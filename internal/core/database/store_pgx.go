package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"ragchat-backend/internal/core"
	"ragchat-backend/internal/models"
)

var _ core.DocumentStore = (*Store)(nil)

// Store is a pgvector-backed core.DocumentStore. Chunk metadata lives in a
// jsonb column so equality filters work on any metadata field; nearest
// neighbors are ordered by cosine distance.
type Store struct {
	db       *sql.DB
	embedDim int
}

// NewStore opens the pool, pings it and bootstraps the schema once.
func NewStore(ctx context.Context, databaseURL string, embedDim int) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if embedDim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", embedDim)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, embedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Store{db: db, embedDim: embedDim}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) FilterDocuments(ctx context.Context, filter *core.Filter) ([]models.Document, error) {
	q := `SELECT id, content, meta, embedding FROM documents`
	var args []any
	switch {
	case filter == nil:
	case filter.Field == "id":
		q += ` WHERE id = $1`
		args = append(args, fmt.Sprint(filter.Value))
	default:
		q += ` WHERE meta->>$1 = $2`
		args = append(args, filter.Field, fmt.Sprint(filter.Value))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &core.StorageError{Op: "filter", Err: err}
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, &core.StorageError{Op: "filter", Err: err}
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "filter", Err: err}
	}
	return out, nil
}

func (s *Store) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `DELETE FROM documents WHERE id = ANY($1)`
	if _, err := s.db.ExecContext(ctx, q, ids); err != nil {
		return &core.StorageError{Op: "delete", Err: err}
	}
	return nil
}

func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, &core.StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// WriteDocuments inserts chunks in a single transaction so one upload either
// lands completely or not at all.
func (s *Store) WriteDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for i := range docs {
		if len(docs[i].Embedding) != s.embedDim {
			return &core.StorageError{
				Op:  "write",
				Err: fmt.Errorf("chunk %s: embedding has %d dimensions, want %d", docs[i].ID, len(docs[i].Embedding), s.embedDim),
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return &core.StorageError{Op: "write", Err: err}
	}

	const q = `
		INSERT INTO documents (id, content, meta, embedding)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return &core.StorageError{Op: "write", Err: err}
	}
	defer stmt.Close()

	for i := range docs {
		doc := &docs[i]
		meta, err := json.Marshal(doc.Meta)
		if err != nil {
			_ = tx.Rollback()
			return &core.StorageError{Op: "write", Err: fmt.Errorf("marshal meta for %s: %w", doc.ID, err)}
		}
		vec := pgvector.NewVector(doc.Embedding)
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.Content, meta, vec); err != nil {
			_ = tx.Rollback()
			return &core.StorageError{Op: "write", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &core.StorageError{Op: "write", Err: err}
	}
	return nil
}

// SearchByVector orders by cosine distance; the reported score is 1-distance
// clamped into [0,1].
func (s *Store) SearchByVector(ctx context.Context, vec []float32, topK int) ([]core.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	const q = `
		SELECT id, content, meta, embedding, embedding <=> $1 AS distance
		FROM documents
		ORDER BY distance
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, &core.StorageError{Op: "search", Err: err}
	}
	defer rows.Close()

	var out []core.SearchResult
	for rows.Next() {
		var (
			doc      models.Document
			metaJSON []byte
			emb      pgvector.Vector
			distance float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metaJSON, &emb, &distance); err != nil {
			return nil, &core.StorageError{Op: "search", Err: err}
		}
		if err := json.Unmarshal(metaJSON, &doc.Meta); err != nil {
			return nil, &core.StorageError{Op: "search", Err: err}
		}
		doc.Embedding = emb.Slice()
		out = append(out, core.SearchResult{Document: doc, Score: clampScore(1 - distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "search", Err: err}
	}
	return out, nil
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (models.Document, error) {
	var (
		doc      models.Document
		metaJSON []byte
		emb      pgvector.Vector
	)
	if err := row.Scan(&doc.ID, &doc.Content, &metaJSON, &emb); err != nil {
		return models.Document{}, err
	}
	if err := json.Unmarshal(metaJSON, &doc.Meta); err != nil {
		return models.Document{}, err
	}
	doc.Embedding = emb.Slice()
	return doc, nil
}
