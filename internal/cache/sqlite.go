package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"payrollrag/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_cache (
	key        TEXT PRIMARY KEY,
	chunks     BLOB NOT NULL,
	embeddings BLOB NOT NULL,
	model      TEXT NOT NULL,
	created_at INTEGER NOT NULL
)`

// SQLiteStore keeps entries in a single cache.db under dir. Both artifacts
// of an entry are written in one transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) dir/cache.db.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	dbPath := filepath.Join(dir, "cache.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	var rawChunks, rawEmb []byte
	var model string
	err := s.db.QueryRowContext(ctx,
		`SELECT chunks, embeddings, model FROM index_cache WHERE key = ?`, key,
	).Scan(&rawChunks, &rawEmb, &model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("query cache entry: %w", err)
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(rawChunks, &chunks); err != nil {
		return nil, fmt.Errorf("%w: chunks: %v", domain.ErrCacheCorrupt, err)
	}
	emb, err := decodeEmbeddings(rawEmb)
	if err != nil {
		return nil, err
	}
	return &Entry{Chunks: chunks, Embeddings: emb, Model: model}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, e *Entry) error {
	rawChunks, err := json.Marshal(e.Chunks)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	rawEmb, err := encodeEmbeddings(e.Embeddings)
	if err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	_, err = tx.ExecContext(ctx, `
		INSERT INTO index_cache (key, chunks, embeddings, model, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			chunks = excluded.chunks,
			embeddings = excluded.embeddings,
			model = excluded.model,
			created_at = excluded.created_at`,
		key, rawChunks, rawEmb, e.Model, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }
