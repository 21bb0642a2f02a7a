package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"payrollrag/internal/domain"
)

const (
	chunksFile     = "chunks.json"
	embeddingsFile = "embeddings.bin"
	modelFile      = "model.txt"
)

// FileStore keeps one directory per key under dir. An entry is written into
// a temporary directory and renamed into place, so readers only ever see
// complete entries.
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the cache root.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Get(ctx context.Context, key string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entryDir := filepath.Join(s.dir, key)
	if _, err := os.Stat(entryDir); errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrCacheMiss
	}
	rawChunks, err := os.ReadFile(filepath.Join(entryDir, chunksFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}
	rawEmb, err := os.ReadFile(filepath.Join(entryDir, embeddingsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(rawChunks, &chunks); err != nil {
		return nil, fmt.Errorf("%w: chunks: %v", domain.ErrCacheCorrupt, err)
	}
	emb, err := decodeEmbeddings(rawEmb)
	if err != nil {
		return nil, err
	}
	model, _ := os.ReadFile(filepath.Join(entryDir, modelFile))
	return &Entry{Chunks: chunks, Embeddings: emb, Model: string(model)}, nil
}

func (s *FileStore) Put(ctx context.Context, key string, e *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	final := filepath.Join(s.dir, key)
	if _, err := s.Get(ctx, key); err == nil {
		return nil
	}
	rawChunks, err := json.Marshal(e.Chunks)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	rawEmb, err := encodeEmbeddings(e.Embeddings)
	if err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}

	tmp, err := os.MkdirTemp(s.dir, ".tmp-"+key+"-")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	defer os.RemoveAll(tmp)
	files := []struct {
		name string
		data []byte
	}{
		{chunksFile, rawChunks},
		{embeddingsFile, rawEmb},
		{modelFile, []byte(e.Model)},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(tmp, f.name), f.data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	// A corrupt entry under the same key is replaced.
	if err := os.RemoveAll(final); err != nil {
		return fmt.Errorf("remove stale entry: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		// Another process finished the same entry first.
		if _, statErr := os.Stat(final); statErr == nil {
			return nil
		}
		return fmt.Errorf("rename temp entry: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
