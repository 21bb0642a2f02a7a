// Package cache persists the chunks and embeddings built for a dataset so
// that a restart on unchanged data skips the embedding model entirely.
//
// Entries are content addressed: the key is derived from the dataset bytes
// and the embedder identity, so any edit to the file or a model change
// lands on a new key and old entries are simply never read again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"payrollrag/internal/domain"
)

// Entry is one persisted index: Embeddings[i] belongs to Chunks[i].
type Entry struct {
	Chunks     []domain.Chunk
	Embeddings [][]float64
	Model      string
}

// Store persists entries by key. Get returns domain.ErrCacheMiss when no
// entry exists and an error wrapping domain.ErrCacheCorrupt when one exists
// but cannot be decoded.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, e *Entry) error
	Close() error
}

// Key combines the dataset content hash with a short hash of the embedder
// identity.
func Key(datasetHash, embedder string) string {
	h := sha256.Sum256([]byte(embedder))
	return datasetHash + "-" + hex.EncodeToString(h[:])[:12]
}

// NopStore never hits and never persists.
type NopStore struct{}

func (NopStore) Get(context.Context, string) (*Entry, error) { return nil, domain.ErrCacheMiss }
func (NopStore) Put(context.Context, string, *Entry) error { return nil }
func (NopStore) Close() error { return nil }
