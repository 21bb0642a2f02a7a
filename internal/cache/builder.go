package cache

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"payrollrag/internal/chunker"
	"payrollrag/internal/config"
	"payrollrag/internal/dataset"
	"payrollrag/internal/domain"
	"payrollrag/internal/embedding"
	"payrollrag/internal/logger"
)

// Open builds the store selected by cfg.
func Open(cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		return NewSQLiteStore(cfg.Dir)
	case "none":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache: %s", cfg.Type)
	}
}

// Result is the index material for one dataset snapshot.
type Result struct {
	Key        string
	Chunks     []domain.Chunk
	Embeddings [][]float64
	Hit        bool
}

// Builder returns the chunks and embeddings of a dataset, loading them from
// the store when possible and building them otherwise. Concurrent calls for
// the same key share one build.
type Builder struct {
	store Store
	group singleflight.Group
}

// NewBuilder creates a Builder over store.
func NewBuilder(store Store) *Builder {
	return &Builder{store: store}
}

// EnsureIndex returns the index for ds as embedded by emb. On a hit the
// embedder is only prepared on the chunk texts, never asked to encode them.
func (b *Builder) EnsureIndex(ctx context.Context, ds *dataset.Dataset, emb embedding.Embedder) (*Result, error) {
	key := Key(ds.Hash, emb.Name())
	v, err, _ := b.group.Do(key, func() (any, error) {
		return b.ensure(ctx, key, ds, emb)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (b *Builder) ensure(ctx context.Context, key string, ds *dataset.Dataset, emb embedding.Embedder) (*Result, error) {
	entry, err := b.store.Get(ctx, key)
	switch {
	case err == nil:
		if verr := validate(entry, len(ds.Records)); verr != nil {
			logger.Warn("cache entry %s unusable, rebuilding: %v", key, verr)
			break
		}
		if err := emb.Prepare(chunker.Texts(entry.Chunks)); err != nil {
			return nil, fmt.Errorf("%w: prepare: %v", domain.ErrEmbeddingModel, err)
		}
		logger.Info("embeddings loaded from cache (%d chunks, key %s)", len(entry.Chunks), key)
		return &Result{Key: key, Chunks: entry.Chunks, Embeddings: entry.Embeddings, Hit: true}, nil
	case errors.Is(err, domain.ErrCacheMiss):
		logger.Debug("cache miss for %s", key)
	case errors.Is(err, domain.ErrCacheCorrupt):
		logger.Warn("cache entry %s corrupt, rebuilding: %v", key, err)
	default:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("cache read failed for %s, rebuilding: %v", key, err)
	}

	chunks := chunker.BuildAll(ds.Records)
	texts := chunker.Texts(chunks)
	if err := emb.Prepare(texts); err != nil {
		return nil, fmt.Errorf("%w: prepare: %v", domain.ErrEmbeddingModel, err)
	}
	logger.Info("creating embeddings for %d chunks with %s", len(chunks), emb.Name())
	vecs, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", domain.ErrEmbeddingModel, err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrEmbeddingModel, len(vecs), len(chunks))
	}

	if err := b.store.Put(ctx, key, &Entry{Chunks: chunks, Embeddings: vecs, Model: emb.Name()}); err != nil {
		logger.Warn("failed to persist embeddings cache %s: %v", key, err)
	} else {
		logger.Info("embeddings cached under %s", key)
	}
	return &Result{Key: key, Chunks: chunks, Embeddings: vecs}, nil
}

func validate(e *Entry, records int) error {
	if len(e.Chunks) != len(e.Embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", domain.ErrCacheCorrupt, len(e.Chunks), len(e.Embeddings))
	}
	if len(e.Chunks) != records {
		return fmt.Errorf("%w: %d chunks for %d records", domain.ErrCacheCorrupt, len(e.Chunks), records)
	}
	return nil
}
