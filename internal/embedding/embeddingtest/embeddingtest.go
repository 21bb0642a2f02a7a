// Package embeddingtest provides embedders for tests.
package embeddingtest

import (
	"context"
	"errors"
	"sync/atomic"

	"payrollrag/internal/embedding/tfidf"
)

// ErrUnavailable is returned by a Counting embedder after Fail is called.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Counting wraps the TF-IDF embedder and counts encode calls.
type Counting struct {
	*tfidf.Embedder
	name    string
	encoded atomic.Int64
	queries atomic.Int64
	fail    atomic.Bool
}

// NewCounting returns a deterministic embedder identified by name.
func NewCounting(name string) *Counting {
	if name == "" {
		name = "tfidf"
	}
	return &Counting{Embedder: tfidf.NewEmbedder(), name: name}
}

func (c *Counting) Name() string { return c.name }

func (c *Counting) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.fail.Load() {
		return nil, ErrUnavailable
	}
	c.queries.Add(1)
	return c.Embedder.Embed(ctx, text)
}

func (c *Counting) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if c.fail.Load() {
		return nil, ErrUnavailable
	}
	c.encoded.Add(int64(len(texts)))
	return c.Embedder.EmbedBatch(ctx, texts)
}

// Fail makes every later encode call return ErrUnavailable.
func (c *Counting) Fail() { c.fail.Store(true) }

// Encoded is the number of texts passed to EmbedBatch.
func (c *Counting) Encoded() int64 { return c.encoded.Load() }

// Queries is the number of Embed calls.
func (c *Counting) Queries() int64 { return c.queries.Load() }
