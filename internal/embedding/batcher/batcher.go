// Package batcher splits embedding work for remote providers into sized
// requests, runs them with bounded concurrency and throttles the request rate.
package batcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Defaults used when the configured values are not positive.
const (
	DefaultSize        = 32
	DefaultConcurrency = 4
)

// Batcher runs batched embedding calls. The zero value is not usable; use New.
type Batcher struct {
	size        int
	concurrency int
	limiter     *rate.Limiter
}

// New creates a Batcher. rps <= 0 disables throttling.
func New(size, concurrency int, rps float64) *Batcher {
	if size <= 0 {
		size = DefaultSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Batcher{
		size:        size,
		concurrency: concurrency,
		limiter:     rate.NewLimiter(limit, concurrency),
	}
}

// Size returns the number of texts per request.
func (b *Batcher) Size() int { return b.size }

// Wait blocks until the limiter admits one request.
func (b *Batcher) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// Run embeds texts in batches using fn and returns vectors in input order.
// fn must return exactly one vector per input text.
func (b *Batcher) Run(ctx context.Context, texts []string, fn func(ctx context.Context, batch []string) ([][]float64, error)) ([][]float64, error) {
	out := make([][]float64, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for start := 0; start < len(texts); start += b.size {
		end := min(start+b.size, len(texts))
		g.Go(func() error {
			if err := b.limiter.Wait(gctx); err != nil {
				return err
			}
			vecs, err := fn(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("batch %d-%d: got %d vectors for %d texts", start, end, len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
