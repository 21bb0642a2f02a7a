// Package embedding defines the text embedding capability used to index
// payroll chunks and queries, and builds the configured provider.
package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
//
// Name identifies the provider and model ("ollama:paraphrase-multilingual")
// and is part of the cache key, so two embedders with the same Name must
// produce compatible vectors.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Pinger is implemented by remote embedders that can check their backend
// before any work is submitted.
type Pinger interface {
	Ping(ctx context.Context) error
}
