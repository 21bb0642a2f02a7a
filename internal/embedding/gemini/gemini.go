// Package gemini embeds text with the Google Generative AI embedding models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"payrollrag/internal/embedding/batcher"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-004"

// Config configures the Gemini client.
type Config struct {
	APIKeyEnv string
	Model     string
}

// Client wraps a genai embedding model.
type Client struct {
	client    *genai.Client
	em        *genai.EmbeddingModel
	model     string
	batcher   *batcher.Batcher
	dimension int
}

// NewClient creates a Gemini client with the API key read from cfg.APIKeyEnv.
func NewClient(ctx context.Context, cfg Config, b *batcher.Batcher) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GEMINI_API_KEY"
	}
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if b == nil {
		b = batcher.New(0, 0, 0)
	}
	return &Client{
		client:  client,
		em:      client.EmbeddingModel(model),
		model:   model,
		batcher: b,
	}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error { return c.client.Close() }

// Name returns "gemini:<model>".
func (c *Client) Name() string { return "gemini:" + c.model }

// Prepare is a no-op for a hosted model.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension is known after Ping or the first embed.
func (c *Client) Dimension() int { return c.dimension }

// Ping embeds a sample text, which checks the key and the model name.
func (c *Client) Ping(ctx context.Context) error {
	v, err := c.Embed(ctx, "ping")
	if err != nil {
		return err
	}
	c.dimension = len(v)
	return nil
}

// Embed returns the embedding of one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := c.batcher.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, errors.New("received empty embedding from API")
	}
	return toFloat64(res.Embedding.Values), nil
}

// EmbedBatch uses BatchEmbedContents, one request per batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return c.batcher.Run(ctx, texts, func(ctx context.Context, batch []string) ([][]float64, error) {
		b := c.em.NewBatch()
		for _, t := range batch {
			b = b.AddContent(genai.Text(t))
		}
		res, err := c.em.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("failed to batch embed: %w", err)
		}
		out := make([][]float64, 0, len(res.Embeddings))
		for _, e := range res.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, errors.New("received empty embedding from API")
			}
			out = append(out, toFloat64(e.Values))
		}
		return out, nil
	})
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
