// Package ollama embeds text with a local Ollama server. It is the default
// provider and serves the multilingual paraphrase model.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"payrollrag/internal/embedding/batcher"
)

// DefaultModel is the multilingual sentence model pulled by default.
const DefaultModel = "paraphrase-multilingual"

// Config configures the Ollama client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls POST /api/embeddings, one text per request.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	batcher *batcher.Batcher

	mu        sync.Mutex
	dimension int
}

// NewClient creates an Ollama embeddings client.
func NewClient(cfg Config, b *batcher.Batcher) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	t := cfg.Timeout
	if t == 0 {
		t = 90 * time.Second
	}
	if b == nil {
		b = batcher.New(0, 0, 0)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: t},
		batcher: b,
	}
}

// Name returns "ollama:<model>".
func (c *Client) Name() string { return "ollama:" + c.model }

// Prepare is a no-op; the model is loaded by the server.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension is known after the first successful call.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Ping checks that the server answers and the model is installed.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ollama tags: %s", resp.Status)
	}
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decode ollama tags: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not installed, run: ollama pull %s", c.model, c.model)
}

// Embed returns the embedding of one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := c.batcher.Wait(ctx); err != nil {
		return nil, err
	}
	return c.embedOne(ctx, text)
}

// EmbedBatch embeds texts concurrently and returns vectors in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return c.batcher.Run(ctx, texts, func(ctx context.Context, batch []string) ([][]float64, error) {
		out := make([][]float64, 0, len(batch))
		for _, t := range batch {
			v, err := c.embedOne(ctx, t)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	})
}

func (c *Client) embedOne(ctx context.Context, text string) ([]float64, error) {
	payload, err := json.Marshal(map[string]any{
		"model":  c.model,
		"prompt": text,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ollama embedding error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode ollama embedding response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}
	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(parsed.Embedding)
	}
	c.mu.Unlock()
	return parsed.Embedding, nil
}
