package embedding

import (
	"context"
	"fmt"
	"time"

	"payrollrag/internal/config"
	"payrollrag/internal/domain"
	"payrollrag/internal/embedding/batcher"
	"payrollrag/internal/embedding/gemini"
	"payrollrag/internal/embedding/ollama"
	"payrollrag/internal/embedding/openai"
	"payrollrag/internal/embedding/tfidf"
	"payrollrag/internal/logger"
)

// New builds the embedder selected by cfg. Remote embedders are pinged
// before being returned; an unreachable backend is an error wrapping
// domain.ErrEmbeddingModel.
func New(ctx context.Context, cfg config.EmbedderConfig) (Embedder, error) {
	b := batcher.New(cfg.BatchSize, cfg.Concurrency, cfg.RequestsPerSecond)

	var emb Embedder
	switch cfg.Type {
	case "tfidf":
		emb = tfidf.NewEmbedder()
	case "ollama":
		c := cfg.Ollama
		if c == nil {
			c = &config.OllamaEmbedderConfig{}
		}
		emb = ollama.NewClient(ollama.Config{
			BaseURL: c.BaseURL,
			Model:   cfg.Model,
			Timeout: time.Duration(c.TimeoutSecs) * time.Second,
		}, b)
	case "openai":
		c := cfg.OpenAI
		if c == nil {
			c = &config.OpenAIEmbedderConfig{}
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   c.BaseURL,
			APIKeyEnv: c.APIKeyEnv,
			Model:     cfg.Model,
			Timeout:   time.Duration(c.TimeoutSecs) * time.Second,
		}, b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingModel, err)
		}
		emb = client
	case "gemini":
		c := cfg.Gemini
		if c == nil {
			c = &config.GeminiEmbedderConfig{}
		}
		client, err := gemini.NewClient(ctx, gemini.Config{APIKeyEnv: c.APIKeyEnv, Model: cfg.Model}, b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingModel, err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrEmbeddingModel, cfg.Type)
	}

	if p, ok := emb.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s unavailable: %v", domain.ErrEmbeddingModel, emb.Name(), err)
		}
	}
	logger.Info("embedder ready: %s", emb.Name())
	return emb, nil
}
