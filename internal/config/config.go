package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatasetConfig points at the payroll CSV.
type DatasetConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OllamaEmbedderConfig holds configuration for a local Ollama server.
type OllamaEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiEmbedderConfig holds configuration for the Google Generative AI embedder.
type GeminiEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type              string                `yaml:"type"`
	Model             string                `yaml:"model"`
	BatchSize         int                   `yaml:"batch_size"`
	Concurrency       int                   `yaml:"concurrency"`
	RequestsPerSecond float64               `yaml:"requests_per_second"`
	OpenAI            *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Ollama            *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
	Gemini            *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
}

// CacheConfig selects where chunk embeddings are persisted.
type CacheConfig struct {
	Type string `yaml:"type"`
	Dir  string `yaml:"dir"`
}

// EmployeeAlias adds extra query spellings for an employee name.
type EmployeeAlias struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// SearchConfig configures ranking defaults.
type SearchConfig struct {
	TopK      int             `yaml:"top_k"`
	Employees []EmployeeAlias `yaml:"employees,omitempty"`
}

// AssistantConfig configures the conversational layer.
type AssistantConfig struct {
	MaxHistory int `yaml:"max_history"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MaxConversations bounds the conversations kept in memory; the least
	// recently used one is dropped first.
	MaxConversations int `yaml:"max_conversations"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Cache     CacheConfig     `yaml:"cache"`
	Search    SearchConfig    `yaml:"search"`
	Assistant AssistantConfig `yaml:"assistant"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/payrollrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/payrollrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown component types and impossible values.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "tfidf", "ollama", "openai", "gemini":
	default:
		return fmt.Errorf("unknown embedder: %s", c.Embedder.Type)
	}
	switch c.Cache.Type {
	case "file", "sqlite", "none":
	default:
		return fmt.Errorf("unknown cache: %s", c.Cache.Type)
	}
	if c.Dataset.Path == "" {
		return errors.New("dataset path is required")
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "payrollrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Dataset: DatasetConfig{Path: filepath.Join("data", "payroll.csv")},
		Embedder: EmbedderConfig{
			Type:   "ollama",
			Model:  DefaultOllamaModel,
			Ollama: &OllamaEmbedderConfig{BaseURL: "http://localhost:11434", TimeoutSecs: 60},
		},
		Cache:     CacheConfig{Type: "file", Dir: filepath.Join(".cache", "payrollrag")},
		Search:    SearchConfig{TopK: 3},
		Assistant: AssistantConfig{MaxHistory: 10},
		Server:    ServerConfig{Addr: ":8080", MaxConversations: 256},
		Log:       LogConfig{Level: "info"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

// Default model names per embedder type.
const (
	DefaultOllamaModel = "paraphrase-multilingual"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultGeminiModel = "text-embedding-004"
)

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = filepath.Join("data", "payroll.csv")
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 4
	}
	switch cfg.Embedder.Type {
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaEmbedderConfig{}
		}
		if cfg.Embedder.Ollama.BaseURL == "" {
			cfg.Embedder.Ollama.BaseURL = "http://localhost:11434"
		}
		if cfg.Embedder.Ollama.TimeoutSecs == 0 {
			cfg.Embedder.Ollama.TimeoutSecs = 60
		}
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = DefaultOllamaModel
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = DefaultOpenAIModel
		}
	case "gemini":
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = DefaultGeminiModel
		}
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "file"
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(".cache", "payrollrag")
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 3
	}
	if cfg.Assistant.MaxHistory == 0 {
		cfg.Assistant.MaxHistory = 10
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxConversations == 0 {
		cfg.Server.MaxConversations = 256
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// applyEnvOverrides lets the environment (and a loaded .env file) win over the file.
func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("PAYROLL_DATASET")); v != "" {
		cfg.Dataset.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("PAYROLL_CACHE_DIR")); v != "" {
		cfg.Cache.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")); v != "" {
		cfg.Embedder.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if n, ok := envInt("TOP_K_RESULTS"); ok {
		cfg.Search.TopK = n
	}
	if n, ok := envInt("MAX_CONVERSATION_HISTORY"); ok {
		cfg.Assistant.MaxHistory = n
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
