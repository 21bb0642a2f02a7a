package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"payrollrag/internal/cache"
	"payrollrag/internal/config"
	"payrollrag/internal/embedding"
	"payrollrag/internal/engine"
	"payrollrag/internal/logger"
)

var (
	cfgPath     string
	datasetPath string
	verbose     bool

	cfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "payrollrag",
	Short: "Ask questions about a payroll dataset",
	Long: `payrollrag loads a payroll CSV, embeds one descriptive chunk per record
and answers natural-language questions in Portuguese with semantic search,
structured filters and dataset statistics.

Without a subcommand it opens the interactive chat.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/payrollrag/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&datasetPath, "dataset", "", "payroll CSV path, overrides the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func setup(cmd *cobra.Command, args []string) error {
	// .env is optional
	_ = godotenv.Load()

	var err error
	if cfgPath == "" {
		var path string
		cfg, path, err = config.LoadDefault()
		if err == nil {
			logger.Debug("using config %s", path)
		}
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if datasetPath != "" {
		cfg.Dataset.Path = datasetPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if verbose {
		logger.SetLevel(logger.LevelDebug)
	}
	return nil
}

// openEngine builds the configured embedder and cache and loads the dataset.
// The returned cleanup releases the cache and the embedder client.
func openEngine(ctx context.Context) (*engine.Engine, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("config not loaded")
	}
	emb, err := embedding.New(ctx, cfg.Embedder)
	if err != nil {
		return nil, nil, err
	}
	store, err := cache.Open(cfg.Cache)
	if err != nil {
		closeQuietly(emb)
		return nil, nil, err
	}
	cleanup := func() {
		closeQuietly(store)
		closeQuietly(emb)
	}

	e, err := engine.New(ctx, engine.Options{
		DatasetPath: cfg.Dataset.Path,
		Embedder:    emb,
		Store:       store,
		TopK:        cfg.Search.TopK,
		Employees:   employeeAliases(cfg.Search.Employees),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return e, cleanup, nil
}

func employeeAliases(in []config.EmployeeAlias) map[string][]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]string, len(in))
	for _, a := range in {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		out[name] = append(out[name], a.Aliases...)
	}
	return out
}

func closeQuietly(v any) {
	if c, ok := v.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}
