package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"payrollrag/internal/api"
	"payrollrag/internal/engine"
	"payrollrag/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serves search, records, statistics and the assistant over HTTP under /api.
With dataset.watch enabled the dataset is reloaded when the file changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	startWatch(ctx, e)

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	return api.Serve(ctx, addr, api.NewRouter(api.NewHandler(e, cfg.Assistant.MaxHistory, cfg.Server.MaxConversations)))
}

func startWatch(ctx context.Context, e *engine.Engine) {
	if !cfg.Dataset.Watch {
		return
	}
	go func() {
		if err := e.Watch(ctx); err != nil {
			logger.Error("dataset watcher stopped: %v", err)
		}
	}()
}
