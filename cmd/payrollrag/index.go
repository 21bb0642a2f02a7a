package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or verify the embedding index",
	Long: `Loads the dataset and makes sure its chunk embeddings are cached.
A second run over an unchanged dataset is served from the cache.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	e, cleanup, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	info := e.Info()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dataset:   %s\n", info.Path)
	fmt.Fprintf(out, "Records:   %d\n", info.Records)
	fmt.Fprintf(out, "Embedder:  %s\n", info.Embedder)
	fmt.Fprintf(out, "Cache key: %s\n", info.CacheKey)
	fmt.Fprintf(out, "Cache hit: %t\n", info.CacheHit)
	return nil
}
