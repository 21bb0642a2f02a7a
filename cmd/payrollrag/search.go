package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"payrollrag/internal/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over payroll records",
	Long: `Ranks payroll records by cosine similarity to the query. Months and
employee names found in the query boost matching records.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, cleanup, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	resp := e.Search(cmd.Context(), args[0], searchLimit)
	switch resp.Status {
	case domain.StatusRejected:
		return errors.New("query rejected: forbidden content")
	case domain.StatusDegraded:
		return fmt.Errorf("search failed: %w", resp.Err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	return outputSearchTable(cmd, resp)
}

func outputSearchTable(cmd *cobra.Command, resp domain.SearchResponse) error {
	out := cmd.OutOrStdout()
	if resp.Status == domain.StatusEmptyQuery {
		fmt.Fprintln(out, "Empty query.")
		return nil
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintln(out, "Results:")
	fmt.Fprintln(out)
	for i, r := range resp.Results {
		rec := r.Chunk.Record
		fmt.Fprintf(out, "  [%d] %s - %s %s (%.3f)\n", i+1, r.Chunk.ID, rec.Name, rec.Competency, r.Score)
		for _, line := range strings.Split(r.Chunk.Text, "\n") {
			fmt.Fprintf(out, "      %s\n", line)
		}
		fmt.Fprintln(out)
	}
	return nil
}
