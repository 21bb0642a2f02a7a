package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"payrollrag/internal/assistant"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask the payroll assistant one question",
	Long: `Classifies the message, answers it from search results, statistics or
canned replies and prints the answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	e, cleanup, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	a := assistant.New(e, cfg.Assistant.MaxHistory)
	ans := a.Ask(cmd.Context(), strings.Join(args, " "))
	if askJSON {
		data, err := json.MarshalIndent(ans, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), ans.Text)
	return nil
}
