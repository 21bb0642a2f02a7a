package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"payrollrag/internal/assistant"
	"payrollrag/internal/engine"
	"payrollrag/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive payroll chat",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

var tuiExportDir string

func init() {
	tuiCmd.Flags().StringVar(&tuiExportDir, "export-dir", ".", "directory for conversations exported with Ctrl+E")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	e, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	startWatch(ctx, e)

	a := assistant.New(e, cfg.Assistant.MaxHistory)
	m := tui.New(ctx, a, summaryLine(e)).WithExportDir(tuiExportDir)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func summaryLine(e *engine.Engine) string {
	st := e.Statistics()
	info := e.Info()
	period := "-"
	if n := len(st.Competencies); n > 0 {
		period = st.Competencies[0] + " a " + st.Competencies[n-1]
	}
	return fmt.Sprintf("%d registros · %d funcionários · %s · %s", st.TotalRecords, st.UniqueEmployees, period, info.Embedder)
}
