package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"payrollrag/internal/dataset"
)

var (
	projectBase int
	projectOut  string
)

var projectCmd = &cobra.Command{
	Use:   "project [command]",
	Short: "Project a salary readjustment into a new year",
	Long: `Parses a readjustment such as "reajuste os salários de 2027 em 8%" and
copies the previous year's rows into the target year with base salary, bonus,
benefits, INSS and IRRF scaled by the percentage. The result is written to
--out, or back to the dataset file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProject,
}

func init() {
	projectCmd.Flags().IntVar(&projectBase, "base", 0, "base year (default target-1)")
	projectCmd.Flags().StringVarP(&projectOut, "out", "o", "", "output CSV (default overwrites the dataset)")
	rootCmd.AddCommand(projectCmd)
}

func runProject(cmd *cobra.Command, args []string) error {
	adj, err := dataset.ParseAdjustment(strings.Join(args, " "))
	if err != nil {
		return err
	}
	ds, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		return err
	}
	records, err := dataset.ProjectYear(ds.Records, adj.Year, adj.Factor, projectBase)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, records); err != nil {
		return fmt.Errorf("writing projection: %w", err)
	}
	out := projectOut
	if out == "" {
		out = cfg.Dataset.Path
	}
	if err := writeFileAtomic(out, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Projected %d record(s) into %d (factor %.4f), wrote %s\n",
		len(records)-len(ds.Records), adj.Year, adj.Factor, out)
	return nil
}

// writeFileAtomic replaces path in one rename so a watching engine never
// reads a half-written file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".payroll-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
