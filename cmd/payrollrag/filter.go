package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"payrollrag/internal/chunker"
	"payrollrag/internal/domain"
)

var (
	filterName       string
	filterCompetency string
	filterEmployeeID string
	filterMin        float64
	filterMax        float64
	filterJSON       bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "List records matching structured criteria",
	Long: `Lists payroll records in dataset order. Name matches a case-insensitive
substring, competency and employee id match exactly, --min and --max bound the
net pay inclusively. Criteria combine with AND.`,
	Args: cobra.NoArgs,
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().StringVar(&filterName, "name", "", "employee name substring")
	filterCmd.Flags().StringVar(&filterCompetency, "competency", "", "competency (YYYY-MM)")
	filterCmd.Flags().StringVar(&filterEmployeeID, "employee-id", "", "employee id")
	filterCmd.Flags().Float64Var(&filterMin, "min", 0, "minimum net pay")
	filterCmd.Flags().Float64Var(&filterMax, "max", 0, "maximum net pay")
	filterCmd.Flags().BoolVar(&filterJSON, "json", false, "output records as JSON")
	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	e, cleanup, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	c := domain.Criteria{Name: filterName, Competency: filterCompetency, EmployeeID: filterEmployeeID}
	if cmd.Flags().Changed("min") {
		v := filterMin
		c.MinNetPay = &v
	}
	if cmd.Flags().Changed("max") {
		v := filterMax
		c.MaxNetPay = &v
	}
	records := e.Filter(c)

	out := cmd.OutOrStdout()
	if filterJSON {
		if records == nil {
			records = []domain.Record{}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal records: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOMPETENCY\tNET PAY\tPAYMENT DATE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.EmployeeID, r.Name, r.Competency,
			chunker.FormatBRL(r.NetPay), chunker.FormatDate(r.PaymentDate))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d record(s)\n", len(records))
	return nil
}
