// Command payrollrag answers questions about a payroll CSV using semantic
// search over one embedded chunk per record.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
