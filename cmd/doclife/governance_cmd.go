package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var governanceCSV bool

var governanceCmd = &cobra.Command{
	Use:     "governance",
	GroupID: "views",
	Short:   "Governance reporting",
}

var governanceReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report overdue reviews, unowned documents, and registry totals",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		gov := a.governanceEngine()

		report, err := gov.BuildReport(cmd.Context(), time.Now().UTC())
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(report)
			return
		}
		if governanceCSV {
			out, err := gov.CSVReport(report)
			if err != nil {
				FatalError("%v", err)
			}
			fmt.Print(out)
			return
		}
		fmt.Print(renderMarkdown(gov.MarkdownReport(report)))
	},
}

var healthCmd = &cobra.Command{
	Use:     "health",
	GroupID: "views",
	Short:   "Compute documentation health KPIs and action items",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		checker := a.healthChecker()

		report, err := checker.Check(cmd.Context(), time.Now().UTC())
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(report)
			return
		}
		fmt.Print(renderMarkdown(report.Markdown()))
	},
}

func init() {
	governanceReportCmd.Flags().BoolVar(&governanceCSV, "csv", false, "Emit CSV instead of markdown")
	governanceCmd.AddCommand(governanceReportCmd)
	rootCmd.AddCommand(governanceCmd, healthCmd)
}
