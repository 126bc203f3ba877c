package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/retention"
)

var (
	retentionExecute bool
	retentionCSV     bool
)

var retentionCmd = &cobra.Command{
	Use:     "retention",
	GroupID: "maint",
	Short:   "Evaluate and apply retention policies",
}

var retentionReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report what retention would do to every obsolete and archived document",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		engine := a.retentionEngine()
		ctx := cmd.Context()

		archives, _, err := engine.ArchiveObsoleteDocuments(ctx, true)
		if err != nil {
			FatalError("%v", err)
		}
		deletes, _, err := engine.CleanupExpiredDocuments(ctx, true)
		if err != nil {
			FatalError("%v", err)
		}
		actions := append(archives, deletes...)

		if jsonOutput {
			outputJSON(actions)
			return
		}
		if retentionCSV {
			out, err := engine.CSVReport(actions)
			if err != nil {
				FatalError("%v", err)
			}
			fmt.Print(out)
			return
		}
		fmt.Print(renderMarkdown(engine.MarkdownReport(actions, time.Now().UTC())))
	},
}

var retentionSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Archive documents that have been obsolete past their threshold",
	Long:  `Dry run by default; pass --execute to move files and update states.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		engine := a.retentionEngine()

		if retentionExecute && !confirm("Archive every obsolete document past its threshold?") {
			fmt.Println("Cancelled.")
			return
		}
		actions, warnings, err := engine.ArchiveObsoleteDocuments(cmd.Context(), !retentionExecute)
		if err != nil {
			FatalError("%v", err)
		}
		reportSweep(actions, warnings, retention.ActionArchive, retentionExecute)
	},
}

var retentionCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Hard-delete archived documents past their retention window",
	Long: `Dry run by default; pass --execute to delete registry rows and files.
Documents carrying a compliance tag are never deleted.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		engine := a.retentionEngine()

		if retentionExecute && !confirm("Permanently delete expired archived documents?") {
			fmt.Println("Cancelled.")
			return
		}
		actions, warnings, err := engine.CleanupExpiredDocuments(cmd.Context(), !retentionExecute)
		if err != nil {
			FatalError("%v", err)
		}
		reportSweep(actions, warnings, retention.ActionDelete, retentionExecute)
	},
}

func reportSweep(actions []retention.ArchivalAction, warnings []string, kind retention.Action, executed bool) {
	if jsonOutput {
		outputJSON(map[string]interface{}{"actions": actions, "warnings": warnings, "executed": executed})
		return
	}

	count := 0
	for _, action := range actions {
		if action.Action != kind {
			continue
		}
		count++
		verb := "would " + string(kind)
		if executed {
			verb = string(kind) + "d"
		}
		fmt.Printf("%s %s: %s\n", verb, action.Document.Path, action.Reason)
	}
	for _, w := range warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	if count == 0 {
		fmt.Println("Nothing to do.")
	} else if !executed && !quietFlag {
		fmt.Printf("\nDry run: %d document(s) affected. Re-run with --execute to apply.\n", count)
	}
}

func init() {
	retentionReportCmd.Flags().BoolVar(&retentionCSV, "csv", false, "Emit CSV instead of markdown")
	retentionSweepCmd.Flags().BoolVar(&retentionExecute, "execute", false, "Apply the actions instead of reporting them")
	retentionCleanupCmd.Flags().BoolVar(&retentionExecute, "execute", false, "Apply the actions instead of reporting them")
	retentionCmd.AddCommand(retentionReportCmd, retentionSweepCmd, retentionCleanupCmd)
	rootCmd.AddCommand(retentionCmd)
}
