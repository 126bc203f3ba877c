// doclife manages the lifecycle of engineering documentation: a SQLite
// registry of documents with states, relationships, reviews, retention,
// and governance over a docs tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/telemetry"
)

var (
	projectDirFlag string
	authorFlag     string
	jsonOutput     bool
	quietFlag      bool
	forceFlag      bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "doclife",
	Short: "doclife - document lifecycle manager",
	Long: `Tracks engineering documents through draft, active, obsolete, and
archived states, with full-text search, retention sweeps, RACI ownership,
and health reporting.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDirFlag, "project", "", "Project directory (default: walk up from cwd for .gao-dev)")
	rootCmd.PersistentFlags().StringVar(&authorFlag, "author", "", "Author for audit trails (default: config author, $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&forceFlag, "force", "f", false, "Skip confirmation prompts")

	rootCmd.AddGroup(&cobra.Group{ID: "docs", Title: "Working With Documents:"})
	rootCmd.AddGroup(&cobra.Group{ID: "views", Title: "Views & Reports:"})
	rootCmd.AddGroup(&cobra.Group{ID: "maint", Title: "Maintenance:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Configuration:"})
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	if err := telemetry.Init(rootCtx, "doclife", version); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
	}
	defer telemetry.Shutdown(context.Background())

	defer closeApp()
	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeApp()
		telemetry.Shutdown(context.Background())
		os.Exit(1)
	}
}
