package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var scanWatch bool

var scanCmd = &cobra.Command{
	Use:     "scan",
	GroupID: "maint",
	Short:   "Reconcile the registry with the docs tree",
	Long: `Walks the docs root, registering new document files and refreshing
changed ones. With --watch, keeps following filesystem events until
interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		s := a.scanner()
		ctx := cmd.Context()

		result, err := s.Scan(ctx)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput && !scanWatch {
			outputJSON(result)
			return
		}
		for _, w := range result.Warnings {
			fmt.Printf("Warning: %s\n", w)
		}
		if !quietFlag {
			fmt.Printf("Scan complete: %d registered, %d updated, %d unchanged\n",
				result.Registered, result.Updated, result.Unchanged)
		}

		if !scanWatch {
			return
		}
		fmt.Println("Watching for changes (Ctrl-C to stop)...")
		err = s.Watch(ctx, func(warning string) {
			fmt.Printf("Warning: %s\n", warning)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			FatalError("%v", err)
		}
	},
}

var rebuildIndexCmd = &cobra.Command{
	Use:     "reindex",
	GroupID: "maint",
	Short:   "Rebuild the full-text index from the files on disk",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())

		if err := a.engine.RebuildIndex(cmd.Context()); err != nil {
			FatalError("%v", err)
		}
		if err := a.engine.OptimizeIndex(cmd.Context()); err != nil {
			FatalError("%v", err)
		}
		if !quietFlag {
			fmt.Println("Search index rebuilt.")
		}
	},
}

func init() {
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Keep watching after the initial scan")
	rootCmd.AddCommand(scanCmd, rebuildIndexCmd)
}
