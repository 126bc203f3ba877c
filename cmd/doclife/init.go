package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/config"
	"github.com/gao-dev/doclife/internal/storage/sqlite"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "setup",
	Short:   "Initialize a doclife project in the current directory",
	Run: func(cmd *cobra.Command, args []string) {
		dir := projectDirFlag
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				FatalError("getwd: %v", err)
			}
			dir = cwd
		}

		if err := config.InitProject(dir); err != nil {
			FatalError("%v", err)
		}
		cfg, err := config.Load(dir)
		if err != nil {
			FatalError("%v", err)
		}
		if err := os.MkdirAll(cfg.AbsDocsRoot(), 0o755); err != nil {
			FatalError("create docs root: %v", err)
		}

		// Opening the store runs migrations.
		store, err := sqlite.New(cmd.Context(), cfg.AbsDBPath())
		if err != nil {
			FatalError("create registry: %v", err)
		}
		defer store.Close()

		if jsonOutput {
			outputJSON(map[string]string{"project": dir, "db": cfg.AbsDBPath()})
			return
		}
		fmt.Printf("Initialized doclife project in %s\n", dir)
		fmt.Printf("  registry:   %s\n", cfg.DBPath)
		fmt.Printf("  docs root:  %s\n", cfg.DocsRoot)
		fmt.Printf("  config:     %s/config.yaml\n", config.ProjectDirName)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
