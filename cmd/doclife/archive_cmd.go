package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/types"
)

var archiveReason string

var archiveCmd = &cobra.Command{
	Use:     "archive <id|path>",
	GroupID: "docs",
	Short:   "Archive a document and move its file to the archive tree",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		doc := resolveDocArg(cmd, args[0])

		if !confirm(fmt.Sprintf("Archive %s? The file moves to the archive tree.", doc.Path)) {
			fmt.Println("Cancelled.")
			return
		}

		archived, err := a.manager.ArchiveDocument(cmd.Context(), doc.ID, archiveReason, a.author())
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(archived)
			return
		}
		fmt.Printf("Archived document %d: %s\n", archived.ID, archived.Path)
	},
}

var currentCmd = &cobra.Command{
	Use:     "current <type> [feature]",
	GroupID: "docs",
	Short:   "Show the active document for a type and feature",
	Args:    cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())

		feature := ""
		if len(args) == 2 {
			feature = args[1]
		}
		docType := types.DocType(args[0])
		if !docType.IsValid() {
			FatalError("invalid document type %q", args[0])
		}
		doc, err := a.manager.GetCurrentDocument(cmd.Context(), docType, feature)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(doc)
			return
		}
		fmt.Printf("%4d  %s\n", doc.ID, doc.Path)
	},
}

func init() {
	archiveCmd.Flags().StringVarP(&archiveReason, "reason", "r", "", "Reason recorded in the audit trail")
	rootCmd.AddCommand(archiveCmd, currentCmd)
}
