package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/types"
)

var linkType string

var linkCmd = &cobra.Command{
	Use:     "link <parent> <child>",
	GroupID: "docs",
	Short:   "Add a relationship between two documents",
	Long:    `Relationship types: derived_from, implements, tests, replaces, references.`,
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		parent := resolveDocArg(cmd, args[0])
		child := resolveDocArg(cmd, args[1])

		relType := types.RelationType(linkType)
		if !relType.IsValid() {
			FatalError("invalid relationship type %q", linkType)
		}

		if err := a.store.AddRelationship(cmd.Context(), parent.ID, child.ID, relType); err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"parent_id": parent.ID, "child_id": child.ID, "type": relType})
			return
		}
		fmt.Printf("Linked %s -[%s]-> %s\n", parent.Path, relType, child.Path)
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "views",
	Short:   "Show registry statistics",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())

		stats, err := a.store.GetStatistics(cmd.Context())
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(stats)
			return
		}
		fmt.Printf("Total documents: %d\n\nBy state:\n", stats.TotalDocuments)
		for _, state := range types.AllDocStates {
			if n := stats.ByState[state]; n > 0 {
				fmt.Printf("  %-9s %d\n", state, n)
			}
		}
		fmt.Println("\nBy type:")
		for _, docType := range types.AllDocTypes {
			if n := stats.ByType[docType]; n > 0 {
				fmt.Printf("  %-12s %d\n", docType, n)
			}
		}
	},
}

func init() {
	linkCmd.Flags().StringVarP(&linkType, "type", "t", string(types.RelReferences), "Relationship type")
	rootCmd.AddCommand(linkCmd, statsCmd)
}
