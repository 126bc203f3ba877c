package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/types"
)

var (
	listType    string
	listState   string
	listFeature string
	listOwner   string
	listTags    []string
	listAllTags bool
	listLimit   int
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "docs",
	Short:   "List registered documents",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())

		filter := types.DocumentFilter{Tags: listTags, MatchAllTags: listAllTags, Limit: listLimit}
		if listType != "" {
			t := types.DocType(listType)
			if !t.IsValid() {
				FatalError("invalid document type %q", listType)
			}
			filter.Type = &t
		}
		if listState != "" {
			s := types.DocState(listState)
			if !s.IsValid() {
				FatalError("invalid document state %q", listState)
			}
			filter.State = &s
		}
		if listFeature != "" {
			filter.Feature = &listFeature
		}
		if listOwner != "" {
			filter.Owner = &listOwner
		}

		docs, err := a.store.QueryDocuments(cmd.Context(), filter)
		if err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(docs)
			return
		}
		if len(docs) == 0 {
			fmt.Println("No documents found.")
			return
		}
		for _, doc := range docs {
			// Pad before styling; ANSI codes would skew %-9s widths.
			state := styledState(fmt.Sprintf("%-9s", doc.State))
			line := fmt.Sprintf("%4d  %-12s %s %s", doc.ID, doc.Type, state, doc.Path)
			if doc.Owner != "" {
				line += dimStyle.Render("  (" + doc.Owner + ")")
			}
			fmt.Println(line)
		}
		if !quietFlag {
			fmt.Printf("\n%d document(s)\n", len(docs))
		}
	},
}

func init() {
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "Filter by document type")
	listCmd.Flags().StringVarP(&listState, "state", "s", "", "Filter by state")
	listCmd.Flags().StringVar(&listFeature, "feature", "", "Filter by feature")
	listCmd.Flags().StringVar(&listOwner, "owner", "", "Filter by owner")
	listCmd.Flags().StringArrayVar(&listTags, "tag", nil, "Filter by tag (repeatable, any match)")
	listCmd.Flags().BoolVar(&listAllTags, "all-tags", false, "Require every --tag to match")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Limit results (0 = all)")
	rootCmd.AddCommand(listCmd)
}
