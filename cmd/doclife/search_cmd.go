package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/types"
)

var (
	searchType  string
	searchState string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:     "search <query...>",
	GroupID: "views",
	Short:   "Full-text search across document content, paths, and tags",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())

		filter := types.DocumentFilter{Limit: searchLimit}
		if searchType != "" {
			t := types.DocType(searchType)
			if !t.IsValid() {
				FatalError("invalid document type %q", searchType)
			}
			filter.Type = &t
		}
		if searchState != "" {
			s := types.DocState(searchState)
			if !s.IsValid() {
				FatalError("invalid document state %q", searchState)
			}
			filter.State = &s
		}

		results, err := a.engine.Search(cmd.Context(), strings.Join(args, " "), filter)
		if err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(results)
			return
		}
		if len(results) == 0 {
			fmt.Println("No matches.")
			return
		}
		for _, res := range results {
			fmt.Printf("%6.2f  %4d  %s\n", res.Score, res.Document.ID, res.Document.Path)
		}
	},
}

var (
	tagsAll   bool
	tagsLimit int
)

var tagsCmd = &cobra.Command{
	Use:     "tags <tag...>",
	GroupID: "views",
	Short:   "List documents carrying the given tags",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())

		docs, err := a.engine.SearchByTags(cmd.Context(), args, tagsAll, tagsLimit)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(docs)
			return
		}
		if len(docs) == 0 {
			fmt.Println("No matches.")
			return
		}
		for _, doc := range docs {
			fmt.Printf("%4d  %-12s %s  %v\n", doc.ID, doc.Type, doc.Path, doc.Metadata.Tags())
		}
	},
}

var relatedLimit int

var relatedCmd = &cobra.Command{
	Use:     "related <id|path>",
	GroupID: "views",
	Short:   "Find documents whose content resembles this one",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		doc := resolveDocArg(cmd, args[0])

		results, err := a.engine.GetRelatedDocuments(cmd.Context(), doc.ID, relatedLimit)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(results)
			return
		}
		if len(results) == 0 {
			fmt.Println("No similar documents found.")
			return
		}
		for _, res := range results {
			fmt.Printf("%6.2f  %4d  %s\n", res.Score, res.Document.ID, res.Document.Path)
		}
	},
}

var lineageCmd = &cobra.Command{
	Use:     "lineage <id|path>",
	GroupID: "views",
	Short:   "Show a document's ancestors and descendants",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		doc := resolveDocArg(cmd, args[0])

		lineage, err := a.manager.GetDocumentLineage(cmd.Context(), doc.ID)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(lineage)
			return
		}
		fmt.Println("Ancestors:")
		for _, d := range lineage.Ancestors {
			fmt.Printf("  %4d  %s\n", d.ID, d.Path)
		}
		fmt.Println("Descendants:")
		for _, d := range lineage.Descendants {
			fmt.Printf("  %4d  %s\n", d.ID, d.Path)
		}
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "Filter by document type")
	searchCmd.Flags().StringVarP(&searchState, "state", "s", "", "Filter by state")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Limit results")
	tagsCmd.Flags().BoolVar(&tagsAll, "all", false, "Require every tag to match")
	tagsCmd.Flags().IntVarP(&tagsLimit, "limit", "n", 0, "Limit results (0 = all)")
	relatedCmd.Flags().IntVarP(&relatedLimit, "limit", "n", 10, "Limit results")
	rootCmd.AddCommand(searchCmd, tagsCmd, relatedCmd, lineageCmd)
}
