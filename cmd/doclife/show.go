package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/types"
)

var showCmd = &cobra.Command{
	Use:     "show <id|path>",
	GroupID: "docs",
	Short:   "Show a document with its relationships and history",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		ctx := cmd.Context()

		doc := resolveDocArg(cmd, args[0])
		parents, err := a.store.GetParentDocuments(ctx, doc.ID, nil)
		if err != nil {
			FatalError("%v", err)
		}
		children, err := a.store.GetChildDocuments(ctx, doc.ID, nil)
		if err != nil {
			FatalError("%v", err)
		}
		history, err := a.store.GetTransitionHistory(ctx, doc.ID)
		if err != nil {
			FatalError("%v", err)
		}
		reviews, err := a.store.GetReviewHistory(ctx, doc.ID)
		if err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"document": doc, "parents": parents, "children": children,
				"transitions": history, "reviews": reviews,
			})
			return
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("Document %d: %s", doc.ID, doc.Path)))
		fmt.Printf("  type: %s   state: %s\n", doc.Type, styledState(string(doc.State)))
		fmt.Printf("  author: %s", doc.Author)
		if doc.Owner != "" {
			fmt.Printf("   owner: %s", doc.Owner)
		}
		if doc.Reviewer != "" {
			fmt.Printf("   reviewer: %s", doc.Reviewer)
		}
		fmt.Println()
		if doc.Feature != "" {
			fmt.Printf("  feature: %s", doc.Feature)
			if doc.Epic != nil {
				fmt.Printf("   epic: %d", *doc.Epic)
			}
			if doc.Story != "" {
				fmt.Printf("   story: %s", doc.Story)
			}
			fmt.Println()
		}
		if doc.ReviewDueDate != nil {
			fmt.Printf("  review due: %s\n", doc.ReviewDueDate.Format("2006-01-02"))
		}
		if tags := doc.Metadata.Tags(); len(tags) > 0 {
			fmt.Printf("  tags: %v\n", tags)
		}

		if len(parents) > 0 {
			fmt.Println("\nParents:")
			for _, p := range parents {
				fmt.Printf("  %4d  %s\n", p.ID, p.Path)
			}
		}
		if len(children) > 0 {
			fmt.Println("\nChildren:")
			for _, c := range children {
				fmt.Printf("  %4d  %s\n", c.ID, c.Path)
			}
		}
		if len(history) > 0 {
			fmt.Println("\nHistory:")
			for _, tr := range history {
				fmt.Printf("  %s  %s -> %s  by %s", tr.ChangedAt.Format("2006-01-02 15:04"), tr.FromState, tr.ToState, tr.ChangedBy)
				if tr.Reason != "" {
					fmt.Printf("  (%s)", tr.Reason)
				}
				fmt.Println()
			}
		}
		if len(reviews) > 0 {
			fmt.Println("\nReviews:")
			for _, r := range reviews {
				fmt.Printf("  %s  by %s", r.ReviewedAt.Format("2006-01-02"), r.Reviewer)
				if r.Notes != "" {
					fmt.Printf("  %s", dimStyle.Render(r.Notes))
				}
				fmt.Println()
			}
		}
	},
}

// resolveDocArg accepts a numeric registry ID or a docs-root-relative
// path.
func resolveDocArg(cmd *cobra.Command, arg string) *types.Document {
	a := openApp(cmd.Context())
	ctx := cmd.Context()

	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		doc, err := a.store.GetDocument(ctx, id)
		if err != nil {
			FatalError("%v", err)
		}
		return doc
	}
	doc, err := a.store.GetDocumentByPath(ctx, arg)
	if err != nil {
		FatalError("%v", err)
	}
	if doc == nil {
		FatalError("no document registered at %q", arg)
	}
	return doc
}

func init() {
	rootCmd.AddCommand(showCmd)
}
