package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/timeparsing"
	"github.com/gao-dev/doclife/internal/types"
)

var (
	registerType     string
	registerOwner    string
	registerTags     []string
	registerPriority string
	registerDue      string
)

var registerCmd = &cobra.Command{
	Use:     "register <path>",
	GroupID: "docs",
	Short:   "Register a document with the registry",
	Long: `Registers a file under the docs root. Metadata is resolved from
flags first, then the file's frontmatter, then hints in the path.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		ctx := cmd.Context()

		docType := types.DocType(registerType)
		if registerType != "" && !docType.IsValid() {
			FatalError("invalid document type %q (valid: %v)", registerType, types.AllDocTypes)
		}

		meta := types.Metadata{}
		if len(registerTags) > 0 {
			meta[types.MetaTags] = registerTags
		}
		if registerPriority != "" {
			meta[types.MetaPriority] = registerPriority
		}

		doc, err := a.manager.RegisterDocument(ctx, args[0], docType, a.author(), meta)
		if err != nil {
			FatalError("%v", err)
		}

		fields := map[string]interface{}{}
		if registerOwner != "" {
			fields[types.FieldOwner] = registerOwner
		}
		if registerDue != "" {
			due, err := timeparsing.ParseRelativeTime(registerDue, time.Now())
			if err != nil {
				FatalError("parse --due: %v", err)
			}
			fields[types.FieldReviewDueDate] = due
		}
		if len(fields) > 0 {
			if err := a.store.UpdateDocument(ctx, doc.ID, fields); err != nil {
				FatalError("%v", err)
			}
			doc, err = a.store.GetDocument(ctx, doc.ID)
			if err != nil {
				FatalError("%v", err)
			}
		}

		if err := a.engine.ReindexContent(ctx, doc.ID); err != nil && !quietFlag {
			fmt.Printf("Warning: index %s: %v\n", doc.Path, err)
		}

		if jsonOutput {
			outputJSON(doc)
			return
		}
		fmt.Printf("Registered document %d: %s (%s, %s)\n", doc.ID, doc.Path, doc.Type, styledState(string(doc.State)))
	},
}

func init() {
	registerCmd.Flags().StringVarP(&registerType, "type", "t", "", "Document type (inferred from frontmatter when omitted)")
	registerCmd.Flags().StringVar(&registerOwner, "owner", "", "Owning role or person")
	registerCmd.Flags().StringArrayVar(&registerTags, "tag", nil, "Tag (repeatable)")
	registerCmd.Flags().StringVar(&registerPriority, "priority", "", "Priority label (P0..P3)")
	registerCmd.Flags().StringVar(&registerDue, "due", "", "First review due date (\"30d\", \"next month\", or 2026-01-02)")
	rootCmd.AddCommand(registerCmd)
}
