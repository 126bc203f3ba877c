package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/types"
)

var transitionReason string

var transitionCmd = &cobra.Command{
	Use:     "transition <id|path> <state>",
	GroupID: "docs",
	Short:   "Move a document to a new lifecycle state",
	Long: `Valid transitions: draft -> active, draft -> archived,
active -> obsolete, active -> archived, obsolete -> archived.
Activation demotes the previously active document for the same type and
feature. Obsoleting and archiving require --reason.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		doc := resolveDocArg(cmd, args[0])
		runTransition(cmd, a, doc.ID, types.DocState(args[1]))
	},
}

var activateCmd = &cobra.Command{
	Use:     "activate <id|path>",
	GroupID: "docs",
	Short:   "Activate a document (shorthand for transition to active)",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		doc := resolveDocArg(cmd, args[0])
		runTransition(cmd, a, doc.ID, types.StateActive)
	},
}

var obsoleteCmd = &cobra.Command{
	Use:     "obsolete <id|path>",
	GroupID: "docs",
	Short:   "Obsolete a document (shorthand for transition to obsolete)",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		doc := resolveDocArg(cmd, args[0])
		runTransition(cmd, a, doc.ID, types.StateObsolete)
	},
}

func runTransition(cmd *cobra.Command, a *app, id int64, to types.DocState) {
	ctx := cmd.Context()
	doc, err := a.manager.TransitionState(ctx, id, to, transitionReason, a.author())
	if err != nil {
		FatalError("%v", err)
	}
	if jsonOutput {
		outputJSON(doc)
		return
	}
	fmt.Printf("Document %d is now %s\n", doc.ID, styledState(string(doc.State)))
}

func init() {
	for _, c := range []*cobra.Command{transitionCmd, activateCmd, obsoleteCmd} {
		c.Flags().StringVarP(&transitionReason, "reason", "r", "", "Reason recorded in the audit trail")
		rootCmd.AddCommand(c)
	}
}
