package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:     "review",
	GroupID: "docs",
	Short:   "Manage document reviews",
}

var (
	reviewDueOwner   string
	reviewDueOverdue bool
)

var reviewDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List documents overdue or due for review within a week",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())

		gov := a.governanceEngine()
		docs, err := gov.CheckReviewDue(cmd.Context(), reviewDueOwner, reviewDueOverdue, time.Now().UTC())
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(docs)
			return
		}
		if len(docs) == 0 {
			fmt.Println("Nothing due for review.")
			return
		}
		for _, doc := range docs {
			due := ""
			if doc.ReviewDueDate != nil {
				due = doc.ReviewDueDate.Format("2006-01-02")
			}
			fmt.Printf("%4d  %-10s  due %s  %s\n", doc.ID, doc.Owner, due, doc.Path)
		}
	},
}

var reviewNotes string

var reviewMarkCmd = &cobra.Command{
	Use:   "mark <id|path>",
	Short: "Record a completed review and schedule the next one",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		doc := resolveDocArg(cmd, args[0])

		gov := a.governanceEngine()
		review, err := gov.MarkReviewed(cmd.Context(), doc.ID, a.author(), reviewNotes, time.Now().UTC())
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(review)
			return
		}
		if review.NextReviewDue != nil {
			fmt.Printf("Reviewed document %d; next review due %s\n", doc.ID, review.NextReviewDue.Format("2006-01-02"))
		} else {
			fmt.Printf("Reviewed document %d; no further reviews scheduled\n", doc.ID)
		}
	},
}

var reviewHistoryCmd = &cobra.Command{
	Use:   "history <id|path>",
	Short: "Show a document's review history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		doc := resolveDocArg(cmd, args[0])

		reviews, err := a.store.GetReviewHistory(cmd.Context(), doc.ID)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(reviews)
			return
		}
		if len(reviews) == 0 {
			fmt.Println("No reviews recorded.")
			return
		}
		for _, r := range reviews {
			fmt.Printf("%s  by %-12s", r.ReviewedAt.Format("2006-01-02"), r.Reviewer)
			if r.Notes != "" {
				fmt.Printf("  %s", r.Notes)
			}
			fmt.Println()
		}
	},
}

var assignCmd = &cobra.Command{
	Use:     "assign <id|path...>",
	GroupID: "docs",
	Short:   "Apply RACI ownership to documents",
	Long: `Sets owner and reviewer from the governance ownership table for each
document's type and schedules the first review per the type's cadence.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		gov := a.governanceEngine()
		now := time.Now().UTC()

		for _, arg := range args {
			doc := resolveDocArg(cmd, arg)
			updated, err := gov.AutoAssignOwnership(cmd.Context(), doc.ID, now)
			if err != nil {
				fmt.Printf("Error: assign %s: %v\n", doc.Path, err)
				continue
			}
			if !jsonOutput {
				fmt.Printf("Assigned %s to %s (reviewer %s)\n", updated.Path, updated.Owner, updated.Reviewer)
			}
		}
	},
}

func init() {
	reviewDueCmd.Flags().StringVar(&reviewDueOwner, "owner", "", "Filter by owner")
	reviewDueCmd.Flags().BoolVar(&reviewDueOverdue, "overdue", false, "Only overdue reviews")
	reviewMarkCmd.Flags().StringVarP(&reviewNotes, "notes", "m", "", "Review notes")
	reviewCmd.AddCommand(reviewDueCmd, reviewMarkCmd, reviewHistoryCmd)
	rootCmd.AddCommand(reviewCmd, assignCmd)
}
