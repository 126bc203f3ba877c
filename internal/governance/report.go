package governance

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gao-dev/doclife/internal/types"
)

// Report is a point-in-time governance snapshot.
type Report struct {
	GeneratedAt time.Time
	Overdue     []*types.Document
	Upcoming    []*types.Document
	Unowned     []*types.Document
	Stats       *types.Statistics
}

// BuildReport assembles a governance report: overdue reviews sorted by
// priority then lateness, reviews coming due within the week, documents
// without an owner, and registry totals. Archived documents are skipped
// throughout.
func (e *Engine) BuildReport(ctx context.Context, now time.Time) (*Report, error) {
	due, err := e.store.DocumentsDueForReview(ctx, "", dueSoonHorizon, false, now)
	if err != nil {
		return nil, err
	}

	report := &Report{GeneratedAt: now}
	for _, doc := range due {
		if doc.ReviewDueDate != nil && doc.ReviewDueDate.Before(now) {
			report.Overdue = append(report.Overdue, doc)
		} else {
			report.Upcoming = append(report.Upcoming, doc)
		}
	}
	e.sortByUrgency(report.Overdue, now)

	all, err := e.store.QueryDocuments(ctx, types.DocumentFilter{})
	if err != nil {
		return nil, err
	}
	for _, doc := range all {
		if doc.Owner == "" && doc.State != types.StateArchived {
			report.Unowned = append(report.Unowned, doc)
		}
	}
	sort.Slice(report.Unowned, func(i, j int) bool {
		return report.Unowned[i].Path < report.Unowned[j].Path
	})

	report.Stats, err = e.store.GetStatistics(ctx)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// sortByUrgency orders documents by priority rank, then by how many days
// overdue they are, most overdue first.
func (e *Engine) sortByUrgency(docs []*types.Document, now time.Time) {
	sort.SliceStable(docs, func(i, j int) bool {
		ri := e.config.PriorityRank(docs[i].Metadata.Priority())
		rj := e.config.PriorityRank(docs[j].Metadata.Priority())
		if ri != rj {
			return ri < rj
		}
		return daysOverdue(docs[i], now) > daysOverdue(docs[j], now)
	})
}

func daysOverdue(doc *types.Document, now time.Time) int {
	if doc.ReviewDueDate == nil {
		return 0
	}
	days := int(now.Sub(*doc.ReviewDueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// MarkdownReport renders a governance report.
func (e *Engine) MarkdownReport(r *Report) string {
	var b strings.Builder
	b.WriteString("# Governance Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))

	b.WriteString("## Overdue Reviews\n\n")
	if len(r.Overdue) == 0 {
		b.WriteString("None.\n\n")
	} else {
		b.WriteString("| Document | Type | Owner | Priority | Days overdue |\n")
		b.WriteString("|----------|------|-------|----------|--------------|\n")
		for _, doc := range r.Overdue {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %d |\n",
				doc.Path, doc.Type, doc.Owner, priorityLabel(doc), daysOverdue(doc, r.GeneratedAt))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Due Within 7 Days\n\n")
	if len(r.Upcoming) == 0 {
		b.WriteString("None.\n\n")
	} else {
		b.WriteString("| Document | Type | Owner | Due |\n")
		b.WriteString("|----------|------|-------|-----|\n")
		for _, doc := range r.Upcoming {
			due := ""
			if doc.ReviewDueDate != nil {
				due = doc.ReviewDueDate.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", doc.Path, doc.Type, doc.Owner, due)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Unowned Documents\n\n")
	if len(r.Unowned) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, doc := range r.Unowned {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", doc.Path, doc.Type, doc.State)
		}
		b.WriteString("\n")
	}

	if r.Stats != nil {
		b.WriteString("## Registry Totals\n\n")
		fmt.Fprintf(&b, "Total documents: %d\n\n", r.Stats.TotalDocuments)
		b.WriteString("| Type | Count |\n|------|-------|\n")
		for _, docType := range sortedTypeKeys(r.Stats.ByType) {
			fmt.Fprintf(&b, "| %s | %d |\n", docType, r.Stats.ByType[docType])
		}
		b.WriteString("\n")
	}

	return b.String()
}

// CSVReport renders the overdue and upcoming reviews as CSV.
func (e *Engine) CSVReport(r *Report) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"path", "type", "owner", "priority", "review_due_date", "days_overdue"}); err != nil {
		return "", err
	}
	for _, doc := range append(append([]*types.Document{}, r.Overdue...), r.Upcoming...) {
		due := ""
		if doc.ReviewDueDate != nil {
			due = doc.ReviewDueDate.Format("2006-01-02")
		}
		record := []string{
			doc.Path,
			string(doc.Type),
			doc.Owner,
			priorityLabel(doc),
			due,
			strconv.Itoa(daysOverdue(doc, r.GeneratedAt)),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func priorityLabel(doc *types.Document) string {
	if p := doc.Metadata.Priority(); p != "" {
		return p
	}
	return defaultPriorityKey
}

func sortedTypeKeys(byType map[types.DocType]int) []types.DocType {
	keys := make([]types.DocType, 0, len(byType))
	for t := range byType {
		keys = append(keys, t)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
