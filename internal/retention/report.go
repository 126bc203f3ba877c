package retention

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gao-dev/doclife/internal/types"
)

// MarkdownReport renders evaluated actions grouped by document type,
// with each type's policy configuration inline.
func (e *Engine) MarkdownReport(actions []ArchivalAction, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Retention Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02 15:04"))

	if len(actions) == 0 {
		b.WriteString("No documents evaluated.\n")
		return b.String()
	}

	byType := groupByType(actions)
	for _, docType := range sortedTypes(byType) {
		fmt.Fprintf(&b, "## %s\n\n", docType)
		if policy, ok := e.policies[docType]; ok {
			fmt.Fprintf(&b, "Policy: obsolete_to_archive=%d, archive_retention=%d, delete_after_archive=%t",
				policy.ObsoleteToArchive, policy.ArchiveRetention, policy.DeleteAfterArchive)
			if len(policy.ComplianceTags) > 0 {
				fmt.Fprintf(&b, ", compliance_tags=[%s]", strings.Join(policy.ComplianceTags, ", "))
			}
			b.WriteString("\n\n")
		} else {
			b.WriteString("Policy: none\n\n")
		}

		b.WriteString("| Document | State | Action | Reason | Days until action |\n")
		b.WriteString("|----------|-------|--------|--------|-------------------|\n")
		for _, a := range byType[docType] {
			days := ""
			if a.DaysUntilAction > 0 {
				days = strconv.Itoa(a.DaysUntilAction)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				a.Document.Path, a.Document.State, a.Action, a.Reason, days)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// CSVReport renders the same actions as CSV with a header row.
func (e *Engine) CSVReport(actions []ArchivalAction) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"path", "type", "state", "action", "reason", "days_until_action"}); err != nil {
		return "", err
	}
	for _, a := range actions {
		record := []string{
			a.Document.Path,
			string(a.Document.Type),
			string(a.Document.State),
			string(a.Action),
			a.Reason,
			strconv.Itoa(a.DaysUntilAction),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func groupByType(actions []ArchivalAction) map[types.DocType][]ArchivalAction {
	byType := make(map[types.DocType][]ArchivalAction)
	for _, a := range actions {
		byType[a.Document.Type] = append(byType[a.Document.Type], a)
	}
	return byType
}

func sortedTypes(byType map[types.DocType][]ArchivalAction) []types.DocType {
	docTypes := make([]types.DocType, 0, len(byType))
	for t := range byType {
		docTypes = append(docTypes, t)
	}
	sort.Slice(docTypes, func(i, j int) bool { return docTypes[i] < docTypes[j] })
	return docTypes
}
