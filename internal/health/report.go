package health

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gao-dev/doclife/internal/types"
)

// Markdown renders the report for terminal or file output.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Documentation Health Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total documents: %d\n\n", r.TotalDocuments)

	b.WriteString("## Inventory\n\n")
	b.WriteString("| State | Count |\n|-------|-------|\n")
	for _, state := range sortedStateKeys(r.ByState) {
		fmt.Fprintf(&b, "| %s | %d |\n", state, r.ByState[state])
	}
	b.WriteString("\n| Type | Count |\n|------|-------|\n")
	for _, docType := range sortedTypeKeys(r.ByType) {
		fmt.Fprintf(&b, "| %s | %d |\n", docType, r.ByType[docType])
	}
	b.WriteString("\n")

	b.WriteString("## Compliance\n\n")
	fmt.Fprintf(&b, "- Naming: %.0f%%\n", r.NamingRate*100)
	fmt.Fprintf(&b, "- Frontmatter: %.0f%%\n", r.FrontmatterRate*100)
	if r.TotalDocuments > 0 {
		fmt.Fprintf(&b, "- Age: mean %d days, min %d, max %d\n", r.Ages.MeanDays, r.Ages.MinDays, r.Ages.MaxDays)
	}
	b.WriteString("\n")

	b.WriteString("## Action Items\n\n")
	if len(r.ActionItems) == 0 {
		b.WriteString("None. The registry is healthy.\n")
		return b.String()
	}
	for _, item := range r.ActionItems {
		fmt.Fprintf(&b, "### %s (%d, %s)\n\n%s\n\n", item.Type, item.Count, item.Severity, item.Description)
		for _, step := range item.ResolutionSteps {
			fmt.Fprintf(&b, "- %s\n", step)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func sortedStateKeys(byState map[types.DocState]int) []types.DocState {
	keys := make([]types.DocState, 0, len(byState))
	for s := range byState {
		keys = append(keys, s)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedTypeKeys(byType map[types.DocType]int) []types.DocType {
	keys := make([]types.DocType, 0, len(byType))
	for t := range byType {
		keys = append(keys, t)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
