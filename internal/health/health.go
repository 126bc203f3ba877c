// Package health computes registry-wide documentation KPIs in a single
// pass and turns the findings into actionable items.
package health

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gao-dev/doclife/internal/frontmatter"
	"github.com/gao-dev/doclife/internal/governance"
	"github.com/gao-dev/doclife/internal/naming"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

// Severity grades an action item.
type Severity string

// Severity grades
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ActionItem is one finding with its suggested resolution.
type ActionItem struct {
	Type            string   `json:"type"`
	Count           int      `json:"count"`
	Severity        Severity `json:"severity"`
	Description     string   `json:"description"`
	ResolutionSteps []string `json:"resolution_steps"`
}

// AgeStats summarizes document ages in days since creation.
type AgeStats struct {
	MeanDays int `json:"mean_days"`
	MinDays  int `json:"min_days"`
	MaxDays  int `json:"max_days"`
}

// Report is a point-in-time health snapshot of the registry.
type Report struct {
	GeneratedAt           time.Time              `json:"generated_at"`
	TotalDocuments        int                    `json:"total_documents"`
	ByState               map[types.DocState]int `json:"by_state"`
	ByType                map[types.DocType]int  `json:"by_type"`
	StaleActive           []*types.Document      `json:"-"`
	OverdueReviews        []*types.Document      `json:"-"`
	Orphans               []*types.Document      `json:"-"`
	MissingOwners         []*types.Document      `json:"-"`
	BadNames              []*types.Document      `json:"-"`
	IncompleteFrontmatter []*types.Document      `json:"-"`
	NamingRate            float64                `json:"naming_compliance_rate"`
	FrontmatterRate       float64                `json:"frontmatter_compliance_rate"`
	Ages                  AgeStats               `json:"age_stats"`
	ActionItems           []ActionItem           `json:"action_items"`
}

// Checker runs health checks against the registry and docs tree.
type Checker struct {
	store  storage.Storage
	config *governance.Config
	root   string
}

// New creates a Checker. The governance config supplies review cadences
// used for staleness; root resolves relative document paths.
func New(store storage.Storage, config *governance.Config, root string) *Checker {
	return &Checker{store: store, config: config, root: root}
}

// Check walks every registered document once and computes all KPIs.
func (c *Checker) Check(ctx context.Context, now time.Time) (*Report, error) {
	docs, err := c.store.QueryDocuments(ctx, types.DocumentFilter{})
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:    now,
		TotalDocuments: len(docs),
		ByState:        make(map[types.DocState]int),
		ByType:         make(map[types.DocType]int),
	}

	var namingOK, fmChecked, fmOK int
	var ageSum int
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report.ByState[doc.State]++
		report.ByType[doc.Type]++

		age := int(now.Sub(doc.CreatedAt).Hours() / 24)
		ageSum += age
		if report.Ages.MinDays == 0 || age < report.Ages.MinDays {
			report.Ages.MinDays = age
		}
		if age > report.Ages.MaxDays {
			report.Ages.MaxDays = age
		}

		if c.isStaleActive(doc, now) {
			report.StaleActive = append(report.StaleActive, doc)
		}
		if doc.ReviewDueDate != nil && doc.ReviewDueDate.Before(now) && doc.State != types.StateArchived {
			report.OverdueReviews = append(report.OverdueReviews, doc)
		}
		if doc.Owner == "" && doc.State != types.StateArchived {
			report.MissingOwners = append(report.MissingOwners, doc)
		}

		if orphan, err := c.isOrphan(ctx, doc); err != nil {
			return nil, err
		} else if orphan {
			report.Orphans = append(report.Orphans, doc)
		}

		if naming.Validate(filepath.Base(doc.Path)) == nil {
			namingOK++
		} else {
			report.BadNames = append(report.BadNames, doc)
		}

		if complete, checked := c.frontmatterComplete(doc.Path); checked {
			fmChecked++
			if complete {
				fmOK++
			} else {
				report.IncompleteFrontmatter = append(report.IncompleteFrontmatter, doc)
			}
		}
	}

	if len(docs) > 0 {
		report.NamingRate = float64(namingOK) / float64(len(docs))
		report.Ages.MeanDays = ageSum / len(docs)
	}
	if fmChecked > 0 {
		report.FrontmatterRate = float64(fmOK) / float64(fmChecked)
	}
	report.ActionItems = buildActionItems(report)
	return report, nil
}

// isStaleActive reports whether an active document has gone unmodified
// longer than its type's review cadence. Types with no cadence never go
// stale.
func (c *Checker) isStaleActive(doc *types.Document, now time.Time) bool {
	if doc.State != types.StateActive {
		return false
	}
	cadence := c.config.Cadence(doc.Type)
	if cadence == governance.NeverReview {
		return false
	}
	return now.Sub(doc.ModifiedAt) > time.Duration(cadence)*24*time.Hour
}

// isOrphan reports whether a non-draft document has no relationships.
// Documents with a temp 5S classification are exempt.
func (c *Checker) isOrphan(ctx context.Context, doc *types.Document) (bool, error) {
	if doc.State == types.StateDraft || doc.Metadata.Classification() == types.ClassTemp {
		return false, nil
	}
	rels, err := c.store.GetRelationships(ctx, doc.ID)
	if err != nil {
		return false, err
	}
	return len(rels) == 0, nil
}

// frontmatterComplete reads the document file and checks its
// frontmatter. The second return is false when the file is missing,
// which drops the document from the compliance rate.
func (c *Checker) frontmatterComplete(path string) (complete, checked bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.root, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, false
	}
	fm, _, err := frontmatter.Extract(raw)
	if err != nil || fm == nil {
		return false, true
	}
	return fm.IsComplete(), true
}

func buildActionItems(r *Report) []ActionItem {
	var items []ActionItem
	add := func(kind string, count int, severity Severity, description string, steps ...string) {
		if count == 0 {
			return
		}
		items = append(items, ActionItem{
			Type: kind, Count: count, Severity: severity,
			Description: description, ResolutionSteps: steps,
		})
	}

	add("overdue_reviews", len(r.OverdueReviews), SeverityHigh,
		"documents with reviews past their due date",
		"run `doclife review due --overdue` to list them",
		"review each document and run `doclife review mark <id>`")
	add("missing_owners", len(r.MissingOwners), SeverityHigh,
		"documents without an owner",
		"run `doclife assign <id>` to apply RACI ownership")
	add("stale_active", len(r.StaleActive), SeverityMedium,
		"active documents unmodified past their review cadence",
		"confirm each document still reflects reality",
		"obsolete superseded documents with `doclife transition <id> obsolete`")
	add("orphaned_documents", len(r.Orphans), SeverityMedium,
		"non-draft documents with no relationships",
		"link each document to its parent with `doclife link`",
		"classify genuine scratch files as temp in their metadata")
	add("noncompliant_names", len(r.BadNames), SeverityLow,
		"files that do not match a recognized naming shape",
		"run `doclife naming suggest <path>` for a compliant rename")
	add("incomplete_frontmatter", len(r.IncompleteFrontmatter), SeverityLow,
		"document files missing required frontmatter keys",
		"add title, doc_type, status, and owner to each file's frontmatter")
	return items
}
