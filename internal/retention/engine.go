package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gao-dev/doclife/internal/lifecycle"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/telemetry"
	"github.com/gao-dev/doclife/internal/types"
)

// Action is the verdict of a retention evaluation.
type Action string

// Action verdicts
const (
	ActionArchive Action = "archive"
	ActionDelete  Action = "delete"
	ActionNone    Action = "none"
)

// ArchivalAction is one evaluated document with its verdict. For
// ActionNone, DaysUntilAction carries the days remaining until the
// action would trigger (0 when it never will).
type ArchivalAction struct {
	Document        *types.Document
	Action          Action
	Reason          string
	DaysUntilAction int
}

// Engine evaluates retention policies and runs sweeps.
type Engine struct {
	store    storage.Storage
	manager  *lifecycle.Manager
	policies map[types.DocType]Policy
	root     string

	actions metric.Int64Counter
}

// New creates an Engine. The manager performs archive file moves; root
// resolves relative document paths for hard deletion.
func New(store storage.Storage, manager *lifecycle.Manager, policies map[types.DocType]Policy, root string) *Engine {
	e := &Engine{store: store, manager: manager, policies: policies, root: root}
	e.actions, _ = telemetry.Meter("").Int64Counter("doclife.retention.actions")
	return e
}

// obsoleteSince returns the moment the document went obsolete: the last
// audited transition into obsolete, or modified_at when the state was
// set without one (imports, direct updates).
func (e *Engine) obsoleteSince(ctx context.Context, doc *types.Document) time.Time {
	tr, err := e.store.LastTransitionTo(ctx, doc.ID, types.StateObsolete)
	if err == nil && tr != nil {
		return tr.ChangedAt
	}
	return doc.ModifiedAt
}

// EvaluateArchive decides whether an obsolete document should move to
// the archive.
func (e *Engine) EvaluateArchive(ctx context.Context, doc *types.Document, now time.Time) ArchivalAction {
	policy, ok := e.policies[doc.Type]
	if !ok {
		return ArchivalAction{Document: doc, Action: ActionNone,
			Reason: fmt.Sprintf("no retention policy for type %s", doc.Type)}
	}
	if policy.ObsoleteToArchive == Unlimited {
		return ArchivalAction{Document: doc, Action: ActionNone,
			Reason: "policy never archives obsolete documents"}
	}

	age := daysBetween(e.obsoleteSince(ctx, doc), now)
	if age >= policy.ObsoleteToArchive {
		return ArchivalAction{Document: doc, Action: ActionArchive,
			Reason: fmt.Sprintf("obsolete for %d days (threshold %d)", age, policy.ObsoleteToArchive)}
	}
	return ArchivalAction{Document: doc, Action: ActionNone,
		Reason:          fmt.Sprintf("obsolete for %d of %d days", age, policy.ObsoleteToArchive),
		DaysUntilAction: policy.ObsoleteToArchive - age}
}

// EvaluateDelete decides whether an archived document may be hard
// deleted. The compliance-tag hold is checked before anything else.
func (e *Engine) EvaluateDelete(doc *types.Document, now time.Time) ArchivalAction {
	policy, ok := e.policies[doc.Type]
	if !ok {
		return ArchivalAction{Document: doc, Action: ActionNone,
			Reason: fmt.Sprintf("no retention policy for type %s", doc.Type)}
	}

	if protecting := protectingTags(doc, policy); len(protecting) > 0 {
		return ArchivalAction{Document: doc, Action: ActionNone,
			Reason: fmt.Sprintf("protected by compliance tags: %s", strings.Join(protecting, ", "))}
	}
	if !policy.DeleteAfterArchive {
		return ArchivalAction{Document: doc, Action: ActionNone,
			Reason: "policy retains archived documents indefinitely"}
	}
	if policy.ArchiveRetention == Unlimited {
		return ArchivalAction{Document: doc, Action: ActionNone,
			Reason: "policy has unlimited archive retention"}
	}

	age := daysBetween(doc.ModifiedAt, now)
	if age >= policy.ArchiveRetention {
		return ArchivalAction{Document: doc, Action: ActionDelete,
			Reason: fmt.Sprintf("archived for %d days (retention %d)", age, policy.ArchiveRetention)}
	}
	return ArchivalAction{Document: doc, Action: ActionNone,
		Reason:          fmt.Sprintf("archived for %d of %d days", age, policy.ArchiveRetention),
		DaysUntilAction: policy.ArchiveRetention - age}
}

func protectingTags(doc *types.Document, policy Policy) []string {
	var protecting []string
	for _, tag := range policy.ComplianceTags {
		if doc.Metadata.HasTag(tag) {
			protecting = append(protecting, tag)
		}
	}
	return protecting
}

// ArchiveObsoleteDocuments evaluates every obsolete document and, unless
// dryRun is set, archives the ones whose threshold has passed. Per-item
// failures become warnings; the sweep continues. The returned actions
// are the intended ones, whether or not execution succeeded.
func (e *Engine) ArchiveObsoleteDocuments(ctx context.Context, dryRun bool) ([]ArchivalAction, []string, error) {
	state := types.StateObsolete
	docs, err := e.store.QueryDocuments(ctx, types.DocumentFilter{State: &state})
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	var actions []ArchivalAction
	var warnings []string
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return actions, warnings, err
		}

		action := e.EvaluateArchive(ctx, doc, now)
		actions = append(actions, action)
		if dryRun || action.Action != ActionArchive {
			continue
		}

		if _, err := e.manager.ArchiveDocument(ctx, doc.ID, action.Reason, "retention"); err != nil {
			warnings = append(warnings, fmt.Sprintf("archive %s: %v", doc.Path, err))
			continue
		}
		e.actions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(ActionArchive))))
	}
	return actions, warnings, nil
}

// CleanupExpiredDocuments evaluates every archived document and, unless
// dryRun is set, hard-deletes the expired ones (registry row and file).
// Compliance-protected documents always evaluate to ActionNone.
func (e *Engine) CleanupExpiredDocuments(ctx context.Context, dryRun bool) ([]ArchivalAction, []string, error) {
	state := types.StateArchived
	docs, err := e.store.QueryDocuments(ctx, types.DocumentFilter{State: &state})
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	var actions []ArchivalAction
	var warnings []string
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return actions, warnings, err
		}

		action := e.EvaluateDelete(doc, now)
		actions = append(actions, action)
		if dryRun || action.Action != ActionDelete {
			continue
		}

		if err := e.store.DeleteDocument(ctx, doc.ID, false); err != nil {
			warnings = append(warnings, fmt.Sprintf("delete %s: %v", doc.Path, err))
			continue
		}
		if err := e.removeFile(doc.Path); err != nil {
			warnings = append(warnings, fmt.Sprintf("remove file %s: %v", doc.Path, err))
		}
		e.actions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(ActionDelete))))
	}
	return actions, warnings, nil
}

func (e *Engine) removeFile(path string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.root, path)
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
