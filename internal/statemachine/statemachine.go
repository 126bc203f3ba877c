// Package statemachine enforces the document lifecycle:
//
//	draft    -> active, archived
//	active   -> obsolete, archived
//	obsolete -> archived
//	archived -> (terminal)
//
// Transitions run in a single transaction together with their audit rows
// and with the single-active succession rule, so a crash never leaves a
// state change unaudited or two active documents for one feature.
package statemachine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

// InvalidTransitionError reports a transition not in the lifecycle table.
// From == To is always invalid; a transition is never a silent no-op.
type InvalidTransitionError struct {
	From types.DocState
	To   types.DocState
}

func (e *InvalidTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("document is already %s", e.From)
	}
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// allowedTransitions is the lifecycle table. Absent states (archived)
// have no outgoing transitions.
var allowedTransitions = map[types.DocState][]types.DocState{
	types.StateDraft:    {types.StateActive, types.StateArchived},
	types.StateActive:   {types.StateObsolete, types.StateArchived},
	types.StateObsolete: {types.StateArchived},
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to types.DocState) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the states reachable from the given state.
func AllowedTargets(from types.DocState) []types.DocState {
	return allowedTransitions[from]
}

// RequiresReason reports whether a transition into the state needs a
// non-empty reason.
func RequiresReason(to types.DocState) bool {
	return to == types.StateObsolete || to == types.StateArchived
}

// Hook observes transitions. OnBefore runs before any write and may veto
// the transition by returning an error; OnAfter runs after the commit.
type Hook interface {
	OnBefore(ctx context.Context, doc *types.Document, to types.DocState) error
	OnAfter(ctx context.Context, doc *types.Document, from, to types.DocState)
}

// Machine executes lifecycle transitions against a storage backend.
type Machine struct {
	store storage.Storage
	hooks []Hook
}

// New creates a Machine on the given store.
func New(store storage.Storage) *Machine {
	return &Machine{store: store}
}

// RegisterHook appends a hook. Hooks run in registration order.
func (m *Machine) RegisterHook(h Hook) {
	m.hooks = append(m.hooks, h)
}

// Transition moves the document to the target state.
//
// When the target is active and the document carries a feature, any other
// active document with the same (type, feature) is moved to obsolete in
// the same transaction, with a reason naming its successor. Audit rows
// for both transitions commit atomically with the state changes.
func (m *Machine) Transition(ctx context.Context, docID int64, to types.DocState, reason, changedBy string) (*types.Document, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: invalid document state: %s", storage.ErrValidation, to)
	}
	if RequiresReason(to) && strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: a reason is required when transitioning to %s", storage.ErrValidation, to)
	}

	doc, err := m.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(doc.State, to) {
		return nil, &InvalidTransitionError{From: doc.State, To: to}
	}

	for _, h := range m.hooks {
		if err := h.OnBefore(ctx, doc, to); err != nil {
			return nil, fmt.Errorf("transition vetoed: %w", err)
		}
	}

	from := doc.State
	err = m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		// Re-read inside the transaction: the state may have moved since
		// the pre-check, and the table must be enforced on the committed
		// state, not a stale read.
		current, err := tx.GetDocument(ctx, docID)
		if err != nil {
			return err
		}
		if !CanTransition(current.State, to) {
			return &InvalidTransitionError{From: current.State, To: to}
		}
		from = current.State
		now := time.Now().UTC()

		if to == types.StateActive && current.Feature != "" {
			if err := m.demoteActivePeer(ctx, tx, current, now, changedBy); err != nil {
				return err
			}
		}

		if err := tx.UpdateDocumentState(ctx, docID, to, now); err != nil {
			return err
		}
		return tx.AppendTransition(ctx, &types.StateTransition{
			DocumentID: docID,
			FromState:  from,
			ToState:    to,
			Reason:     reason,
			ChangedBy:  changedBy,
			ChangedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	doc.State = to
	for _, h := range m.hooks {
		h.OnAfter(ctx, doc, from, to)
	}
	return doc, nil
}

// demoteActivePeer obsoletes the currently active document sharing the
// activating document's (type, feature), if one exists.
func (m *Machine) demoteActivePeer(ctx context.Context, tx storage.Transaction, doc *types.Document, now time.Time, changedBy string) error {
	peer, err := tx.FindActivePeer(ctx, doc.Type, doc.Feature, doc.ID)
	if err != nil {
		return err
	}
	if peer == nil {
		return nil
	}
	if err := tx.UpdateDocumentState(ctx, peer.ID, types.StateObsolete, now); err != nil {
		return fmt.Errorf("demote document %d: %w", peer.ID, err)
	}
	return tx.AppendTransition(ctx, &types.StateTransition{
		DocumentID: peer.ID,
		FromState:  types.StateActive,
		ToState:    types.StateObsolete,
		Reason:     fmt.Sprintf("Replaced by document %d", doc.ID),
		ChangedBy:  changedBy,
		ChangedAt:  now,
	})
}
