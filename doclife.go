// Package doclife provides a minimal public API for building custom
// tooling on top of the doclife document registry.
//
// Most automation should shell out to the doclife CLI. This package
// exports only the essential types and functions for Go programs that
// want to read or update the registry programmatically.
package doclife

import (
	"context"

	"github.com/gao-dev/doclife/internal/config"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/storage/sqlite"
	"github.com/gao-dev/doclife/internal/types"
)

// Core types for working with documents
type (
	Document       = types.Document
	DocType        = types.DocType
	DocState       = types.DocState
	DocumentFilter = types.DocumentFilter
)

// DocState constants
const (
	StateDraft    = types.StateDraft
	StateActive   = types.StateActive
	StateObsolete = types.StateObsolete
	StateArchived = types.StateArchived
)

// DocType constants
const (
	TypePRD          = types.TypePRD
	TypeArchitecture = types.TypeArchitecture
	TypeEpic         = types.TypeEpic
	TypeStory        = types.TypeStory
	TypeADR          = types.TypeADR
	TypePostmortem   = types.TypePostmortem
	TypeRunbook      = types.TypeRunbook
	TypeQAReport     = types.TypeQAReport
	TypeTestReport   = types.TypeTestReport
)

// Storage provides the registry interface for external orchestration
type Storage = storage.Storage

// Open opens a doclife registry database for programmatic access,
// running any pending migrations.
func Open(ctx context.Context, dbPath string) (Storage, error) {
	return sqlite.New(ctx, dbPath)
}

// FindProjectRoot walks up from dir looking for a .gao-dev directory
// and returns the project root containing it.
func FindProjectRoot(dir string) (string, error) {
	return config.FindProjectRoot(dir)
}
