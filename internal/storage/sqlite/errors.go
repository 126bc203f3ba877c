package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gao-dev/doclife/internal/storage"
)

// wrapDBError wraps a database error with operation context.
// It converts sql.ErrNoRows to storage.ErrNotFound and unique-constraint
// violations to their typed equivalents so callers can errors.Is them.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if typed := classifyConstraint(err); typed != nil {
		return fmt.Errorf("%s: %w", op, typed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// wrapDBErrorf wraps a database error with formatted operation context.
func wrapDBErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return wrapDBError(fmt.Sprintf(format, args...), err)
}

// classifyConstraint maps SQLite constraint failures onto the registry's
// sentinel errors. The driver surfaces constraint violations as extended
// error strings; matching on the constraint target is stable across
// driver versions.
func classifyConstraint(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: documents.path"):
		return storage.ErrDuplicatePath
	case strings.Contains(msg, "UNIQUE constraint failed: relationships"):
		return storage.ErrDuplicateRelationship
	case strings.Contains(msg, "CHECK constraint failed"):
		return storage.ErrValidation
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return storage.ErrNotFound
	}
	return nil
}
