package lifecycle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

// ArchiveDocument moves the document's file under the archive root,
// transitions it to archived, and updates its registered path.
//
// Relative paths keep their layout under the archive root; absolute
// paths land in the root by basename. The file move degrades gracefully:
// a missing source is skipped, a failed rename falls back to
// copy-then-unlink, and a failed unlink still lets the registry update
// proceed (leaving a duplicate on disk until a later cleanup).
func (m *Manager) ArchiveDocument(ctx context.Context, id int64, reason, changedBy string) (*types.Document, error) {
	doc, err := m.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.State == types.StateArchived {
		return nil, fmt.Errorf("%w: document %d is already archived", storage.ErrValidation, id)
	}

	newPath := m.archivePath(doc.Path)
	if err := m.moveFile(ctx, m.resolve(doc.Path), m.resolve(newPath)); err != nil {
		return nil, fmt.Errorf("archive document %d: %w", id, err)
	}

	if reason == "" {
		reason = fmt.Sprintf("Archived to %s", newPath)
	}
	if _, err := m.machine.Transition(ctx, id, types.StateArchived, reason, changedBy); err != nil {
		return nil, err
	}
	if err := m.store.UpdateDocument(ctx, id, map[string]interface{}{
		types.FieldPath: newPath,
	}); err != nil {
		return nil, err
	}

	m.archived.Add(ctx, 1, metric.WithAttributes(attribute.String("doc_type", string(doc.Type))))
	doc.State = types.StateArchived
	doc.Path = newPath
	return doc, nil
}

// archivePath maps a document path to its location under the archive
// root: relative paths are preserved, absolute paths go by basename.
func (m *Manager) archivePath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Join(m.archive, filepath.Base(path))
	}
	return filepath.Join(m.archive, path)
}

// moveFile relocates src to dst. Rename is retried briefly (transient
// locks on some platforms), then copy-then-unlink covers the
// cross-filesystem case. A missing source is not an error.
func (m *Manager) moveFile(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(50*time.Millisecond), 3), ctx)
	err := backoff.Retry(func() error {
		return os.Rename(src, dst)
	}, policy)
	if err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copy to archive: %w", err)
	}
	// Unlink failure leaves a duplicate behind; the registry update is
	// more important than the orphan.
	_ = os.Remove(src)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
