// Package scanner keeps the registry in sync with the docs tree: a full
// walk registers new files and refreshes changed ones, and watch mode
// follows filesystem events as they happen.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gao-dev/doclife/internal/frontmatter"
	"github.com/gao-dev/doclife/internal/lifecycle"
	"github.com/gao-dev/doclife/internal/naming"
	"github.com/gao-dev/doclife/internal/search"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

// debounceWindow coalesces editor write bursts in watch mode.
const debounceWindow = 250 * time.Millisecond

// docExtensions are the file types the scanner considers documents.
var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".gao-dev":     true,
	".archive":     true,
	"node_modules": true,
}

// Result summarizes one scan pass.
type Result struct {
	Registered int
	Updated    int
	Unchanged  int
	Warnings   []string
}

// Scanner walks a docs root and reconciles it with the registry.
type Scanner struct {
	store   storage.Storage
	manager *lifecycle.Manager
	engine  *search.Engine
	root    string
	author  string
}

// New creates a Scanner. Author is recorded on documents the scanner
// registers.
func New(store storage.Storage, manager *lifecycle.Manager, engine *search.Engine, root, author string) *Scanner {
	if author == "" {
		author = "scanner"
	}
	return &Scanner{store: store, manager: manager, engine: engine, root: root, author: author}
}

// Scan walks the docs root once. New files are registered, files whose
// content hash changed are refreshed and reindexed, and per-file
// failures become warnings rather than aborting the walk.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	result := &Result{}
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("walk %s: %v", path, err))
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !docExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if err := s.reconcile(ctx, path, result); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", path, err))
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// reconcile brings one file and its registry row into agreement.
func (s *Scanner) reconcile(ctx context.Context, path string, result *Result) error {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}

	doc, err := s.store.GetDocumentByPath(ctx, rel)
	if err != nil {
		return err
	}
	if doc == nil {
		return s.registerNew(ctx, path, rel, result)
	}

	hash, err := lifecycle.HashFile(path)
	if err != nil {
		return err
	}
	if hash == doc.ContentHash {
		result.Unchanged++
		return nil
	}

	if err := s.store.UpdateDocument(ctx, doc.ID, map[string]interface{}{
		types.FieldContentHash: hash,
	}); err != nil {
		return err
	}
	if s.engine != nil {
		if err := s.engine.ReindexContent(ctx, doc.ID); err != nil {
			return err
		}
	}
	result.Updated++
	return nil
}

func (s *Scanner) registerNew(ctx context.Context, path, rel string, result *Result) error {
	docType, err := s.inferType(path)
	if err != nil {
		return err
	}
	doc, err := s.manager.RegisterDocument(ctx, rel, docType, s.author, nil)
	if err != nil {
		return err
	}
	if s.engine != nil {
		if err := s.engine.ReindexContent(ctx, doc.ID); err != nil {
			return err
		}
	}
	result.Registered++
	return nil
}

// inferType resolves a file's document type from its frontmatter, then
// its filename.
func (s *Scanner) inferType(path string) (types.DocType, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if fm, _, err := frontmatter.Extract(raw); err == nil && fm != nil {
		if t := types.DocType(fm.DocType); t.IsValid() {
			return t, nil
		}
	}
	if n, err := naming.Parse(filepath.Base(path)); err == nil && n.Type != "" {
		return n.Type, nil
	}
	return "", fmt.Errorf("cannot determine document type")
}

// Watch follows filesystem events under the docs root until the context
// is cancelled, reconciling each created or written document file.
// Events arriving within the debounce window for the same path collapse
// into one reconcile. Warnings are delivered through warn, which may be
// nil.
func (s *Scanner) Watch(ctx context.Context, warn func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.root, err)
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounceWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if !skipDirs[filepath.Base(event.Name)] {
					_ = watcher.Add(event.Name)
				}
				continue
			}
			if docExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if warn != nil {
				warn(fmt.Sprintf("watch: %v", err))
			}
		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < debounceWindow {
					continue
				}
				delete(pending, path)
				result := &Result{}
				if err := s.reconcile(ctx, path, result); err != nil && warn != nil {
					warn(fmt.Sprintf("%s: %v", path, err))
				}
				for _, w := range result.Warnings {
					if warn != nil {
						warn(w)
					}
				}
			}
		}
	}
}
