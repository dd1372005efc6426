// Package obsidian adapts a local Obsidian vault as a note source.
//
// A vault is a directory tree of markdown files. The integration
// filter's glob patterns (doublestar syntax) select which files
// belong to a connection; a file's vault-relative path is its
// external ID. Incremental pulls compare file modification times
// against the cursor, so a cycle delivers only files touched since
// the last committed batch. Deletions are not detectable from
// modification times alone and are only surfaced by Watch.
package obsidian

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/inkwell-sync/inkwell/internal/content"
	"github.com/inkwell-sync/inkwell/internal/core/domain"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driven"
	"github.com/inkwell-sync/inkwell/internal/logger"
)

// Ensure Adapter implements the interfaces.
var (
	_ driven.SourceAdapter   = (*Adapter)(nil)
	_ driven.WatchingAdapter = (*Adapter)(nil)
)

// Adapter reads markdown notes from one vault root.
type Adapter struct {
	root string
	now  func() time.Time
}

// New creates an adapter for the vault rooted at root.
func New(root string) *Adapter {
	return &Adapter{root: root, now: time.Now}
}

// Kind returns the source kind identifier.
func (a *Adapter) Kind() string {
	return domain.KindObsidian
}

// Sync scans the vault for files matching the filter patterns and
// returns an upsert for every file modified after the cursor. Files
// scanned but unchanged count as skipped in the result stats.
func (a *Adapter) Sync(ctx context.Context, scope domain.IntegrationFilter, cursor *domain.SyncCursor) (*domain.SyncResult, error) {
	if scope.Kind != domain.KindObsidian {
		return nil, fmt.Errorf("%w: obsidian adapter got filter kind %q", domain.ErrInvalidFilter, scope.Kind)
	}
	if _, err := os.Stat(a.root); err != nil {
		return nil, fmt.Errorf("%w: vault root %s: %v", domain.ErrAdapterFailure, a.root, err)
	}

	since := time.Time{}
	if cursor != nil {
		since = cursor.Since
	}
	// Files modified while the scan runs land in the next cycle.
	scanStart := a.now()

	paths, err := a.matchPatterns(scope.Patterns)
	if err != nil {
		return nil, err
	}

	result := &domain.SyncResult{NextCursor: domain.SyncCursor{Since: scanStart}}
	type entry struct {
		item  domain.SyncItem
		mtime time.Time
	}
	var entries []entry

	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrAdapterFailure, err)
		}

		info, err := os.Stat(filepath.Join(a.root, rel))
		if err != nil || info.IsDir() {
			continue
		}
		result.Stats.Items++

		if !info.ModTime().After(since) {
			result.Stats.Skipped++
			continue
		}

		raw, err := os.ReadFile(filepath.Join(a.root, rel))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrAdapterFailure, rel, err)
		}

		mtime := info.ModTime()
		entries = append(entries, entry{
			item:  a.itemFor(rel, string(raw), mtime),
			mtime: mtime,
		})
		result.Stats.Upserts++
	}

	// Oldest first: within a batch a later item is the newer state.
	sort.Slice(entries, func(i, j int) bool { return entries[i].mtime.Before(entries[j].mtime) })
	for _, e := range entries {
		result.Items = append(result.Items, e.item)
	}

	logger.Debug("obsidian scan of %s: %d files, %d changed", a.root, result.Stats.Items, result.Stats.Upserts)
	return result, nil
}

// matchPatterns resolves the filter globs against the vault root and
// returns the deduplicated, sorted set of relative paths.
func (a *Adapter) matchPatterns(patterns []string) ([]string, error) {
	fsys := os.DirFS(a.root)
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", domain.ErrInvalidFilter, pattern, err)
		}
		for _, m := range matches {
			seen[m] = struct{}{}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// itemFor builds the upsert for one vault file. The declared hash is
// computed the same way reconciliation recomputes it.
func (a *Adapter) itemFor(rel, raw string, mtime time.Time) domain.SyncItem {
	return domain.SyncItem{
		Op:              domain.OpUpsert,
		ExternalID:      filepath.ToSlash(rel),
		Title:           titleOf(rel, raw),
		ContentMarkdown: raw,
		ContentHash:     content.HashContent(raw),
		UpdatedAtSource: &mtime,
		Metadata:        map[string]any{"path": filepath.ToSlash(rel)},
	}
}

// titleOf prefers the first H1 heading, falling back to the file name
// without its extension.
func titleOf(rel, raw string) string {
	for _, line := range strings.SplitN(raw, "\n", 20) {
		trimmed := strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(trimmed, "# "); ok {
			return strings.TrimSpace(after)
		}
	}
	name := filepath.Base(rel)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// walkDirs returns every directory under the vault root, for watcher
// registration.
func (a *Adapter) walkDirs() ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Obsidian keeps workspace state under .obsidian; never a note.
			if d.Name() == ".obsidian" {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk vault: %v", domain.ErrAdapterFailure, err)
	}
	return dirs, nil
}
