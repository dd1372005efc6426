package obsidian

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
	"github.com/inkwell-sync/inkwell/internal/logger"
)

// Watch emits a sync item for every vault file change matching the
// filter patterns until ctx is cancelled. Removals surface as delete
// items; creates and writes as upserts. New subdirectories are added
// to the watch as they appear.
func (a *Adapter) Watch(ctx context.Context, scope domain.IntegrationFilter) (<-chan domain.SyncItem, <-chan error) {
	items := make(chan domain.SyncItem)
	errs := make(chan error, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		errs <- fmt.Errorf("%w: create watcher: %v", domain.ErrAdapterFailure, err)
		close(items)
		close(errs)
		return items, errs
	}

	dirs, err := a.walkDirs()
	if err != nil {
		watcher.Close()
		errs <- err
		close(items)
		close(errs)
		return items, errs
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("obsidian watch: cannot watch %s: %v", dir, err)
		}
	}

	go func() {
		defer close(items)
		defer close(errs)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				a.handleEvent(ctx, watcher, scope, event, items)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("obsidian watch: %v", err)
			}
		}
	}()

	return items, errs
}

func (a *Adapter) handleEvent(
	ctx context.Context,
	watcher *fsnotify.Watcher,
	scope domain.IntegrationFilter,
	event fsnotify.Event,
	items chan<- domain.SyncItem,
) {
	rel, err := filepath.Rel(a.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if filepath.Base(event.Name) != ".obsidian" {
				if err := watcher.Add(event.Name); err != nil {
					logger.Warn("obsidian watch: cannot watch %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !matchesAny(scope.Patterns, rel) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		now := time.Now()
		emit(ctx, items, domain.SyncItem{
			Op:              domain.OpDelete,
			ExternalID:      rel,
			DeletedAtSource: &now,
		})

	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return
		}
		raw, err := os.ReadFile(event.Name)
		if err != nil {
			logger.Warn("obsidian watch: read %s: %v", rel, err)
			return
		}
		emit(ctx, items, a.itemFor(rel, string(raw), info.ModTime()))
	}
}

func matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func emit(ctx context.Context, items chan<- domain.SyncItem, item domain.SyncItem) {
	select {
	case <-ctx.Done():
	case items <- item:
	}
}
