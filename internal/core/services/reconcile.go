package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/inkwell-sync/inkwell/internal/content"
	"github.com/inkwell-sync/inkwell/internal/core/domain"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driven"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driving"
	"github.com/inkwell-sync/inkwell/internal/logger"
	"github.com/inkwell-sync/inkwell/internal/pool"
)

// Ensure Reconciler implements the interface.
var _ driving.SyncRunner = (*Reconciler)(nil)

// Reconciler runs sync cycles: it pulls a change batch from a source
// adapter, validates and applies it in order against the document
// store, then advances the connection cursor as one atomic commit.
//
// A cycle runs to completion or not at all. Because every item is
// hash- and state-gated, re-running the identical batch after a
// failure reproduces the same final state with no double-counted
// version bumps, which is what makes plain retries safe.
type Reconciler struct {
	connections driven.ConnectionStore
	docs        driven.DocumentStore
	registry    *AdapterRegistry
	slots       *pool.Pool

	// Injectable for tests.
	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	inFlight map[domain.ConnectionKey]struct{}
}

// NewReconciler creates a reconciler bounded by the given pool.
func NewReconciler(
	connections driven.ConnectionStore,
	docs driven.DocumentStore,
	registry *AdapterRegistry,
	slots *pool.Pool,
) *Reconciler {
	return &Reconciler{
		connections: connections,
		docs:        docs,
		registry:    registry,
		slots:       slots,
		now:         time.Now,
		newID:       uuid.NewString,
		inFlight:    make(map[domain.ConnectionKey]struct{}),
	}
}

// RunCycle executes one sync cycle for the connection.
func (r *Reconciler) RunCycle(ctx context.Context, connectionID string) (*driving.CycleReport, error) {
	started := r.now()

	conn, err := r.connections.Get(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", connectionID, err)
	}
	if err := conn.Filter.Validate(); err != nil {
		return nil, fmt.Errorf("connection %s: %w", connectionID, err)
	}

	adapter, err := r.registry.Resolve(conn.Kind)
	if err != nil {
		return nil, fmt.Errorf("connection %s: %w", connectionID, err)
	}

	if err := r.slots.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire sync slot: %w", err)
	}
	defer r.slots.Release()

	key := conn.Key()
	if !r.tryLock(key) {
		return nil, fmt.Errorf("connection %s: %w", key, domain.ErrSyncInProgress)
	}
	defer r.unlock(key)

	cursor, err := r.loadCursor(ctx, key)
	if err != nil {
		return nil, err
	}

	logger.Info("Starting sync cycle for %s since %s", key, cursor.Since.Format(time.RFC3339))

	result, err := adapter.Sync(ctx, conn.Filter, &cursor)
	if err != nil {
		return nil, asAdapterFailure(fmt.Errorf("adapter sync %s: %w", key, err))
	}
	if err := result.ValidateEnvelope(); err != nil {
		return nil, asAdapterFailure(fmt.Errorf("adapter sync %s: %w", key, err))
	}

	writes, report, err := r.applyBatch(ctx, conn, result)
	if err != nil {
		return nil, err
	}

	next := nextCursor(cursor, result.NextCursor)
	if err := r.docs.CommitCycle(ctx, writes, key, next); err != nil {
		return nil, asStoreFailure(fmt.Errorf("commit cycle %s: %w", key, err))
	}

	report.ConnectionID = connectionID
	report.Cursor = next
	report.Duration = r.now().Sub(started)

	logger.Info("Sync cycle complete for %s: %d items, %d upserts, %d deletes, %d skipped",
		key, report.Stats.Items, report.Stats.Upserts, report.Stats.Deletes, report.Stats.Skipped)
	return report, nil
}

// RunAll executes one cycle per configured connection. Cycles run
// concurrently; the pool bounds how many are actually in flight.
func (r *Reconciler) RunAll(ctx context.Context) ([]driving.CycleReport, error) {
	conns, err := r.connections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	var (
		mu      sync.Mutex
		reports []driving.CycleReport
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			report, err := r.RunCycle(ctx, conn.ID)
			if err != nil {
				return fmt.Errorf("sync %s: %w", conn.ID, err)
			}
			mu.Lock()
			reports = append(reports, *report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

// applyBatch validates and applies items strictly in the order
// received, staging writes without touching the store. Within the
// batch, staged state shadows stored state: a later item for the same
// natural key sees what the earlier one produced.
func (r *Reconciler) applyBatch(
	ctx context.Context,
	conn *domain.Connection,
	result *domain.SyncResult,
) ([]domain.DocumentWrite, *driving.CycleReport, error) {
	report := &driving.CycleReport{}
	staged := make(map[domain.NaturalKey]*domain.Document)
	var writes []domain.DocumentWrite

	lookup := func(key domain.NaturalKey) (*domain.Document, error) {
		if doc, ok := staged[key]; ok {
			return doc, nil
		}
		doc, err := r.docs.FindByNaturalKey(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, asStoreFailure(fmt.Errorf("find %v: %w", key, err))
		}
		return doc, nil
	}

	stage := func(doc domain.Document, expectedVersion int64) {
		writes = append(writes, domain.DocumentWrite{Doc: doc, ExpectedVersion: expectedVersion})
		staged[doc.Key()] = &doc
	}

	for i := range result.Items {
		item := &result.Items[i]
		report.Stats.Items++

		if err := item.Validate(); err != nil {
			report.Stats.Skipped++
			r.warn(report, "item %d: %v", i, err)
			continue
		}

		key := domain.NaturalKey{UserID: conn.UserID, Kind: conn.Kind, ExternalID: item.ExternalID}
		current, err := lookup(key)
		if err != nil {
			return nil, nil, err
		}

		switch item.Op {
		case domain.OpUpsert:
			r.applyUpsert(conn, item, current, report, stage)
		case domain.OpDelete:
			r.applyDelete(item, current, report, stage)
		}
	}

	return writes, report, nil
}

// applyUpsert stages an insert or update for one upsert item.
// The adapter-declared hash is never trusted: the digest is recomputed
// from the normalised body and a mismatch rejects the item.
func (r *Reconciler) applyUpsert(
	conn *domain.Connection,
	item *domain.SyncItem,
	current *domain.Document,
	report *driving.CycleReport,
	stage func(domain.Document, int64),
) {
	normalized := content.Normalize(item.ContentMarkdown)
	digest := content.Hash(normalized)
	if digest != item.ContentHash {
		report.Stats.Skipped++
		r.warn(report, "upsert %q: %v (declared %.12s, computed %.12s)",
			item.ExternalID, domain.ErrHashMismatch, item.ContentHash, digest)
		return
	}

	now := r.now()

	if current == nil {
		stage(domain.Document{
			DocumentID: r.newID(),
			UserID:     conn.UserID,
			Source: domain.SourceRef{
				Kind:       conn.Kind,
				AccountID:  conn.AccountID,
				ExternalID: item.ExternalID,
			},
			Title:           item.Title,
			ContentMarkdown: normalized,
			ContentHash:     digest,
			Metadata:        item.Metadata,
			CreatedAtSource: item.CreatedAtSource,
			UpdatedAtSource: item.UpdatedAtSource,
			SyncedAt:        now,
			Version:         1,
		}, 0)
		report.Stats.Upserts++
		return
	}

	if current.ContentHash == digest && !current.Tombstoned() {
		// Unchanged: refresh SyncedAt only, no version bump.
		doc := *current
		doc.SyncedAt = now
		stage(doc, current.Version)
		report.Stats.Skipped++
		return
	}

	// Changed content, or a note that reappeared after deletion.
	doc := *current
	doc.ContentMarkdown = normalized
	doc.ContentHash = digest
	doc.Metadata = item.Metadata
	doc.UpdatedAtSource = item.UpdatedAtSource
	doc.DeletedAtSource = nil
	doc.SyncedAt = now
	doc.Version = current.Version + 1
	if item.Title != "" {
		doc.Title = item.Title
	}
	stage(doc, current.Version)
	report.Stats.Upserts++
}

// applyDelete stages a tombstone for one delete item. Deleting an
// unknown or already-tombstoned document is an idempotent no-op.
func (r *Reconciler) applyDelete(
	item *domain.SyncItem,
	current *domain.Document,
	report *driving.CycleReport,
	stage func(domain.Document, int64),
) {
	if current == nil || current.Tombstoned() {
		report.Stats.Skipped++
		return
	}

	doc := *current
	doc.DeletedAtSource = item.DeletedAtSource
	if item.UpdatedAtSource != nil {
		doc.UpdatedAtSource = item.UpdatedAtSource
	}
	doc.SyncedAt = r.now()
	doc.Version = current.Version + 1
	stage(doc, current.Version)
	report.Stats.Deletes++
}

func (r *Reconciler) warn(report *driving.CycleReport, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	report.Warnings = append(report.Warnings, msg)
	logger.Warn("%s", msg)
}

// loadCursor returns the persisted cursor for a connection, defaulting
// to the epoch when no cycle has committed yet.
func (r *Reconciler) loadCursor(ctx context.Context, key domain.ConnectionKey) (domain.SyncCursor, error) {
	cursor, err := r.docs.GetCursor(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.EpochCursor(), nil
	}
	if err != nil {
		return domain.SyncCursor{}, asStoreFailure(fmt.Errorf("get cursor %s: %w", key, err))
	}
	return *cursor, nil
}

func (r *Reconciler) tryLock(key domain.ConnectionKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[key]; busy {
		return false
	}
	r.inFlight[key] = struct{}{}
	return true
}

func (r *Reconciler) unlock(key domain.ConnectionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, key)
}

// nextCursor picks the cursor a successful cycle commits. A zero
// NextCursor means the adapter had nothing to report; the cursor must
// never move backwards.
func nextCursor(current, proposed domain.SyncCursor) domain.SyncCursor {
	if proposed.Since.IsZero() || proposed.Since.Before(current.Since) {
		return current
	}
	return proposed
}

// asAdapterFailure marks an error as an adapter-level (retryable)
// cycle failure unless it is already classified.
func asAdapterFailure(err error) error {
	if errors.Is(err, domain.ErrAdapterFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrAdapterFailure, err)
}

// asStoreFailure marks an error as a persistence-level (retryable)
// cycle failure, preserving a version conflict's own identity.
func asStoreFailure(err error) error {
	if errors.Is(err, domain.ErrStoreFailure) || errors.Is(err, domain.ErrVersionConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
}
