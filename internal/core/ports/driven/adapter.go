package driven

import (
	"context"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
)

// SourceAdapter pulls note changes from one external source kind.
// The engine depends only on this signature; HTTP, pagination and
// provider rate limits live entirely inside the implementation.
type SourceAdapter interface {
	// Kind returns the source kind identifier ("notion", "obsidian").
	Kind() string

	// Sync returns the changes within scope since the cursor, plus the
	// cursor a fully applied batch should advance to. A nil cursor
	// requests a full pull. Network and auth failures return an error
	// wrapping domain.ErrAdapterFailure; the caller aborts the cycle
	// with its cursor unchanged.
	Sync(ctx context.Context, scope domain.IntegrationFilter, cursor *domain.SyncCursor) (*domain.SyncResult, error)
}

// WatchingAdapter is implemented by adapters that can additionally
// push live changes (e.g. a local vault watcher). Watch items carry
// the same shapes as Sync batches; consumption is optional.
type WatchingAdapter interface {
	SourceAdapter

	// Watch emits items as the source changes until ctx is cancelled.
	Watch(ctx context.Context, scope domain.IntegrationFilter) (<-chan domain.SyncItem, <-chan error)
}
