package driven

import (
	"context"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
)

// DocumentStore persists canonical documents and sync cursors.
// Implementations must guarantee that CommitCycle is atomic: either
// every staged write and the cursor land together, or none do.
type DocumentStore interface {
	// FindByNaturalKey retrieves the current version of a document, or
	// domain.ErrNotFound. Tombstoned documents are still returned.
	FindByNaturalKey(ctx context.Context, key domain.NaturalKey) (*domain.Document, error)

	// GetDocument retrieves a document by its surrogate ID.
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)

	// ListDocuments returns all documents owned by a user, tombstones
	// included. Downstream collaborators use Version and ContentHash as
	// cheap change-detection signals.
	ListDocuments(ctx context.Context, userID string) ([]domain.Document, error)

	// GetCursor retrieves the persisted cursor for a connection, or
	// domain.ErrNotFound if no cycle has committed yet.
	GetCursor(ctx context.Context, key domain.ConnectionKey) (*domain.SyncCursor, error)

	// CommitCycle applies all staged writes and advances the cursor as
	// one atomic unit. Each write's ExpectedVersion is checked against
	// the stored version; any mismatch fails the whole commit with
	// domain.ErrVersionConflict and leaves the cursor untouched.
	CommitCycle(ctx context.Context, writes []domain.DocumentWrite, key domain.ConnectionKey, cursor domain.SyncCursor) error
}

// ConnectionStore persists connection configurations.
type ConnectionStore interface {
	// Save stores or updates a connection.
	Save(ctx context.Context, conn domain.Connection) error

	// Get retrieves a connection by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Connection, error)

	// Delete removes a connection.
	Delete(ctx context.Context, id string) error

	// List returns all configured connections.
	List(ctx context.Context) ([]domain.Connection, error)
}
