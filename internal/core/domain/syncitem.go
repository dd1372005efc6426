package domain

import (
	"fmt"
	"time"
)

// SyncOp tags a SyncItem variant.
type SyncOp string

const (
	// OpUpsert carries the current state of a note.
	OpUpsert SyncOp = "upsert"

	// OpDelete signals the note was removed at the source.
	OpDelete SyncOp = "delete"
)

// SyncItem is one change reported by an adapter. It is a tagged
// variant: upserts carry content, deletes carry a deletion timestamp.
type SyncItem struct {
	// Op selects the variant.
	Op SyncOp

	// ExternalID is the provider-side note identifier. Required for
	// both variants.
	ExternalID string

	// Title is the note title, optional.
	Title string

	// ContentMarkdown is the note body. Required and non-empty for
	// upserts; ignored for deletes.
	ContentMarkdown string

	// ContentHash is the adapter-declared digest of the normalised
	// body. The engine recomputes it and never trusts this value
	// blindly.
	ContentHash string

	// CreatedAtSource is the provider-side creation time, optional.
	CreatedAtSource *time.Time

	// UpdatedAtSource is the provider-side modification time, optional.
	UpdatedAtSource *time.Time

	// DeletedAtSource is the provider-side deletion time. Required for
	// deletes.
	DeletedAtSource *time.Time

	// Metadata contains provider key-value pairs, or nil.
	Metadata map[string]any
}

// Validate checks the per-tag required fields. A failing item is
// rejected individually and counted as skipped; it never aborts the
// batch.
func (it *SyncItem) Validate() error {
	if it.ExternalID == "" {
		return fmt.Errorf("%w: missing externalId", ErrInvalidItem)
	}
	switch it.Op {
	case OpUpsert:
		if it.ContentMarkdown == "" {
			return fmt.Errorf("%w: upsert %q has empty content", ErrInvalidItem, it.ExternalID)
		}
		if it.ContentHash == "" {
			return fmt.Errorf("%w: upsert %q has no content hash", ErrInvalidItem, it.ExternalID)
		}
	case OpDelete:
		if it.DeletedAtSource == nil {
			return fmt.Errorf("%w: delete %q has no deletedAtSource", ErrInvalidItem, it.ExternalID)
		}
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidItem, it.Op)
	}
	return nil
}

// SyncCursor is the incremental-sync bookmark for one connection.
// Monotonic non-decreasing; it advances only after a batch has been
// fully and successfully applied.
type SyncCursor struct {
	Since time.Time
}

// EpochCursor is the default cursor used when none has been persisted
// yet. It makes the first cycle a full pull.
func EpochCursor() SyncCursor {
	return SyncCursor{Since: time.Unix(0, 0).UTC()}
}

// SyncStats counts what one adapter invocation reported.
// Items == Upserts + Deletes + Skipped must hold.
type SyncStats struct {
	Items   int
	Upserts int
	Deletes int
	Skipped int
}

// SyncResult is the envelope returned by one adapter invocation.
type SyncResult struct {
	Items      []SyncItem
	NextCursor SyncCursor
	Stats      SyncStats
}

// ValidateEnvelope checks the result-level invariants. Unlike item
// validation, an envelope violation is an adapter-level fault and
// aborts the whole cycle.
func (r *SyncResult) ValidateEnvelope() error {
	if r.Stats.Items != r.Stats.Upserts+r.Stats.Deletes+r.Stats.Skipped {
		return fmt.Errorf("%w: stats do not add up (%d != %d+%d+%d)",
			ErrMalformedResult, r.Stats.Items, r.Stats.Upserts, r.Stats.Deletes, r.Stats.Skipped)
	}
	if r.Stats.Upserts+r.Stats.Deletes != len(r.Items) {
		return fmt.Errorf("%w: stats claim %d delivered items, envelope carries %d",
			ErrMalformedResult, r.Stats.Upserts+r.Stats.Deletes, len(r.Items))
	}
	return nil
}
