package domain

import "time"

// SourceRef identifies where a document originated.
// Together with the owning user it forms the natural key of a document.
type SourceRef struct {
	// Kind identifies the source type (e.g., "notion", "obsidian").
	Kind string

	// AccountID identifies the external account the note was pulled from.
	AccountID string

	// ExternalID is the provider-side identifier of the note
	// (Notion page ID, vault-relative file path, ...).
	ExternalID string
}

// NaturalKey identifies one logical note across all of its versions.
// DocumentID is a surrogate; the natural key is what adapters speak.
type NaturalKey struct {
	UserID     string
	Kind       string
	ExternalID string
}

// Document is the canonical, versioned record of one external note.
type Document struct {
	// DocumentID is the stable surrogate identifier. It never changes
	// across versions of the same natural key.
	DocumentID string

	// UserID is the owning user.
	UserID string

	// Source records where this note came from.
	Source SourceRef

	// Title is the human-readable title, possibly empty.
	Title string

	// ContentMarkdown is the note body after normalisation.
	ContentMarkdown string

	// ContentHash is the SHA-256 hex digest of the normalised body.
	// It is the sole change-detection signal: for a live document
	// ContentHash == Hash(Normalize(ContentMarkdown)) always holds.
	ContentHash string

	// Metadata contains arbitrary provider key-value pairs, or nil.
	Metadata map[string]any

	// CreatedAtSource is the provider-side creation time, if known.
	CreatedAtSource *time.Time

	// UpdatedAtSource is the provider-side modification time, if known.
	UpdatedAtSource *time.Time

	// DeletedAtSource marks a tombstone. Tombstoned documents are
	// retained, never physically removed.
	DeletedAtSource *time.Time

	// SyncedAt is when this document was last touched by a sync cycle.
	SyncedAt time.Time

	// Version starts at 1 and increases by exactly one per effective
	// change (content hash changed, or tombstoning). Re-applying an
	// unchanged note does not bump it.
	Version int64
}

// Key returns the natural key of the document.
func (d *Document) Key() NaturalKey {
	return NaturalKey{
		UserID:     d.UserID,
		Kind:       d.Source.Kind,
		ExternalID: d.Source.ExternalID,
	}
}

// Tombstoned reports whether the document has been soft-deleted.
func (d *Document) Tombstoned() bool {
	return d.DeletedAtSource != nil
}

// DocumentWrite is one staged mutation inside a sync cycle.
// ExpectedVersion carries the optimistic-concurrency check: 0 means
// the write is an insert, any other value must match the stored
// version at commit time or the whole cycle aborts.
type DocumentWrite struct {
	Doc             Document
	ExpectedVersion int64
}
