package domain

import (
	"fmt"
	"time"
)

// Connection represents a configured link between a user and one
// external note source account. Each connection produces documents via
// a source adapter and owns exactly one sync cursor.
type Connection struct {
	// ID is the unique identifier for the connection.
	ID string

	// UserID is the owning user.
	UserID string

	// Kind identifies the adapter type (e.g., "notion", "obsidian").
	Kind string

	// AccountID identifies the external account (workspace ID, vault
	// path). Part of the connection key.
	AccountID string

	// Name is the human-readable name for this connection.
	Name string

	// Filter scopes what the adapter pulls. Immutable for the lifetime
	// of a sync cycle.
	Filter IntegrationFilter

	// Config contains adapter-specific settings (API token reference,
	// vault root, ...).
	Config map[string]string

	// CreatedAt is when the connection was created.
	CreatedAt time.Time

	// UpdatedAt is when the connection was last updated.
	UpdatedAt time.Time
}

// Key returns the connection key used for per-connection mutual
// exclusion and cursor ownership.
func (c *Connection) Key() ConnectionKey {
	return ConnectionKey{
		UserID:    c.UserID,
		Kind:      c.Kind,
		AccountID: c.AccountID,
	}
}

// ConnectionKey identifies one (user, source account) pair. At most
// one sync cycle may be in flight per key at any time.
type ConnectionKey struct {
	UserID    string
	Kind      string
	AccountID string
}

// String renders the key for logs and lock tables.
func (k ConnectionKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.UserID, k.Kind, k.AccountID)
}
