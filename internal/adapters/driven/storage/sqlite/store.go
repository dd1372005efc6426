// Package sqlite provides the durable implementation of the driven
// storage ports, backed by a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/inkwell-sync/inkwell/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/inkwell-sync/inkwell/internal/core/domain"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// document and connection store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.inkwell/data/inkwell.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".inkwell", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "inkwell.db")

	// WAL mode for better concurrency between cycles and readers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ConnectionStore returns a ConnectionStore interface backed by this store.
func (s *Store) ConnectionStore() driven.ConnectionStore {
	return &connectionStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `document_id, user_id, source_kind, source_account_id,
	source_external_id, title, content_markdown, content_hash, metadata,
	created_at_source, updated_at_source, deleted_at_source, synced_at, version`

// FindByNaturalKey retrieves the current version of a document.
func (s *documentStore) FindByNaturalKey(ctx context.Context, key domain.NaturalKey) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE user_id = ? AND source_kind = ? AND source_external_id = ?
	`, key.UserID, key.Kind, key.ExternalID)
	return scanDocument(row)
}

// GetDocument retrieves a document by its surrogate ID.
func (s *documentStore) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE document_id = ?
	`, documentID)
	return scanDocument(row)
}

// ListDocuments returns all documents owned by a user.
func (s *documentStore) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE user_id = ?
		ORDER BY source_kind, source_external_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// GetCursor retrieves the persisted cursor for a connection.
func (s *documentStore) GetCursor(ctx context.Context, key domain.ConnectionKey) (*domain.SyncCursor, error) {
	var since time.Time
	err := s.store.db.QueryRowContext(ctx, `
		SELECT since FROM sync_cursors
		WHERE user_id = ? AND kind = ? AND account_id = ?
	`, key.UserID, key.Kind, key.AccountID).Scan(&since)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting cursor: %w", err)
	}
	return &domain.SyncCursor{Since: since}, nil
}

// CommitCycle applies all writes and the cursor in one transaction.
// Inserts rely on the natural-key unique constraint; updates run a
// compare-and-swap on version. Any failed check rolls everything back
// with domain.ErrVersionConflict.
func (s *documentStore) CommitCycle(
	ctx context.Context,
	writes []domain.DocumentWrite,
	key domain.ConnectionKey,
	cursor domain.SyncCursor,
) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, w := range writes {
		if w.ExpectedVersion == 0 {
			if err := insertDocument(ctx, tx, &w.Doc); err != nil {
				return err
			}
			continue
		}
		if err := updateDocument(ctx, tx, &w.Doc, w.ExpectedVersion); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_cursors (user_id, kind, account_id, since, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, kind, account_id) DO UPDATE SET
			since = excluded.since,
			updated_at = excluded.updated_at
	`, key.UserID, key.Kind, key.AccountID, cursor.Since.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cycle: %w", err)
	}
	return nil
}

func insertDocument(ctx context.Context, tx *sql.Tx, doc *domain.Document) error {
	metadataJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.DocumentID, doc.UserID, doc.Source.Kind, doc.Source.AccountID,
		doc.Source.ExternalID, nullIfEmpty(doc.Title), doc.ContentMarkdown,
		doc.ContentHash, metadataJSON, nullableTime(doc.CreatedAtSource),
		nullableTime(doc.UpdatedAtSource), nullableTime(doc.DeletedAtSource),
		doc.SyncedAt.UTC(), doc.Version)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("insert %s: %w", doc.Source.ExternalID, domain.ErrVersionConflict)
		}
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

func updateDocument(ctx context.Context, tx *sql.Tx, doc *domain.Document, expectedVersion int64) error {
	metadataJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET
			title = ?,
			content_markdown = ?,
			content_hash = ?,
			metadata = ?,
			created_at_source = ?,
			updated_at_source = ?,
			deleted_at_source = ?,
			synced_at = ?,
			version = ?
		WHERE user_id = ? AND source_kind = ? AND source_external_id = ?
		  AND version = ?
	`, nullIfEmpty(doc.Title), doc.ContentMarkdown, doc.ContentHash,
		metadataJSON, nullableTime(doc.CreatedAtSource),
		nullableTime(doc.UpdatedAtSource), nullableTime(doc.DeletedAtSource),
		doc.SyncedAt.UTC(), doc.Version,
		doc.UserID, doc.Source.Kind, doc.Source.ExternalID, expectedVersion)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s: stored version is not v%d: %w",
			doc.Source.ExternalID, expectedVersion, domain.ErrVersionConflict)
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc          domain.Document
		title        sql.NullString
		metadataJSON sql.NullString
		createdAt    sql.NullTime
		updatedAt    sql.NullTime
		deletedAt    sql.NullTime
	)
	err := row.Scan(&doc.DocumentID, &doc.UserID, &doc.Source.Kind,
		&doc.Source.AccountID, &doc.Source.ExternalID, &title,
		&doc.ContentMarkdown, &doc.ContentHash, &metadataJSON,
		&createdAt, &updatedAt, &deletedAt, &doc.SyncedAt, &doc.Version)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Title = title.String
	doc.CreatedAtSource = timePtr(createdAt)
	doc.UpdatedAtSource = timePtr(updatedAt)
	doc.DeletedAtSource = timePtr(deletedAt)

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	return &doc, nil
}

// ==================== Connection Store ====================

// connectionStore implements driven.ConnectionStore.
type connectionStore struct {
	store *Store
}

var _ driven.ConnectionStore = (*connectionStore)(nil)

// Save stores or updates a connection.
func (s *connectionStore) Save(ctx context.Context, conn domain.Connection) error {
	filterJSON, err := json.Marshal(conn.Filter)
	if err != nil {
		return fmt.Errorf("marshalling filter: %w", err)
	}
	configJSON, err := json.Marshal(conn.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO connections (id, user_id, kind, account_id, name, filter, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			kind = excluded.kind,
			account_id = excluded.account_id,
			name = excluded.name,
			filter = excluded.filter,
			config = excluded.config,
			updated_at = excluded.updated_at
	`, conn.ID, conn.UserID, conn.Kind, conn.AccountID, conn.Name,
		string(filterJSON), string(configJSON),
		conn.CreatedAt.UTC(), conn.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving connection: %w", err)
	}
	return nil
}

// Get retrieves a connection by ID.
func (s *connectionStore) Get(ctx context.Context, id string) (*domain.Connection, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, account_id, name, filter, config, created_at, updated_at
		FROM connections
		WHERE id = ?
	`, id)
	return scanConnection(row)
}

// Delete removes a connection.
func (s *connectionStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM connections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}
	return nil
}

// List returns all configured connections.
func (s *connectionStore) List(ctx context.Context) ([]domain.Connection, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, user_id, kind, account_id, name, filter, config, created_at, updated_at
		FROM connections
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer rows.Close()

	var conns []domain.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *conn)
	}
	return conns, rows.Err()
}

func scanConnection(row scanner) (*domain.Connection, error) {
	var (
		conn       domain.Connection
		filterJSON string
		configJSON sql.NullString
	)
	err := row.Scan(&conn.ID, &conn.UserID, &conn.Kind, &conn.AccountID,
		&conn.Name, &filterJSON, &configJSON, &conn.CreatedAt, &conn.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning connection: %w", err)
	}

	if err := json.Unmarshal([]byte(filterJSON), &conn.Filter); err != nil {
		return nil, fmt.Errorf("unmarshalling filter: %w", err)
	}
	if configJSON.Valid && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &conn.Config); err != nil {
			return nil, fmt.Errorf("unmarshalling config: %w", err)
		}
	}
	return &conn, nil
}

// ==================== Helpers ====================

func marshalMetadata(metadata map[string]any) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
