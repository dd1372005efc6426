package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleDoc(externalID string, version int64) domain.Document {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Document{
		DocumentID: "doc-" + externalID,
		UserID:     "u1",
		Source: domain.SourceRef{
			Kind:       domain.KindNotion,
			AccountID:  "ws-1",
			ExternalID: externalID,
		},
		Title:           "Note " + externalID,
		ContentMarkdown: "# " + externalID + "\n\nbody\n",
		ContentHash:     "hash-" + externalID,
		Metadata:        map[string]any{"database_id": "db-1"},
		UpdatedAtSource: &updated,
		SyncedAt:        time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Version:         version,
	}
}

func connKey() domain.ConnectionKey {
	return domain.ConnectionKey{UserID: "u1", Kind: domain.KindNotion, AccountID: "ws-1"}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestDocumentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := sampleDoc("n1", 1)
	err := docs.CommitCycle(ctx,
		[]domain.DocumentWrite{{Doc: doc, ExpectedVersion: 0}},
		connKey(), domain.SyncCursor{Since: time.Unix(1000, 0).UTC()})
	require.NoError(t, err)

	got, err := docs.FindByNaturalKey(ctx, doc.Key())
	require.NoError(t, err)
	assert.Equal(t, doc.DocumentID, got.DocumentID)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.ContentMarkdown, got.ContentMarkdown)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, "db-1", got.Metadata["database_id"])
	assert.Equal(t, int64(1), got.Version)
	require.NotNil(t, got.UpdatedAtSource)
	assert.True(t, got.UpdatedAtSource.Equal(*doc.UpdatedAtSource))
	assert.Nil(t, got.DeletedAtSource)

	byID, err := docs.GetDocument(ctx, doc.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, doc.Key(), byID.Key())

	_, err = docs.FindByNaturalKey(ctx, domain.NaturalKey{UserID: "u1", Kind: "notion", ExternalID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommitCycleUpdateWithVersionCAS(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	v1 := sampleDoc("n1", 1)
	require.NoError(t, docs.CommitCycle(ctx,
		[]domain.DocumentWrite{{Doc: v1, ExpectedVersion: 0}},
		connKey(), domain.SyncCursor{Since: time.Unix(1000, 0).UTC()}))

	v2 := v1
	v2.ContentMarkdown = "changed"
	v2.ContentHash = "hash-n1-v2"
	v2.Version = 2
	require.NoError(t, docs.CommitCycle(ctx,
		[]domain.DocumentWrite{{Doc: v2, ExpectedVersion: 1}},
		connKey(), domain.SyncCursor{Since: time.Unix(2000, 0).UTC()}))

	got, err := docs.FindByNaturalKey(ctx, v1.Key())
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "changed", got.ContentMarkdown)
}

func TestCommitCycleStaleVersionRollsBack(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	v1 := sampleDoc("n1", 1)
	require.NoError(t, docs.CommitCycle(ctx,
		[]domain.DocumentWrite{{Doc: v1, ExpectedVersion: 0}},
		connKey(), domain.SyncCursor{Since: time.Unix(1000, 0).UTC()}))

	// Batch carries a fresh insert plus a stale update. The conflict
	// must roll back both and leave the cursor at its old value.
	fresh := sampleDoc("n2", 1)
	stale := v1
	stale.Version = 9
	err := docs.CommitCycle(ctx, []domain.DocumentWrite{
		{Doc: fresh, ExpectedVersion: 0},
		{Doc: stale, ExpectedVersion: 8},
	}, connKey(), domain.SyncCursor{Since: time.Unix(2000, 0).UTC()})
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	_, err = docs.FindByNaturalKey(ctx, fresh.Key())
	assert.ErrorIs(t, err, domain.ErrNotFound, "rolled-back insert must not be visible")

	cursor, err := docs.GetCursor(ctx, connKey())
	require.NoError(t, err)
	assert.True(t, cursor.Since.Equal(time.Unix(1000, 0).UTC()))
}

func TestCommitCycleDuplicateInsertConflicts(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := sampleDoc("n1", 1)
	require.NoError(t, docs.CommitCycle(ctx,
		[]domain.DocumentWrite{{Doc: doc, ExpectedVersion: 0}},
		connKey(), domain.SyncCursor{Since: time.Unix(1000, 0).UTC()}))

	dup := sampleDoc("n1", 1)
	dup.DocumentID = "doc-other"
	err := docs.CommitCycle(ctx,
		[]domain.DocumentWrite{{Doc: dup, ExpectedVersion: 0}},
		connKey(), domain.SyncCursor{Since: time.Unix(2000, 0).UTC()})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestTombstonePersists(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	v1 := sampleDoc("n1", 1)
	require.NoError(t, docs.CommitCycle(ctx,
		[]domain.DocumentWrite{{Doc: v1, ExpectedVersion: 0}},
		connKey(), domain.SyncCursor{Since: time.Unix(1000, 0).UTC()}))

	deletedAt := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	tomb := v1
	tomb.DeletedAtSource = &deletedAt
	tomb.Version = 2
	require.NoError(t, docs.CommitCycle(ctx,
		[]domain.DocumentWrite{{Doc: tomb, ExpectedVersion: 1}},
		connKey(), domain.SyncCursor{Since: time.Unix(2000, 0).UTC()}))

	got, err := docs.FindByNaturalKey(ctx, v1.Key())
	require.NoError(t, err, "tombstoned documents are retained, not removed")
	assert.True(t, got.Tombstoned())
	require.NotNil(t, got.DeletedAtSource)
	assert.True(t, got.DeletedAtSource.Equal(deletedAt))
}

func TestCursorLifecycle(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	_, err := docs.GetCursor(ctx, connKey())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, docs.CommitCycle(ctx, nil, connKey(),
		domain.SyncCursor{Since: time.Unix(5000, 0).UTC()}))

	cursor, err := docs.GetCursor(ctx, connKey())
	require.NoError(t, err)
	assert.True(t, cursor.Since.Equal(time.Unix(5000, 0).UTC()))

	// Cursors are per connection key.
	other := domain.ConnectionKey{UserID: "u1", Kind: domain.KindObsidian, AccountID: "vault-1"}
	_, err = docs.GetCursor(ctx, other)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDocumentsByUser(t *testing.T) {
	store := newTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	mine := sampleDoc("n1", 1)
	other := sampleDoc("n2", 1)
	other.UserID = "u2"
	other.DocumentID = "doc-u2-n2"

	require.NoError(t, docs.CommitCycle(ctx, []domain.DocumentWrite{
		{Doc: mine, ExpectedVersion: 0},
		{Doc: other, ExpectedVersion: 0},
	}, connKey(), domain.SyncCursor{Since: time.Unix(1000, 0).UTC()}))

	list, err := docs.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n1", list[0].Source.ExternalID)
}

func TestConnectionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	conns := store.ConnectionStore()
	ctx := context.Background()

	conn := domain.Connection{
		ID:        "c1",
		UserID:    "u1",
		Kind:      domain.KindObsidian,
		AccountID: "vault-1",
		Name:      "Personal vault",
		Filter:    domain.ObsidianFilter("notes/**/*.md", "journal/*.md"),
		Config:    map[string]string{"vault_path": "/home/u1/vault"},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, conns.Save(ctx, conn))

	got, err := conns.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, conn.Name, got.Name)
	assert.Equal(t, conn.Filter.Kind, got.Filter.Kind)
	assert.Equal(t, conn.Filter.Patterns, got.Filter.Patterns)
	assert.Equal(t, "/home/u1/vault", got.Config["vault_path"])

	list, err := conns.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, conns.Delete(ctx, "c1"))
	_, err = conns.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
