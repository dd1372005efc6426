package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-sync/inkwell/internal/adapters/driven/storage/memory"
	"github.com/inkwell-sync/inkwell/internal/content"
	"github.com/inkwell-sync/inkwell/internal/core/domain"
)

func setupDocumentTest(t *testing.T, docs ...domain.Document) func() {
	t.Helper()

	old := documentStore
	store := memory.NewDocumentStore()
	documentStore = store
	listDeleted = false

	writes := make([]domain.DocumentWrite, 0, len(docs))
	for _, doc := range docs {
		writes = append(writes, domain.DocumentWrite{Doc: doc, ExpectedVersion: 0})
	}
	key := domain.ConnectionKey{UserID: "u1", Kind: domain.KindObsidian, AccountID: "vault"}
	require.NoError(t, store.CommitCycle(context.Background(), writes, key, domain.SyncCursor{Since: time.Now()}))

	return func() {
		documentStore = old
	}
}

func testDocument(id, externalID string) domain.Document {
	markdown := "# " + externalID + "\n\nbody\n"
	return domain.Document{
		DocumentID: id,
		UserID:     "u1",
		Source: domain.SourceRef{
			Kind:       domain.KindObsidian,
			AccountID:  "vault",
			ExternalID: externalID,
		},
		Title:           externalID,
		ContentMarkdown: markdown,
		ContentHash:     content.HashContent(markdown),
		SyncedAt:        time.Now().UTC(),
		Version:         1,
	}
}

func TestDocumentList(t *testing.T) {
	cleanup := setupDocumentTest(t, testDocument("d1", "inbox.md"), testDocument("d2", "daily.md"))
	defer cleanup()

	out, err := execute(t, "document", "list", "u1")

	require.NoError(t, err)
	assert.Contains(t, out, "d1")
	assert.Contains(t, out, "d2")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocumentList_HidesTombstonesByDefault(t *testing.T) {
	deleted := testDocument("d2", "gone.md")
	now := time.Now().UTC()
	deleted.DeletedAtSource = &now

	cleanup := setupDocumentTest(t, testDocument("d1", "inbox.md"), deleted)
	defer cleanup()

	out, err := execute(t, "document", "list", "u1")
	require.NoError(t, err)
	assert.NotContains(t, out, "gone.md")
	assert.Contains(t, out, "Total: 1 documents")

	out, err = execute(t, "document", "list", "u1", "--deleted")
	require.NoError(t, err)
	assert.Contains(t, out, "gone.md")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocumentList_Empty(t *testing.T) {
	cleanup := setupDocumentTest(t)
	defer cleanup()

	out, err := execute(t, "document", "list", "nobody")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents found for user: nobody")
}

func TestDocumentGet(t *testing.T) {
	cleanup := setupDocumentTest(t, testDocument("d1", "inbox.md"))
	defer cleanup()

	out, err := execute(t, "document", "get", "d1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: d1")
	assert.Contains(t, out, "Version:  1")
	assert.Contains(t, out, "obsidian/vault (inbox.md)")
}

func TestDocumentGet_NotFound(t *testing.T) {
	cleanup := setupDocumentTest(t)
	defer cleanup()

	_, err := execute(t, "document", "get", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentContent(t *testing.T) {
	cleanup := setupDocumentTest(t, testDocument("d1", "inbox.md"))
	defer cleanup()

	out, err := execute(t, "document", "content", "d1")

	require.NoError(t, err)
	assert.Contains(t, out, "# inbox.md")
}

func TestDocumentContent_DeletedRefused(t *testing.T) {
	deleted := testDocument("d1", "gone.md")
	now := time.Now().UTC()
	deleted.DeletedAtSource = &now

	cleanup := setupDocumentTest(t, deleted)
	defer cleanup()

	_, err := execute(t, "document", "content", "d1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "deleted")
}
