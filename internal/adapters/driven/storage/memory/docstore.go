// Package memory provides in-memory implementations of the driven
// storage ports. Used by tests and as the reference semantics for
// CommitCycle atomicity: stage, check every version, then swap.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu      sync.RWMutex
	docs    map[domain.NaturalKey]domain.Document
	byID    map[string]domain.NaturalKey
	cursors map[domain.ConnectionKey]domain.SyncCursor
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:    make(map[domain.NaturalKey]domain.Document),
		byID:    make(map[string]domain.NaturalKey),
		cursors: make(map[domain.ConnectionKey]domain.SyncCursor),
	}
}

// FindByNaturalKey retrieves the current version of a document.
func (s *DocumentStore) FindByNaturalKey(_ context.Context, key domain.NaturalKey) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetDocument retrieves a document by its surrogate ID.
func (s *DocumentStore) GetDocument(_ context.Context, documentID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byID[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.docs[key]
	return &doc, nil
}

// ListDocuments returns all documents owned by a user.
func (s *DocumentStore) ListDocuments(_ context.Context, userID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Document
	for _, doc := range s.docs {
		if doc.UserID == userID {
			result = append(result, doc)
		}
	}
	return result, nil
}

// GetCursor retrieves the persisted cursor for a connection.
func (s *DocumentStore) GetCursor(_ context.Context, key domain.ConnectionKey) (*domain.SyncCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cursor, ok := s.cursors[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cursor, nil
}

// CommitCycle applies all writes and the cursor atomically. Every
// version check runs before any write lands, so a conflict anywhere
// leaves both documents and cursor untouched.
func (s *DocumentStore) CommitCycle(
	_ context.Context,
	writes []domain.DocumentWrite,
	key domain.ConnectionKey,
	cursor domain.SyncCursor,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Within one batch a later write may build on an earlier one, so
	// the checks run against a scratch view, not the live map.
	scratch := make(map[domain.NaturalKey]domain.Document, len(writes))
	for _, w := range writes {
		k := w.Doc.Key()
		stored, exists := scratch[k]
		if !exists {
			stored, exists = s.docs[k]
		}
		switch {
		case w.ExpectedVersion == 0 && exists:
			return fmt.Errorf("insert %v: %w", k, domain.ErrVersionConflict)
		case w.ExpectedVersion != 0 && !exists:
			return fmt.Errorf("update %v: %w", k, domain.ErrVersionConflict)
		case w.ExpectedVersion != 0 && stored.Version != w.ExpectedVersion:
			return fmt.Errorf("update %v: stored v%d, expected v%d: %w",
				k, stored.Version, w.ExpectedVersion, domain.ErrVersionConflict)
		}
		scratch[k] = w.Doc
	}

	for _, w := range writes {
		s.docs[w.Doc.Key()] = w.Doc
		s.byID[w.Doc.DocumentID] = w.Doc.Key()
	}
	s.cursors[key] = cursor
	return nil
}
