package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driven"
)

// AdapterRegistry resolves source adapters by kind. Adapters are
// registered at construction; there is no implicit global state.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]driven.SourceAdapter
}

// NewAdapterRegistry creates a registry holding the given adapters,
// keyed by their Kind.
func NewAdapterRegistry(adapters ...driven.SourceAdapter) *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[string]driven.SourceAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

// Register adds or replaces the adapter for its kind.
func (r *AdapterRegistry) Register(a driven.SourceAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Kind()] = a
}

// Resolve returns the adapter for a kind, or domain.ErrUnsupportedKind.
func (r *AdapterRegistry) Resolve(kind string) (driven.SourceAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, kind)
	}
	return a, nil
}

// Kinds returns the registered kinds in sorted order.
func (r *AdapterRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
