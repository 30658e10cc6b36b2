// Package memory provides a process-local PhraseRepository for development and tests.
package memory

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"

	domain "github.com/gematria-field/api/internal/domain"
	"github.com/gematria-field/api/internal/repositories"
)

// PhraseRepository keeps entries in insertion order, which is its natural return order.
type PhraseRepository struct {
	mu      sync.RWMutex
	entries []domain.PhraseEntry
	byID    map[string]int
	byKey   map[string]int
	closed  bool
}

var _ repositories.PhraseRepository = (*PhraseRepository)(nil)

// NewPhraseRepository returns an empty repository.
func NewPhraseRepository() *PhraseRepository {
	return &PhraseRepository{
		byID:  make(map[string]int),
		byKey: make(map[string]int),
	}
}

func (r *PhraseRepository) Insert(_ context.Context, entry domain.PhraseEntry) (domain.PhraseEntry, bool, error) {
	if strings.TrimSpace(entry.ID) == "" || strings.TrimSpace(entry.PhraseKey) == "" {
		return domain.PhraseEntry{}, false, repositories.NewStoreError("memory.insert", repositories.StoreErrorUnknown, errors.New("id and phrase key are required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.PhraseEntry{}, false, errClosed("memory.insert")
	}
	if idx, ok := r.byKey[entry.PhraseKey]; ok {
		return clone(r.entries[idx]), false, nil
	}
	if _, ok := r.byID[entry.ID]; ok {
		return domain.PhraseEntry{}, false, repositories.NewStoreError("memory.insert", repositories.StoreErrorConflict, errors.New("duplicate id"))
	}

	stored := clone(entry)
	r.entries = append(r.entries, stored)
	r.byID[stored.ID] = len(r.entries) - 1
	r.byKey[stored.PhraseKey] = len(r.entries) - 1
	return clone(stored), true, nil
}

func (r *PhraseRepository) FindByPhrase(_ context.Context, phraseKey string) (domain.PhraseEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return domain.PhraseEntry{}, errClosed("memory.findByPhrase")
	}
	idx, ok := r.byKey[phraseKey]
	if !ok {
		return domain.PhraseEntry{}, repositories.NewStoreError("memory.findByPhrase", repositories.StoreErrorNotFound, nil)
	}
	return clone(r.entries[idx]), nil
}

func (r *PhraseRepository) FindByValue(_ context.Context, cipher string, value int64, limit int) ([]domain.PhraseEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, errClosed("memory.findByValue")
	}
	var out []domain.PhraseEntry
	for _, entry := range r.entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		if v, ok := entry.Values[cipher]; ok && v == value {
			out = append(out, clone(entry))
		}
	}
	return out, nil
}

func (r *PhraseRepository) IncrementSearchCount(_ context.Context, id string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed("memory.incrementSearchCount")
	}
	idx, ok := r.byID[id]
	if !ok {
		return repositories.NewStoreError("memory.incrementSearchCount", repositories.StoreErrorNotFound, nil)
	}
	r.entries[idx].SearchCount += delta
	return nil
}

func (r *PhraseRepository) ListRecent(_ context.Context, limit int) ([]domain.PhraseEntry, error) {
	return r.sorted(limit, func(a, b domain.PhraseEntry) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func (r *PhraseRepository) ListPopular(_ context.Context, limit int) ([]domain.PhraseEntry, error) {
	return r.sorted(limit, func(a, b domain.PhraseEntry) bool {
		if a.SearchCount != b.SearchCount {
			return a.SearchCount > b.SearchCount
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// Close marks the repository unavailable; later calls fail with an unavailable error.
func (r *PhraseRepository) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *PhraseRepository) sorted(limit int, less func(a, b domain.PhraseEntry) bool) ([]domain.PhraseEntry, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, errClosed("memory.list")
	}
	out := make([]domain.PhraseEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, clone(entry))
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(entry domain.PhraseEntry) domain.PhraseEntry {
	entry.Values = maps.Clone(entry.Values)
	return entry
}

func errClosed(op string) error {
	return repositories.NewStoreError(op, repositories.StoreErrorUnavailable, errors.New("repository closed"))
}
