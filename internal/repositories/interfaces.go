package repositories

import (
	"context"

	domain "github.com/gematria-field/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Phrases() PhraseRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// PhraseRepository persists saved phrases and answers per-cipher equality lookups.
// Cipher arguments are canonical cipher names.
type PhraseRepository interface {
	// Insert stores entry unless a phrase with the same PhraseKey exists, in which case the stored
	// entry is returned with created=false. The existence check and write are atomic.
	Insert(ctx context.Context, entry domain.PhraseEntry) (stored domain.PhraseEntry, created bool, err error)
	// FindByPhrase returns a RepositoryError with IsNotFound when no entry has phraseKey.
	FindByPhrase(ctx context.Context, phraseKey string) (domain.PhraseEntry, error)
	// FindByValue returns at most limit entries whose value for cipher equals value, in store order.
	FindByValue(ctx context.Context, cipher string, value int64, limit int) ([]domain.PhraseEntry, error)
	IncrementSearchCount(ctx context.Context, id string, delta int64) error
	ListRecent(ctx context.Context, limit int) ([]domain.PhraseEntry, error)
	ListPopular(ctx context.Context, limit int) ([]domain.PhraseEntry, error)
}

// HealthRepository inspects backing services for health endpoints.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
