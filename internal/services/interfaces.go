package services

import (
	"context"
	"time"

	"github.com/gematria-field/api/internal/cipher"
	domain "github.com/gematria-field/api/internal/domain"
	"github.com/gematria-field/api/internal/numprops"
	"github.com/gematria-field/api/internal/unfold"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	PhraseEntry        = domain.PhraseEntry
	CalculationResult  = domain.CalculationResult
	MatchSet           = domain.MatchSet
	MergedMatch        = domain.MergedMatch
	SystemHealthReport = domain.SystemHealthReport
)

// CalculatorService evaluates text against the active cipher set.
type CalculatorService interface {
	Calculate(ctx context.Context, cmd CalculateCommand) (CalculationOutcome, error)
}

// ResonanceService answers "which saved phrases share a value with this one" queries.
type ResonanceService interface {
	FindMatches(ctx context.Context, query MatchQuery) (MatchSet, error)
	SearchByNumber(ctx context.Context, query NumberQuery) (MatchSet, error)
	SearchByNumbers(ctx context.Context, active []string, numbers []int64) (MatchSet, error)
}

// PhraseService saves phrases and serves the recent/popular sidebars.
type PhraseService interface {
	Save(ctx context.Context, cmd SaveCommand) (SaveResult, error)
	Recent(ctx context.Context, limit int) ([]PhraseEntry, error)
	Popular(ctx context.Context, limit int) ([]PhraseEntry, error)
}

// UnfoldService runs the derived-number analysis and looks up its resonance numbers.
type UnfoldService interface {
	Unfold(ctx context.Context, cmd UnfoldCommand) (UnfoldOutcome, error)
}

// SystemService aggregates utility endpoints (health checks).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// PhraseEventPublisher emits phrase lifecycle events to downstream consumers.
type PhraseEventPublisher interface {
	PublishPhraseSaved(ctx context.Context, event PhraseSavedEvent) (string, error)
}

// PhraseSavedEvent is published once per newly stored phrase.
type PhraseSavedEvent struct {
	EventID   string           `json:"eventId"`
	PhraseID  string           `json:"phraseId"`
	Phrase    string           `json:"phrase"`
	PhraseKey string           `json:"phraseKey"`
	Values    map[string]int64 `json:"values"`
	SavedAt   time.Time        `json:"savedAt"`
}

// Calculation modes.
const (
	ModePhrase = "phrase"
	ModeNumber = "number"
)

// CalculateCommand is a single evaluation round. Empty Ciphers selects the default active set.
type CalculateCommand struct {
	Text    string
	Ciphers []string
}

// CalculationOutcome is either a phrase evaluation or a bare number passed through for searching.
type CalculationOutcome struct {
	Mode       string
	Number     int64
	Ciphers    []string
	Result     CalculationResult
	Breakdowns []cipher.Result
}

// MatchQuery looks up stored phrases sharing any active cipher value. Phrase is excluded from the
// results and has its search count bumped when it is found.
type MatchQuery struct {
	Active    []string
	Values    map[string]int64
	Phrase    string
	Filters   numprops.Filters
	PageSize  int
	PageToken string
}

// NumberQuery searches a raw value under every active table cipher.
type NumberQuery struct {
	Active    []string
	Value     int64
	Filters   numprops.Filters
	PageSize  int
	PageToken string
}

// SaveCommand stores a phrase. Values are computed server side.
type SaveCommand struct {
	Phrase string
}

// SaveResult reports the stored entry and whether it already existed.
type SaveResult struct {
	Entry        PhraseEntry
	AlreadySaved bool
}

// UnfoldCommand selects the aggregate ciphers and the ciphers the resonance numbers are matched under.
type UnfoldCommand struct {
	Text             string
	AggregateCiphers []string
	Ciphers          []string
}

// UnfoldOutcome carries the analysis and, when a store is available, the resonance matches.
type UnfoldOutcome struct {
	Analysis unfold.Analysis
	Matches  *MatchSet
}
