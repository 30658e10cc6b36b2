package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/gematria-field/api/internal/cipher"
	"github.com/gematria-field/api/internal/platform/requestctx"
	"github.com/gematria-field/api/internal/repositories"
)

const (
	defaultSidebarLimit = 10
	maxSidebarLimit     = 50
	maxPhraseLength     = 500
)

// PhraseServiceDeps bundles collaborators required to construct a phrase service.
// A nil Phrases repository runs the service store-less; a nil Publisher disables events.
type PhraseServiceDeps struct {
	Phrases      repositories.PhraseRepository
	Evaluator    *cipher.Evaluator
	Publisher    PhraseEventPublisher
	SidebarLimit int
	Clock        func() time.Time
	IDGenerator  func() string
}

type phraseService struct {
	phrases   repositories.PhraseRepository
	evaluator *cipher.Evaluator
	publisher PhraseEventPublisher
	sidebar   int
	clock     func() time.Time
	newID     func() string
}

var _ PhraseService = (*phraseService)(nil)

// NewPhraseService constructs the save and sidebar service.
func NewPhraseService(deps PhraseServiceDeps) (PhraseService, error) {
	if deps.Evaluator == nil {
		return nil, errors.New("phrase service: evaluator is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	sidebar := deps.SidebarLimit
	if sidebar <= 0 {
		sidebar = defaultSidebarLimit
	}
	return &phraseService{
		phrases:   deps.Phrases,
		evaluator: deps.Evaluator,
		publisher: deps.Publisher,
		sidebar:   min(sidebar, maxSidebarLimit),
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

// Save stores the phrase as entered, trimmed of surrounding whitespace, with every registry
// cipher's value. Values for ciphers outside the caller's active set are kept so later lookups
// under any cipher find the entry.
func (s *phraseService) Save(ctx context.Context, cmd SaveCommand) (SaveResult, error) {
	if ctx == nil {
		return SaveResult{}, errors.New("phrase service: context is required")
	}
	phrase := strings.TrimSpace(cmd.Phrase)
	if cipher.Normalize(phrase) == "" {
		return SaveResult{}, ErrEmptyInput
	}
	if len(phrase) > maxPhraseLength {
		return SaveResult{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrPhraseTooLong, len(phrase), maxPhraseLength)
	}
	if s.phrases == nil {
		return SaveResult{}, ErrStoreUnavailable
	}

	values, err := s.evaluator.Values(s.evaluator.Registry().Names(), phrase)
	if err != nil {
		return SaveResult{}, err
	}
	entry := PhraseEntry{
		ID:        s.newID(),
		Phrase:    phrase,
		PhraseKey: cipher.PhraseKey(phrase),
		Values:    values,
		CreatedAt: s.clock(),
	}
	stored, created, err := s.phrases.Insert(ctx, entry)
	if err != nil {
		return SaveResult{}, fmt.Errorf("phrase service: save: %w", err)
	}
	if created {
		s.publishSaved(ctx, stored)
	}
	return SaveResult{Entry: stored, AlreadySaved: !created}, nil
}

func (s *phraseService) Recent(ctx context.Context, limit int) ([]PhraseEntry, error) {
	if s.phrases == nil {
		return nil, ErrStoreUnavailable
	}
	return s.phrases.ListRecent(ctx, s.clampLimit(limit))
}

func (s *phraseService) Popular(ctx context.Context, limit int) ([]PhraseEntry, error) {
	if s.phrases == nil {
		return nil, ErrStoreUnavailable
	}
	return s.phrases.ListPopular(ctx, s.clampLimit(limit))
}

func (s *phraseService) publishSaved(ctx context.Context, entry PhraseEntry) {
	if s.publisher == nil {
		return
	}
	event := PhraseSavedEvent{
		EventID:   s.newID(),
		PhraseID:  entry.ID,
		Phrase:    entry.Phrase,
		PhraseKey: entry.PhraseKey,
		Values:    entry.Values,
		SavedAt:   entry.CreatedAt,
	}
	if _, err := s.publisher.PublishPhraseSaved(ctx, event); err != nil {
		requestctx.Logger(ctx).Warn("phrase service: publish phrase.saved failed",
			zap.String("phraseId", entry.ID),
			zap.Error(err),
		)
	}
}

func (s *phraseService) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.sidebar
	case limit > maxSidebarLimit:
		return maxSidebarLimit
	default:
		return limit
	}
}
