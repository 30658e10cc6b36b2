package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gematria-field/api/internal/cipher"
	"github.com/gematria-field/api/internal/unfold"
)

// UnfoldServiceDeps bundles collaborators required to construct an unfold service.
// A nil Resonance skips the match lookup.
type UnfoldServiceDeps struct {
	Evaluator        *cipher.Evaluator
	Resonance        ResonanceService
	AggregateCiphers []string
}

type unfoldService struct {
	evaluator *cipher.Evaluator
	resonance ResonanceService
	aggregate []string
}

var _ UnfoldService = (*unfoldService)(nil)

// NewUnfoldService constructs the unfold analysis service.
func NewUnfoldService(deps UnfoldServiceDeps) (UnfoldService, error) {
	if deps.Evaluator == nil {
		return nil, errors.New("unfold service: evaluator is required")
	}
	aggregate := trimmedNonEmpty(deps.AggregateCiphers)
	if len(aggregate) == 0 {
		aggregate = unfold.DefaultAggregateCiphers
	}
	return &unfoldService{evaluator: deps.Evaluator, resonance: deps.Resonance, aggregate: aggregate}, nil
}

func (s *unfoldService) Unfold(ctx context.Context, cmd UnfoldCommand) (UnfoldOutcome, error) {
	if ctx == nil {
		return UnfoldOutcome{}, errors.New("unfold service: context is required")
	}
	aggregate := trimmedNonEmpty(cmd.AggregateCiphers)
	if len(aggregate) == 0 {
		aggregate = s.aggregate
	}

	analysis, err := unfold.Analyze(cmd.Text, unfold.Options{Evaluator: s.evaluator, AggregateCiphers: aggregate})
	switch {
	case errors.Is(err, unfold.ErrAggregateSelection):
		return UnfoldOutcome{}, fmt.Errorf("%w: %v", ErrInvalidAggregate, err)
	case err != nil:
		return UnfoldOutcome{}, err
	}

	out := UnfoldOutcome{Analysis: analysis}
	if s.resonance == nil || len(analysis.Resonance) == 0 {
		return out, nil
	}
	matches, err := s.resonance.SearchByNumbers(ctx, cmd.Ciphers, analysis.Resonance)
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		return out, nil
	case err != nil:
		return UnfoldOutcome{}, err
	}
	out.Matches = &matches
	return out, nil
}
