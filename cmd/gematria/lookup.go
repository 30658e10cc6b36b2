package main

import (
	"context"
	"errors"

	"github.com/gematria-field/api/internal/di"
	"github.com/gematria-field/api/internal/numprops"
	"github.com/gematria-field/api/internal/services"
)

const storeUnavailableMessage = "phrase store unavailable"

type lookupRequest struct {
	Text      string
	Ciphers   []string
	Filters   numprops.Filters
	PageSize  int
	PageToken string
}

type lookupResult struct {
	Outcome services.CalculationOutcome
	Matches services.MatchSet
}

// lookup evaluates the input and searches the store with whichever query its mode calls for.
func lookup(ctx context.Context, svc di.Services, req lookupRequest) (lookupResult, error) {
	out, err := svc.Calculator.Calculate(ctx, services.CalculateCommand{Text: req.Text, Ciphers: req.Ciphers})
	if err != nil {
		return lookupResult{}, err
	}
	set, err := resonate(ctx, svc, out, req)
	if err != nil {
		return lookupResult{Outcome: out}, err
	}
	return lookupResult{Outcome: out, Matches: set}, nil
}

// resonate runs the match query for an evaluated input. A missing store yields a degraded set
// so the evaluation still reaches the caller.
func resonate(ctx context.Context, svc di.Services, out services.CalculationOutcome, req lookupRequest) (services.MatchSet, error) {
	var (
		set services.MatchSet
		err error
	)
	if out.Mode == services.ModeNumber {
		set, err = svc.Resonance.SearchByNumber(ctx, services.NumberQuery{
			Active:    out.Ciphers,
			Value:     out.Number,
			Filters:   req.Filters,
			PageSize:  req.PageSize,
			PageToken: req.PageToken,
		})
	} else {
		set, err = svc.Resonance.FindMatches(ctx, services.MatchQuery{
			Active:    out.Ciphers,
			Values:    out.Result.Values,
			Phrase:    out.Result.SourceText,
			Filters:   req.Filters,
			PageSize:  req.PageSize,
			PageToken: req.PageToken,
		})
	}
	if errors.Is(err, services.ErrStoreUnavailable) {
		set.Degraded = true
		set.Error = storeUnavailableMessage
		return set, nil
	}
	return set, err
}
