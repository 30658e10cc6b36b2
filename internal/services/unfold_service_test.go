package services

import (
	"context"
	"errors"
	"testing"

	"github.com/gematria-field/api/internal/repositories/memory"
)

func TestUnfoldServiceAnalysesAndMatchesResonance(t *testing.T) {
	repo := memory.NewPhraseRepository()
	resonance := newTestResonance(t, repo)
	evaluator := newTestEvaluator(t)

	svc, err := NewUnfoldService(UnfoldServiceDeps{Evaluator: evaluator, Resonance: resonance})
	if err != nil {
		t.Fatalf("NewUnfoldService: %v", err)
	}

	probe, err := svc.Unfold(context.Background(), UnfoldCommand{Text: "love"})
	if err != nil {
		t.Fatalf("Unfold: %v", err)
	}
	if probe.Analysis.Clean != "LOVE" || len(probe.Analysis.Resonance) == 0 {
		t.Fatalf("unexpected analysis %+v", probe.Analysis)
	}
	if probe.Matches == nil || len(probe.Matches.Merged) != 0 {
		t.Fatalf("expected empty match set on empty store, got %+v", probe.Matches)
	}

	// Store a phrase whose Simple value is one of the resonance numbers.
	var phrase string
	for _, n := range probe.Analysis.Resonance {
		if phrase = phraseWithSimple(n); phrase != "" {
			break
		}
	}
	if phrase == "" {
		t.Skipf("no resonance number usable as a Simple value in %v", probe.Analysis.Resonance)
	}
	seedPhrases(t, repo, phrase)

	out, err := svc.Unfold(context.Background(), UnfoldCommand{Text: "love", Ciphers: []string{"Simple"}})
	if err != nil {
		t.Fatalf("Unfold: %v", err)
	}
	if out.Matches == nil || len(out.Matches.Merged) != 1 || out.Matches.Merged[0].Entry.Phrase != phrase {
		t.Fatalf("expected resonance match %q, got %+v", phrase, out.Matches)
	}
}

func TestUnfoldServiceStoreless(t *testing.T) {
	svc, err := NewUnfoldService(UnfoldServiceDeps{Evaluator: newTestEvaluator(t), Resonance: newTestResonance(t, nil)})
	if err != nil {
		t.Fatalf("NewUnfoldService: %v", err)
	}
	out, err := svc.Unfold(context.Background(), UnfoldCommand{Text: "love"})
	if err != nil {
		t.Fatalf("store-less unfold must succeed, got %v", err)
	}
	if out.Matches != nil {
		t.Fatal("expected no matches without a store")
	}
}

func TestUnfoldServiceEdgeCases(t *testing.T) {
	svc, err := NewUnfoldService(UnfoldServiceDeps{Evaluator: newTestEvaluator(t)})
	if err != nil {
		t.Fatalf("NewUnfoldService: %v", err)
	}

	empty, err := svc.Unfold(context.Background(), UnfoldCommand{Text: "123 !!"})
	if err != nil || !empty.Analysis.Empty {
		t.Fatalf("expected empty analysis, got %+v (%v)", empty.Analysis, err)
	}

	if _, err := svc.Unfold(context.Background(), UnfoldCommand{Text: "love", AggregateCiphers: []string{"Simple"}}); !errors.Is(err, ErrInvalidAggregate) {
		t.Fatalf("expected ErrInvalidAggregate, got %v", err)
	}
	if _, err := svc.Unfold(context.Background(), UnfoldCommand{Text: "love", AggregateCiphers: []string{"Simple", "Nope"}}); !errors.Is(err, ErrUnknownCipher) {
		t.Fatalf("expected ErrUnknownCipher, got %v", err)
	}
}

// phraseWithSimple builds a letters-only phrase with the given Simple value using Z (26) and a
// final remainder letter.
func phraseWithSimple(v int64) string {
	if v <= 0 || v > 26*40 {
		return ""
	}
	out := make([]byte, 0, v/26+1)
	for v > 26 {
		out = append(out, 'Z')
		v -= 26
	}
	out = append(out, byte('A'+v-1))
	return string(out)
}
