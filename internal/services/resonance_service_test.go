package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gematria-field/api/internal/cipher"
	domain "github.com/gematria-field/api/internal/domain"
	"github.com/gematria-field/api/internal/numprops"
	"github.com/gematria-field/api/internal/repositories"
	"github.com/gematria-field/api/internal/repositories/memory"
)

func seedPhrases(t *testing.T, repo repositories.PhraseRepository, phrases ...string) map[string]PhraseEntry {
	t.Helper()
	evaluator := newTestEvaluator(t)
	out := make(map[string]PhraseEntry, len(phrases))
	for i, phrase := range phrases {
		values, err := evaluator.Values(evaluator.Registry().Names(), phrase)
		if err != nil {
			t.Fatalf("Values: %v", err)
		}
		entry := PhraseEntry{
			ID:        "phr_" + phrase,
			Phrase:    phrase,
			PhraseKey: cipher.PhraseKey(phrase),
			Values:    values,
			CreatedAt: time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
		}
		stored, _, err := repo.Insert(context.Background(), entry)
		if err != nil {
			t.Fatalf("Insert %q: %v", phrase, err)
		}
		out[phrase] = stored
	}
	return out
}

func newTestResonance(t *testing.T, repo repositories.PhraseRepository) ResonanceService {
	t.Helper()
	svc, err := NewResonanceService(ResonanceServiceDeps{Phrases: repo, Registry: cipher.MustBuildRegistry()})
	if err != nil {
		t.Fatalf("NewResonanceService: %v", err)
	}
	return svc
}

func phraseValues(t *testing.T, phrase string) map[string]int64 {
	t.Helper()
	evaluator := newTestEvaluator(t)
	values, err := evaluator.Values(cipher.DefaultActive, phrase)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	return values
}

func TestFindMatchesSurfacesAnagram(t *testing.T) {
	repo := memory.NewPhraseRepository()
	seedPhrases(t, repo, "LOVE", "Hate")
	svc := newTestResonance(t, repo)

	set, err := svc.FindMatches(context.Background(), MatchQuery{Values: phraseValues(t, "EVOL"), Phrase: "EVOL"})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if set.Degraded {
		t.Fatalf("unexpected degraded set: %s", set.Error)
	}
	if got := set.ByCipher["Simple"]; len(got) != 1 || got[0].Phrase != "LOVE" {
		t.Fatalf("expected LOVE under Simple, got %+v", got)
	}
	if len(set.Merged) != 1 || len(set.Merged[0].Ciphers) != 3 {
		t.Fatalf("expected one merged entry across three ciphers, got %+v", set.Merged)
	}
}

func TestFindMatchesExcludesSelfAndBumpsOnce(t *testing.T) {
	repo := memory.NewPhraseRepository()
	seeded := seedPhrases(t, repo, "Love", "EVOL")
	svc := newTestResonance(t, repo)

	set, err := svc.FindMatches(context.Background(), MatchQuery{Values: phraseValues(t, "love"), Phrase: " LOVE "})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	for _, m := range set.Merged {
		if m.Entry.Phrase == "Love" {
			t.Fatal("searched phrase must not match itself")
		}
	}
	if len(set.Merged) != 1 || set.Merged[0].Entry.Phrase != "EVOL" {
		t.Fatalf("expected EVOL only, got %+v", set.Merged)
	}

	popular, err := repo.ListPopular(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListPopular: %v", err)
	}
	if popular[0].ID != seeded["Love"].ID || popular[0].SearchCount != 1 {
		t.Fatalf("expected Love bumped exactly once, got %+v", popular[0])
	}
}

func TestFindMatchesBumpsOnFirstPageOnly(t *testing.T) {
	repo := memory.NewPhraseRepository()
	seeded := seedPhrases(t, repo, "Love", "EVOL", "VOLE", "LEVO")
	svc := newTestResonance(t, repo)

	query := MatchQuery{Values: phraseValues(t, "love"), Phrase: "love", PageSize: 1}
	first, err := svc.FindMatches(context.Background(), query)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if first.NextPageToken == "" {
		t.Fatal("expected a second page")
	}
	query.PageToken = first.NextPageToken
	second, err := svc.FindMatches(context.Background(), query)
	if err != nil {
		t.Fatalf("FindMatches page 2: %v", err)
	}
	if len(second.Merged) != 1 || second.Merged[0].Entry.ID == first.Merged[0].Entry.ID {
		t.Fatalf("expected a different entry on page 2, got %+v", second.Merged)
	}

	popular, err := repo.ListPopular(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListPopular: %v", err)
	}
	if popular[0].ID != seeded["Love"].ID || popular[0].SearchCount != 1 {
		t.Fatalf("paging must not bump again, got %+v", popular[0])
	}
}

func TestFindMatchesFiltersHideGroups(t *testing.T) {
	repo := memory.NewPhraseRepository()
	seedPhrases(t, repo, "LOVE")
	svc := newTestResonance(t, repo)

	set, err := svc.FindMatches(context.Background(), MatchQuery{
		Values:  phraseValues(t, "EVOL"),
		Filters: numprops.Filters{Prime: true},
	})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(set.Hidden) != 3 {
		t.Fatalf("expected all groups hidden, got %v", set.Hidden)
	}
	if !set.Empty() || len(set.Merged) != 0 {
		t.Fatalf("hidden groups must not be looked up, got %+v", set.ByCipher)
	}
	if set.Values["Simple"] != 54 {
		t.Fatalf("values are still reported, got %v", set.Values)
	}
}

func TestSearchByNumberSkipsEvaluation(t *testing.T) {
	repo := memory.NewPhraseRepository()
	seeded := seedPhrases(t, repo, "LOVE", "Hate")
	svc := newTestResonance(t, repo)
	jewishLove := seeded["LOVE"].Values["Jewish"]

	set, err := svc.SearchByNumber(context.Background(), NumberQuery{Active: []string{"jewish"}, Value: jewishLove})
	if err != nil {
		t.Fatalf("SearchByNumber: %v", err)
	}
	if got := set.ByCipher["Jewish"]; len(got) != 1 || got[0].Phrase != "LOVE" {
		t.Fatalf("expected LOVE under Jewish, got %+v", got)
	}
	if set.Values["Jewish"] != jewishLove {
		t.Fatalf("expected raw value echoed, got %v", set.Values)
	}
	if entries, _ := repo.ListPopular(context.Background(), 5); entries[0].SearchCount != 0 {
		t.Fatal("number search must not bump search counts")
	}
}

func TestSearchByNumbersMergesAcrossNumbers(t *testing.T) {
	repo := memory.NewPhraseRepository()
	seeded := seedPhrases(t, repo, "LOVE", "Hate", "Peace")
	svc := newTestResonance(t, repo)

	numbers := []int64{seeded["LOVE"].Values["Simple"], seeded["Peace"].Values["Simple"], 999999}
	set, err := svc.SearchByNumbers(context.Background(), []string{"Simple", "Reduction"}, numbers)
	if err != nil {
		t.Fatalf("SearchByNumbers: %v", err)
	}
	if len(set.Merged) != 2 {
		t.Fatalf("expected LOVE and Peace, got %+v", set.Merged)
	}
	if _, ok := set.ByCipher["Reduction"]; ok {
		t.Fatal("functional ciphers are not queried")
	}
}

func TestFindMatchesPaginatesMerged(t *testing.T) {
	repo := memory.NewPhraseRepository()
	seedPhrases(t, repo, "LOVE", "VOLE", "LEVO")
	svc := newTestResonance(t, repo)
	query := MatchQuery{Active: []string{"Simple"}, Values: map[string]int64{"Simple": 54}, PageSize: 2}

	first, err := svc.FindMatches(context.Background(), query)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(first.Merged) != 2 || first.NextPageToken == "" {
		t.Fatalf("expected first page of two with token, got %d %q", len(first.Merged), first.NextPageToken)
	}

	query.PageToken = first.NextPageToken
	second, err := svc.FindMatches(context.Background(), query)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(second.Merged) != 1 || second.NextPageToken != "" || second.Merged[0].Entry.Phrase != "LEVO" {
		t.Fatalf("unexpected second page %+v", second)
	}

	query.Values = map[string]int64{"Simple": 55}
	if _, err := svc.FindMatches(context.Background(), query); err == nil {
		t.Fatal("expected token from another query to be rejected")
	}
}

func TestFindMatchesDegradesOnStoreError(t *testing.T) {
	svc := newTestResonance(t, &failingPhraseRepository{err: repositories.NewStoreError("test", repositories.StoreErrorUnavailable, errors.New("down"))})

	set, err := svc.FindMatches(context.Background(), MatchQuery{Values: phraseValues(t, "love")})
	if err != nil {
		t.Fatalf("store failure must not propagate, got %v", err)
	}
	if !set.Degraded || set.Error == "" || !set.Empty() {
		t.Fatalf("expected degraded empty set, got %+v", set)
	}
	if set.Values["Simple"] != 54 {
		t.Fatal("evaluation results survive a failed lookup")
	}
}

func TestFindMatchesStoreless(t *testing.T) {
	svc := newTestResonance(t, nil)
	if _, err := svc.FindMatches(context.Background(), MatchQuery{Values: phraseValues(t, "love")}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestMergeOrdersBySharedCiphers(t *testing.T) {
	a := PhraseEntry{ID: "a"}
	b := PhraseEntry{ID: "b"}
	c := PhraseEntry{ID: "c"}
	merged := merge([]string{"Simple", "English"}, map[string][]PhraseEntry{
		"Simple":  {a, b},
		"English": {c, b},
	})
	var order []string
	for _, m := range merged {
		order = append(order, m.Entry.ID)
	}
	if len(order) != 3 || order[0] != "b" || order[1] != "a" || order[2] != "c" {
		t.Fatalf("unexpected merge order %v", order)
	}
	if len(merged[0].Ciphers) != 2 {
		t.Fatalf("expected b tagged with both ciphers, got %v", merged[0].Ciphers)
	}
}

type failingPhraseRepository struct {
	err error
}

func (f *failingPhraseRepository) Insert(context.Context, domain.PhraseEntry) (domain.PhraseEntry, bool, error) {
	return domain.PhraseEntry{}, false, f.err
}

func (f *failingPhraseRepository) FindByPhrase(context.Context, string) (domain.PhraseEntry, error) {
	return domain.PhraseEntry{}, f.err
}

func (f *failingPhraseRepository) FindByValue(context.Context, string, int64, int) ([]domain.PhraseEntry, error) {
	return nil, f.err
}

func (f *failingPhraseRepository) IncrementSearchCount(context.Context, string, int64) error {
	return f.err
}

func (f *failingPhraseRepository) ListRecent(context.Context, int) ([]domain.PhraseEntry, error) {
	return nil, f.err
}

func (f *failingPhraseRepository) ListPopular(context.Context, int) ([]domain.PhraseEntry, error) {
	return nil, f.err
}
