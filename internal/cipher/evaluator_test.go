package cipher

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	eval, err := NewEvaluator(MustBuildRegistry())
	require.NoError(t, err)
	return eval
}

func TestEvaluateKnownTotals(t *testing.T) {
	eval := newTestEvaluator(t)

	cases := []struct {
		cipher string
		text   string
		want   int64
	}{
		{Simple, "ABC", 6},
		{English, "ABC", 36},
		{Jewish, "AI", 10},
		{Simple, "LOVE", 54},
		{Simple, "EVOL", 54},
		{ReverseSimple, "A", 26},
		{ReverseEnglish, "Z", 6},
		{PrimePosition, "Z", 101},
		{Fibonacci, "ABCZ", 1 + 1 + 2 + 121393},
		{Chaldean, "FOZ", 8 + 7 + 7},
		{Latin, "JUW", 9 + 200 + 400},
		{ALW, "ALW", 1 + 2 + 3},
		{Reduction, "K", 11},
		{Reduction, "AB", 3},
		{Reduction, "LOVE", 9},
		{Reduction, "", 0},
		{GeminiResonance, "ab", 11},
		{DoublingVortex, "a", 25},
		{DoublingVortex, "ab", 88},
		{DoublingVortex, "love", 950},
		{LawOf6, "abc", 270},
		{LawOf6, "a b-c!", 270},
		{SyllableResonance, "love", 108},
		{SyllableResonance, "beautiful", 388},
		{SyllableResonance, "rhythm", 92},
	}

	for _, tc := range cases {
		res, err := eval.Evaluate(tc.cipher, tc.text)
		if err != nil {
			t.Fatalf("%s(%q): unexpected error %v", tc.cipher, tc.text, err)
		}
		if res.Total != tc.want {
			t.Errorf("%s(%q) = %d, want %d", tc.cipher, tc.text, res.Total, tc.want)
		}
	}
}

func TestTableCiphersAreCaseInsensitiveAndIgnoreNonLetters(t *testing.T) {
	eval := newTestEvaluator(t)
	reg := eval.Registry()

	for _, def := range reg.Definitions() {
		if def.Kind != KindTable {
			continue
		}
		for _, s := range []string{"abc", "Gematria", "the quick brown fox"} {
			base, err := eval.Evaluate(def.Name, s)
			require.NoError(t, err)
			upper, err := eval.Evaluate(def.Name, strings.ToUpper(s))
			require.NoError(t, err)
			lower, err := eval.Evaluate(def.Name, strings.ToLower(s))
			require.NoError(t, err)
			require.Equal(t, base.Total, upper.Total, "%s upper %q", def.Name, s)
			require.Equal(t, base.Total, lower.Total, "%s lower %q", def.Name, s)
		}

		spaced, err := eval.Evaluate(def.Name, "A B!C")
		require.NoError(t, err)
		plain, err := eval.Evaluate(def.Name, "ABC")
		require.NoError(t, err)
		require.Equal(t, plain.Total, spaced.Total, def.Name)
		require.Equal(t, plain.Breakdown, spaced.Breakdown, def.Name)
	}
}

func TestEvaluateBreakdownIsOrderedAndSkipsZeroWeights(t *testing.T) {
	eval := newTestEvaluator(t)

	res, err := eval.Evaluate(Simple, "a-Cb")
	require.NoError(t, err)
	require.Equal(t, []Contribution{{'A', 1}, {'C', 3}, {'B', 2}}, res.Breakdown)

	fn, err := eval.Evaluate(Reduction, "abc")
	require.NoError(t, err)
	require.Empty(t, fn.Breakdown)
	require.Equal(t, KindFunctional, fn.Kind)
}

func TestEvaluateFunctionalOnTextWithoutLetters(t *testing.T) {
	eval := newTestEvaluator(t)
	want := map[string]int64{
		Reduction:         0,
		GeminiResonance:   1,
		DoublingVortex:    6,
		LawOf6:            0,
		SyllableResonance: 0,
	}
	for name, total := range want {
		res, err := eval.Evaluate(name, "12 !?")
		require.NoError(t, err)
		require.Equal(t, total, res.Total, name)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	eval := newTestEvaluator(t)
	for _, name := range eval.Registry().Names() {
		first, err := eval.Evaluate(name, "Resonance of the Spheres")
		require.NoError(t, err)
		second, err := eval.Evaluate(name, "Resonance of the Spheres")
		require.NoError(t, err)
		require.Equal(t, first, second, name)
	}
}

func TestEvaluateFoldsDiacritics(t *testing.T) {
	eval := newTestEvaluator(t)
	accented, err := eval.Evaluate(Simple, "Ésta")
	require.NoError(t, err)
	plain, err := eval.Evaluate(Simple, "esta")
	require.NoError(t, err)
	require.Equal(t, plain.Total, accented.Total)
}

func TestEvaluateUnknownCipher(t *testing.T) {
	eval := newTestEvaluator(t)
	_, err := eval.Evaluate("Nope", "abc")
	if !errors.Is(err, ErrUnknownCipher) {
		t.Fatalf("expected ErrUnknownCipher, got %v", err)
	}
	_, err = eval.Values([]string{Simple, "Nope"}, "abc")
	if !errors.Is(err, ErrUnknownCipher) {
		t.Fatalf("expected ErrUnknownCipher from Values, got %v", err)
	}
}

func TestValuesUsesCanonicalNames(t *testing.T) {
	eval := newTestEvaluator(t)
	values, err := eval.Values([]string{"simple", "JEWISH"}, "love")
	require.NoError(t, err)
	require.Equal(t, map[string]int64{Simple: 54, Jewish: 30 + 60 + 400 + 5}, values)
}

func TestDoublingVortexSaturates(t *testing.T) {
	eval := newTestEvaluator(t)
	res, err := eval.Evaluate(DoublingVortex, strings.Repeat("a", 80))
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), res.Total)
}

func TestCountVowelClusters(t *testing.T) {
	cases := map[string]int{
		"":          0,
		"xyz":       1,
		"aeiou":     3,
		"queue":     2,
		"strength":  1,
		"beautiful": 4,
	}
	for input, want := range cases {
		if got := countVowelClusters(input); got != want {
			t.Errorf("countVowelClusters(%q) = %d, want %d", input, got, want)
		}
	}
}
