package cipher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRegistryOrderAndKinds(t *testing.T) {
	reg := MustBuildRegistry()

	names := reg.Names()
	require.Len(t, names, 15)
	require.Equal(t, Simple, names[0])
	require.Equal(t, SyllableResonance, names[len(names)-1])

	for _, name := range []string{Simple, English, Jewish, Chaldean, ReverseSimple, ReverseEnglish, PrimePosition, Fibonacci, Latin, ALW} {
		if !reg.IsTable(name) {
			t.Errorf("expected %s to be a table cipher", name)
		}
	}
	for _, name := range []string{Reduction, GeminiResonance, DoublingVortex, LawOf6, SyllableResonance} {
		if reg.IsTable(name) {
			t.Errorf("expected %s to be functional", name)
		}
	}
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	reg := MustBuildRegistry()

	canonical, err := reg.Canonical("  reversesimple ")
	require.NoError(t, err)
	require.Equal(t, ReverseSimple, canonical)

	_, err = reg.Lookup("Hebrew")
	require.ErrorIs(t, err, ErrUnknownCipher)

	var nilReg *Registry
	_, err = nilReg.Lookup(Simple)
	require.ErrorIs(t, err, ErrUnknownCipher)
}

func TestRegistryTableIsCompleteCopy(t *testing.T) {
	reg := MustBuildRegistry()

	table, err := reg.Table(Latin)
	require.NoError(t, err)
	require.Len(t, table, 26)
	require.Equal(t, int64(9), table['J'])
	require.Equal(t, int64(200), table['U'])
	require.Equal(t, int64(400), table['W'])

	table['A'] = 999
	again, err := reg.Table(Latin)
	require.NoError(t, err)
	require.Equal(t, int64(1), again['A'])

	jewish, err := reg.Table(Jewish)
	require.NoError(t, err)
	require.Equal(t, int64(10), jewish['J'])
	require.Equal(t, int64(800), jewish['Z'])

	_, err = reg.Table(LawOf6)
	require.Error(t, err)
}

func TestDefinitionWeight(t *testing.T) {
	reg := MustBuildRegistry()

	prime, err := reg.Lookup(PrimePosition)
	require.NoError(t, err)
	require.Equal(t, int64(2), prime.Weight('a'))
	require.Equal(t, int64(101), prime.Weight('Z'))
	require.Zero(t, prime.Weight('!'))

	fn, err := reg.Lookup(Reduction)
	require.NoError(t, err)
	require.Zero(t, fn.Weight('A'))
}

func TestDefinitionField(t *testing.T) {
	cases := map[string]string{
		Simple:            "simple",
		ALW:               "alw",
		LawOf6:            "lawOf6",
		ReverseSimple:     "reverseSimple",
		SyllableResonance: "syllableResonance",
		"EQSum":           "eqSum",
	}
	for name, want := range cases {
		if got := (Definition{Name: name}).Field(); got != want {
			t.Errorf("Field(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestNewRegistryRejectsInvalidDeclarations(t *testing.T) {
	build := func() map[rune]int64 { return map[rune]int64{'A': 1} }

	tests := []struct {
		name   string
		tables []TableDecl
		funcs  []FuncDecl
	}{
		{
			name:   "duplicate name across kinds",
			tables: []TableDecl{{Name: "Alpha", Build: build}},
			funcs:  []FuncDecl{{Name: "alpha", Fn: func(string) int64 { return 0 }}},
		},
		{
			name:   "empty name",
			tables: []TableDecl{{Name: " ", Build: build}},
		},
		{
			name:   "missing builder",
			tables: []TableDecl{{Name: "Alpha"}},
		},
		{
			name:  "missing function",
			funcs: []FuncDecl{{Name: "Beta"}},
		},
		{
			name:   "non-letter key",
			tables: []TableDecl{{Name: "Alpha", Build: func() map[rune]int64 { return map[rune]int64{'1': 1} }}},
		},
		{
			name:   "negative weight",
			tables: []TableDecl{{Name: "Alpha", Build: func() map[rune]int64 { return map[rune]int64{'A': -1} }}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.tables, tc.funcs)
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("expected ErrInvalidDefinition, got %v", err)
			}
		})
	}
}

func TestNewRegistryFillsMissingLetters(t *testing.T) {
	reg, err := NewRegistry([]TableDecl{{Name: "Sparse", Build: func() map[rune]int64 { return map[rune]int64{'b': 7} }}}, nil)
	require.NoError(t, err)

	table, err := reg.Table("sparse")
	require.NoError(t, err)
	require.Equal(t, int64(7), table['B'])
	require.Zero(t, table['A'])

	eval, err := NewEvaluator(reg)
	require.NoError(t, err)
	res, err := eval.Evaluate("Sparse", "abba")
	require.NoError(t, err)
	require.Equal(t, int64(14), res.Total)
	require.Len(t, res.Breakdown, 2)
}

func TestNewEvaluatorRequiresRegistry(t *testing.T) {
	if _, err := NewEvaluator(nil); err == nil {
		t.Fatal("expected error for nil registry")
	}
}
