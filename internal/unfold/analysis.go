// Package unfold derives numeric sequences from a phrase and decodes its aggregate cipher value
// into candidate resonance numbers.
package unfold

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/gematria-field/api/internal/cipher"
)

const (
	alphabetSize = 26
	halfAlphabet = 13
	toneScale    = 7

	minAggregateCiphers = 2
	maxAggregateCiphers = 3
)

// DefaultAggregateCiphers are concatenated when no selection is supplied.
var DefaultAggregateCiphers = []string{cipher.Simple, cipher.English, cipher.Jewish}

// ErrAggregateSelection reports an aggregate cipher selection outside 2-3 ciphers.
var ErrAggregateSelection = errors.New("unfold: aggregate requires 2 or 3 ciphers")

// Options configures Analyze.
type Options struct {
	Evaluator        *cipher.Evaluator
	AggregateCiphers []string
}

// Analysis is the full unfold of a phrase.
type Analysis struct {
	Clean            string
	Values           []int
	LinearDiff       []int
	CircularDiff     []int
	ToneMap          []int
	ToneMapB36       string
	AggregateCiphers []string
	AggregateTotals  []int64
	Aggregate        *big.Int
	FactorChain      []int64
	ChainB36         []string
	Resonance        []int64
	TooLarge         bool
	Empty            bool
}

// Analyze runs the unfold pipeline over raw. Letter-less input yields an Empty analysis.
func Analyze(raw string, opts Options) (Analysis, error) {
	if opts.Evaluator == nil {
		return Analysis{}, errors.New("unfold: evaluator is required")
	}
	selection := opts.AggregateCiphers
	if len(selection) == 0 {
		selection = DefaultAggregateCiphers
	}
	if len(selection) < minAggregateCiphers || len(selection) > maxAggregateCiphers {
		return Analysis{}, fmt.Errorf("%w: got %d", ErrAggregateSelection, len(selection))
	}

	clean := strings.ToUpper(cipher.Normalize(raw))
	if clean == "" {
		return Analysis{Empty: true}, nil
	}

	results, err := opts.Evaluator.EvaluateAll(selection, clean)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{Clean: clean}
	a.Values = letterValues(clean)
	a.LinearDiff = linearDiff(a.Values)
	a.CircularDiff = circularDiff(a.LinearDiff)
	a.ToneMap = toneMap(a.Values)
	a.ToneMapB36 = toneMapB36(a.ToneMap)

	var digits strings.Builder
	for _, res := range results {
		a.AggregateCiphers = append(a.AggregateCiphers, res.Cipher)
		a.AggregateTotals = append(a.AggregateTotals, res.Total)
		fmt.Fprintf(&digits, "%d", res.Total)
	}
	a.Aggregate, _ = new(big.Int).SetString(digits.String(), 10)

	a.FactorChain, a.TooLarge = FactorChain(a.Aggregate)
	a.ChainB36 = EncodeChain(a.FactorChain)
	a.Resonance = Decode(a.ChainB36)
	return a, nil
}

func letterValues(clean string) []int {
	values := make([]int, len(clean))
	for i := 0; i < len(clean); i++ {
		values[i] = int(clean[i]-'A') + 1
	}
	return values
}

func linearDiff(values []int) []int {
	if len(values) < 2 {
		return []int{}
	}
	out := make([]int, len(values)-1)
	for i := range out {
		out[i] = values[i+1] - values[i]
	}
	return out
}

func circularDiff(linear []int) []int {
	out := make([]int, len(linear))
	for i, d := range linear {
		switch {
		case d > halfAlphabet:
			d -= alphabetSize
		case d < -halfAlphabet:
			d += alphabetSize
		}
		out[i] = d
	}
	return out
}

func toneMap(values []int) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = (v-1)%toneScale + 1
	}
	return out
}

func toneMapB36(tones []int) string {
	if len(tones) == 0 {
		return ""
	}
	var digits strings.Builder
	for _, t := range tones {
		digits.WriteByte(byte('0' + t))
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return ""
	}
	return n.Text(36)
}
