package cipher

import (
	"errors"
	"unicode"
)

// Contribution is one (character, value) pair of a table cipher breakdown.
type Contribution struct {
	Char  rune  `json:"char"`
	Value int64 `json:"value"`
}

// Result is the outcome of evaluating one cipher over one text.
type Result struct {
	Cipher    string
	Kind      Kind
	Total     int64
	Breakdown []Contribution
}

// Evaluator computes cipher totals against an immutable registry.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator binds an evaluator to the registry.
func NewEvaluator(registry *Registry) (*Evaluator, error) {
	if registry == nil {
		return nil, errors.New("cipher evaluator: registry is required")
	}
	return &Evaluator{registry: registry}, nil
}

// Registry exposes the registry the evaluator reads from.
func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// Evaluate computes the named cipher over text.
func (e *Evaluator) Evaluate(name, text string) (Result, error) {
	def, err := e.registry.Lookup(name)
	if err != nil {
		return Result{}, err
	}
	return evaluate(def, text), nil
}

// EvaluateAll evaluates each named cipher in order.
func (e *Evaluator) EvaluateAll(names []string, text string) ([]Result, error) {
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		def, err := e.registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	folded := Fold(text)
	letters := lettersOf(folded)
	results := make([]Result, 0, len(defs))
	for _, def := range defs {
		results = append(results, evaluateFolded(def, folded, letters))
	}
	return results, nil
}

// Values returns cipher totals keyed by canonical cipher name.
func (e *Evaluator) Values(names []string, text string) (map[string]int64, error) {
	results, err := e.EvaluateAll(names, text)
	if err != nil {
		return nil, err
	}
	values := make(map[string]int64, len(results))
	for _, res := range results {
		values[res.Cipher] = res.Total
	}
	return values, nil
}

func evaluate(def Definition, text string) Result {
	folded := Fold(text)
	return evaluateFolded(def, folded, lettersOf(folded))
}

func evaluateFolded(def Definition, folded, letters string) Result {
	res := Result{Cipher: def.Name, Kind: def.Kind}
	switch def.Kind {
	case KindTable:
		for _, r := range folded {
			if r < 'a' || r > 'z' {
				continue
			}
			weight := def.table[r]
			if weight == 0 {
				continue
			}
			res.Total += weight
			res.Breakdown = append(res.Breakdown, Contribution{Char: unicode.ToUpper(r), Value: weight})
		}
	case KindFunctional:
		res.Total = def.fn(letters)
	}
	return res
}

func lettersOf(folded string) string {
	buf := make([]byte, 0, len(folded))
	for _, r := range folded {
		if r >= 'a' && r <= 'z' {
			buf = append(buf, byte(r))
		}
	}
	return string(buf)
}
