package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gematria-field/api/internal/cipher"
)

// CalculatorServiceDeps bundles collaborators required to construct a calculator service.
type CalculatorServiceDeps struct {
	Evaluator     *cipher.Evaluator
	DefaultActive []string
	MaxActive     int
}

type calculatorService struct {
	evaluator *cipher.Evaluator
	active    activeSet
}

var _ CalculatorService = (*calculatorService)(nil)

// NewCalculatorService constructs the calculator over an immutable registry.
func NewCalculatorService(deps CalculatorServiceDeps) (CalculatorService, error) {
	if deps.Evaluator == nil {
		return nil, errors.New("calculator service: evaluator is required")
	}
	return &calculatorService{
		evaluator: deps.Evaluator,
		active:    newActiveSet(deps.Evaluator.Registry(), deps.DefaultActive, deps.MaxActive),
	}, nil
}

func (s *calculatorService) Calculate(ctx context.Context, cmd CalculateCommand) (CalculationOutcome, error) {
	if ctx == nil {
		return CalculationOutcome{}, errors.New("calculator service: context is required")
	}
	active, err := s.active.resolve(cmd.Ciphers)
	if err != nil {
		return CalculationOutcome{}, err
	}

	text := strings.TrimSpace(cmd.Text)
	if isNumeral(text) {
		n, err := ParseNumber(text)
		if err != nil {
			return CalculationOutcome{}, err
		}
		return CalculationOutcome{Mode: ModeNumber, Number: n, Ciphers: active}, nil
	}
	if cipher.Normalize(text) == "" {
		return CalculationOutcome{}, ErrEmptyInput
	}

	results, err := s.evaluator.EvaluateAll(active, text)
	if err != nil {
		return CalculationOutcome{}, err
	}
	values := make(map[string]int64, len(results))
	for _, res := range results {
		values[res.Cipher] = res.Total
	}
	return CalculationOutcome{
		Mode:       ModePhrase,
		Ciphers:    active,
		Result:     CalculationResult{SourceText: text, Values: values},
		Breakdowns: results,
	}, nil
}

// ParseNumber parses a bare non-negative decimal integer.
func ParseNumber(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if !isNumeral(text) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, text)
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, text)
	}
	return n, nil
}

func isNumeral(text string) bool {
	if text == "" {
		return false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}
