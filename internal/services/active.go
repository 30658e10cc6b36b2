package services

import (
	"fmt"
	"strings"

	"github.com/gematria-field/api/internal/cipher"
)

const defaultMaxActiveCiphers = 6

// activeSet resolves requested cipher names against the registry. Names are canonicalised and
// de-duplicated in request order; an empty request selects defaults.
type activeSet struct {
	registry *cipher.Registry
	defaults []string
	max      int
}

func newActiveSet(registry *cipher.Registry, defaults []string, max int) activeSet {
	if len(defaults) == 0 {
		defaults = cipher.DefaultActive
	}
	if max <= 0 {
		max = defaultMaxActiveCiphers
	}
	return activeSet{registry: registry, defaults: defaults, max: max}
}

func (a activeSet) resolve(names []string) ([]string, error) {
	requested := names
	if len(trimmedNonEmpty(requested)) == 0 {
		requested = a.defaults
	}
	seen := make(map[string]struct{}, len(requested))
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		if strings.TrimSpace(name) == "" {
			continue
		}
		canonical, err := a.registry.Canonical(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, strings.TrimSpace(name))
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	if len(out) > a.max {
		return nil, fmt.Errorf("%w: %d requested, at most %d", ErrTooManyCiphers, len(out), a.max)
	}
	return out, nil
}

func trimmedNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
