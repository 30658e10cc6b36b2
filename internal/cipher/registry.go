package cipher

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrUnknownCipher is returned when a cipher name is not present in the registry.
	ErrUnknownCipher = errors.New("cipher: unknown cipher")
	// ErrInvalidDefinition signals a malformed cipher declaration detected while building the registry.
	ErrInvalidDefinition = errors.New("cipher: invalid definition")
)

// Kind distinguishes the two cipher variants.
type Kind int

const (
	// KindTable sums per-letter weights.
	KindTable Kind = iota + 1
	// KindFunctional applies a whole-string formula.
	KindFunctional
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindFunctional:
		return "functional"
	default:
		return "unknown"
	}
}

// Func computes a functional cipher total from normalised letters-only text.
type Func func(letters string) int64

// Definition is a named cipher. Exactly one of table or fn is populated, selected by Kind.
type Definition struct {
	Name        string
	Kind        Kind
	Description string

	table map[rune]int64
	fn    Func
}

// Weight returns the weight for r in a table cipher. Non-letters and functional ciphers yield 0.
func (d Definition) Weight(r rune) int64 {
	if d.Kind != KindTable {
		return 0
	}
	return d.table[r]
}

// Field is the persisted field name used for this cipher's value (lower camel case).
func (d Definition) Field() string {
	return FieldName(d.Name)
}

// Registry is the ordered, immutable set of cipher definitions built once at start-up.
type Registry struct {
	order []string
	defs  map[string]Definition
}

// TableDecl declares a table cipher from a builder producing uppercase letter weights.
type TableDecl struct {
	Name        string
	Description string
	Build       func() map[rune]int64
}

// FuncDecl declares a functional cipher.
type FuncDecl struct {
	Name        string
	Description string
	Fn          Func
}

// NewRegistry validates and assembles a registry from explicit declarations.
func NewRegistry(tables []TableDecl, funcs []FuncDecl) (*Registry, error) {
	reg := &Registry{defs: make(map[string]Definition, len(tables)+len(funcs))}

	add := func(def Definition) error {
		key := strings.ToLower(strings.TrimSpace(def.Name))
		if key == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
		}
		if _, exists := reg.defs[key]; exists {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidDefinition, def.Name)
		}
		reg.defs[key] = def
		reg.order = append(reg.order, def.Name)
		return nil
	}

	for _, decl := range tables {
		if decl.Build == nil {
			return nil, fmt.Errorf("%w: table %q has no builder", ErrInvalidDefinition, decl.Name)
		}
		table, err := completeTable(decl.Build())
		if err != nil {
			return nil, fmt.Errorf("%w: table %q: %v", ErrInvalidDefinition, decl.Name, err)
		}
		if err := add(Definition{Name: decl.Name, Kind: KindTable, Description: decl.Description, table: table}); err != nil {
			return nil, err
		}
	}
	for _, decl := range funcs {
		if decl.Fn == nil {
			return nil, fmt.Errorf("%w: functional cipher %q has no function", ErrInvalidDefinition, decl.Name)
		}
		if err := add(Definition{Name: decl.Name, Kind: KindFunctional, Description: decl.Description, fn: decl.Fn}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// BuildRegistry constructs the standard registry of every supported cipher.
func BuildRegistry() (*Registry, error) {
	return NewRegistry(standardTables(), standardFunctions())
}

// MustBuildRegistry is BuildRegistry that panics on a malformed declaration.
func MustBuildRegistry() *Registry {
	reg, err := BuildRegistry()
	if err != nil {
		panic(err)
	}
	return reg
}

// Names lists cipher names in declaration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup resolves a cipher by case-insensitive name.
func (r *Registry) Lookup(name string) (Definition, error) {
	if r == nil {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownCipher, name)
	}
	def, ok := r.defs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownCipher, name)
	}
	return def, nil
}

// Canonical returns the declared spelling of a cipher name.
func (r *Registry) Canonical(name string) (string, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return def.Name, nil
}

// IsTable reports whether name resolves to a table cipher.
func (r *Registry) IsTable(name string) bool {
	def, err := r.Lookup(name)
	return err == nil && def.Kind == KindTable
}

// Table returns a copy of the uppercase letter weights for a table cipher.
func (r *Registry) Table(name string) (map[rune]int64, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if def.Kind != KindTable {
		return nil, fmt.Errorf("cipher: %s is not a table cipher", def.Name)
	}
	out := make(map[rune]int64, 26)
	for letter := 'A'; letter <= 'Z'; letter++ {
		out[letter] = def.table[letter]
	}
	return out, nil
}

// Definitions returns every definition in declaration order.
func (r *Registry) Definitions() []Definition {
	if r == nil {
		return nil
	}
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[strings.ToLower(name)])
	}
	return out
}

// completeTable fills every letter A-Z (missing letters weigh 0) and mirrors to lowercase.
func completeTable(src map[rune]int64) (map[rune]int64, error) {
	table := make(map[rune]int64, 52)
	for key, weight := range src {
		upper := unicode.ToUpper(key)
		if upper < 'A' || upper > 'Z' {
			return nil, fmt.Errorf("non-letter key %q", key)
		}
		if weight < 0 {
			return nil, fmt.Errorf("negative weight for %q", key)
		}
		table[upper] = weight
	}
	for letter := 'A'; letter <= 'Z'; letter++ {
		weight := table[letter]
		table[letter] = weight
		table[unicode.ToLower(letter)] = weight
	}
	return table, nil
}

// FieldName converts a cipher name to its persisted lower camel case field name.
func FieldName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	runes := []rune(name)
	prefix := 0
	for prefix < len(runes) && unicode.IsUpper(runes[prefix]) {
		prefix++
	}
	// keep the last capital of an acronym prefix when a word follows it.
	if prefix > 1 && prefix < len(runes) {
		prefix--
	}
	if prefix == 0 {
		prefix = 1
	}
	for i := 0; i < prefix; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
