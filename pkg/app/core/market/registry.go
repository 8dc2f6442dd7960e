package market

import (
	"fmt"
)

// Registry holds the fixed symbol universe of a run.
// It is built once and never changes, so it needs no locking.
type Registry struct {
	symbols []Symbol
	index   map[Symbol]int // symbol -> position in universe order
}

// NewRegistry builds a registry over strikes x {Call, Put}.
// Returns error on an empty or duplicated strike list.
func NewRegistry(strikes []int64) (*Registry, error) {
	if len(strikes) == 0 {
		return nil, fmt.Errorf("registry needs at least one strike")
	}

	symbols := Universe(strikes)
	r := &Registry{
		symbols: symbols,
		index:   make(map[Symbol]int, len(symbols)),
	}
	for i, s := range symbols {
		if _, exists := r.index[s]; exists {
			return nil, fmt.Errorf("strike %d listed twice", s.Strike)
		}
		r.index[s] = i
	}
	return r, nil
}

// Symbols returns the universe in its fixed order.
// Returns a copy so callers cannot reorder the registry.
func (r *Registry) Symbols() []Symbol {
	out := make([]Symbol, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// Exists checks if a symbol belongs to the universe
func (r *Registry) Exists(s Symbol) bool {
	_, ok := r.index[s]
	return ok
}

// Lookup parses a symbol string and checks it against the universe
func (r *Registry) Lookup(s string) (Symbol, error) {
	sym, err := ParseSymbol(s)
	if err != nil {
		return Symbol{}, err
	}
	if !r.Exists(sym) {
		return Symbol{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	return sym, nil
}

// Count returns the number of symbols in the universe
func (r *Registry) Count() int {
	return len(r.symbols)
}
