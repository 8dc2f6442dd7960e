package market

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownSymbol is returned when a symbol is not part of the run's universe
var ErrUnknownSymbol = errors.New("unknown symbol")

// Kind is the option type of a symbol
type Kind int8

const (
	Call Kind = iota
	Put
)

func (k Kind) String() string {
	switch k {
	case Call:
		return "Call"
	case Put:
		return "Put"
	default:
		return "Unknown"
	}
}

// Letter returns the one-letter code used in symbol strings ("C" or "P")
func (k Kind) Letter() string {
	if k == Put {
		return "P"
	}
	return "C"
}

// Symbol identifies a tradable option by strike and kind.
// Symbols are comparable and used directly as map keys.
type Symbol struct {
	Strike int64
	Kind   Kind
}

// String renders the symbol as "<strike><C|P>", e.g. "50C"
func (s Symbol) String() string {
	return strconv.FormatInt(s.Strike, 10) + s.Kind.Letter()
}

// ParseSymbol parses the "<strike><C|P>" form produced by String
func ParseSymbol(s string) (Symbol, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Symbol{}, fmt.Errorf("parse symbol %q: too short", s)
	}

	var kind Kind
	switch strings.ToUpper(s[len(s)-1:]) {
	case "C":
		kind = Call
	case "P":
		kind = Put
	default:
		return Symbol{}, fmt.Errorf("parse symbol %q: kind must be C or P", s)
	}

	strike, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return Symbol{}, fmt.Errorf("parse symbol %q: %w", s, err)
	}
	return Symbol{Strike: strike, Kind: kind}, nil
}

// Universe returns the cross product of strikes and {Call, Put}, strike-major.
// This order is the fixed processing order for matching.
func Universe(strikes []int64) []Symbol {
	out := make([]Symbol, 0, len(strikes)*2)
	for _, k := range strikes {
		out = append(out, Symbol{Strike: k, Kind: Call}, Symbol{Strike: k, Kind: Put})
	}
	return out
}
