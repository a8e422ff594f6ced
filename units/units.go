// Package units parses the unit strings stored in FITS TUNITn header cards.
//
// Only unit attachment is supported: a parsed Unit records its scale factor
// and the base symbols with their integer powers, which is enough to validate
// a symbol and compare two units. No conversion between units is performed.
package units

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/kamusis/pyckles/errdefs"
)

// Factor is one symbol raised to an integer power, e.g. cm^-2.
type Factor struct {
	Symbol string
	Power  int
}

// Unit is a parsed unit expression.
type Unit struct {
	raw     string
	scale   float64
	factors []Factor
}

// ParseError reports an unparseable unit string.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse unit %q at offset %d: %s", e.Input, e.Offset, e.Reason)
}

// Unwrap classifies unit failures as invalid values.
func (e *ParseError) Unwrap() error { return errdefs.ErrInvalidValue }

// Parse parses s. The empty string is rejected: a missing unit is an error,
// never an implicit dimensionless value.
func Parse(s string) (Unit, error) {
	if strings.TrimSpace(s) == "" {
		return Unit{}, &ParseError{Input: s, Reason: "empty unit"}
	}
	p := &parser{input: s, toks: nil}
	if err := p.tokenize(); err != nil {
		return Unit{}, err
	}
	scale, powers, err := p.parseProduct()
	if err != nil {
		return Unit{}, err
	}
	if p.pos < len(p.toks) {
		t := p.toks[p.pos]
		return Unit{}, &ParseError{Input: s, Offset: t.off, Reason: fmt.Sprintf("unexpected %q", t.text)}
	}
	return Unit{raw: strings.TrimSpace(s), scale: scale, factors: normalize(powers)}, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Unit {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Raw returns the unit string exactly as it was parsed.
func (u Unit) Raw() string { return u.raw }

// Scale returns the numeric factor of the unit (1 for most units).
func (u Unit) Scale() float64 { return u.scale }

// Factors returns the canonical factors, sorted by symbol.
func (u Unit) Factors() []Factor { return slices.Clone(u.factors) }

// Equal reports whether u and o denote the same unit, independent of
// spelling, ordering or aliases ("erg / (Angstrom cm2 s)" equals
// "erg s^-1 angstrom^-1 cm^-2").
func (u Unit) Equal(o Unit) bool {
	if !closeEnough(u.scale, o.scale) {
		return false
	}
	return slices.Equal(u.factors, o.factors)
}

// String renders the canonical form, e.g. "Angstrom-1 cm-2 erg s-1".
func (u Unit) String() string {
	var b strings.Builder
	if u.scale != 1 && u.scale != 0 {
		fmt.Fprintf(&b, "%g", u.scale)
	}
	for _, f := range u.factors {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.Symbol)
		if f.Power != 1 {
			fmt.Fprintf(&b, "%d", f.Power)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String()
}

func normalize(powers map[string]int) []Factor {
	out := make([]Factor, 0, len(powers))
	for sym, p := range powers {
		if p != 0 {
			out = append(out, Factor{Symbol: sym, Power: p})
		}
	}
	slices.SortFunc(out, func(a, b Factor) int { return strings.Compare(a.Symbol, b.Symbol) })
	return out
}

func closeEnough(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-12*math.Max(math.Abs(a), math.Abs(b))
}
