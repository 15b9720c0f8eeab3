// Package money provides the fixed-precision decimal primitive used
// throughout the cap-table waterfall engine. All monetary values, share
// counts treated multiplicatively, ratios, and cumulative sums flow
// through Decimal instead of float64 to avoid floating-point drift.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits Div rounds its quotient to.
// shopspring/decimal stores an arbitrary-precision integer coefficient plus
// an exponent, so Add, Sub and Mul are exact; only Div narrows.
const Precision = 28

// CanonicalFracDigits is the fixed number of fractional digits used when
// formatting a Decimal for canonical serialization and the verification
// hash (spec.md §4.6, §6).
const CanonicalFracDigits = 10

// Decimal is an immutable fixed-precision decimal number.
type Decimal struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{d: decimal.Zero}

// New constructs a Decimal equal to value * 10^(-exp), matching
// decimal.New's (value, exp) convention.
func New(value int64, exp int32) Decimal {
	return Decimal{d: decimal.New(value, exp)}
}

// NewFromInt constructs a whole-number Decimal.
func NewFromInt(value int64) Decimal {
	return Decimal{d: decimal.NewFromInt(value)}
}

// NewFromString parses a decimal literal exactly (no binary float
// intermediate), returning an error for malformed input.
func NewFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("money: invalid decimal literal %q: %w", s, err)
	}
	return Decimal{d: d}, nil
}

// MustFromString is NewFromString but panics on error; used for literals
// that are known-good at compile time (tests, constants).
func MustFromString(s string) Decimal {
	d, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewFromFloat constructs a Decimal from a float64. Reserved for call
// sites translating externally-sourced float data (e.g. test fixtures);
// core computation never round-trips through float64.
func NewFromFloat(f float64) Decimal {
	return Decimal{d: decimal.NewFromFloat(f)}
}

func (a Decimal) Add(b Decimal) Decimal { return Decimal{d: a.d.Add(b.d)} }
func (a Decimal) Sub(b Decimal) Decimal { return Decimal{d: a.d.Sub(b.d)} }
func (a Decimal) Mul(b Decimal) Decimal { return Decimal{d: a.d.Mul(b.d)} }
func (a Decimal) Neg() Decimal          { return Decimal{d: a.d.Neg()} }

// Div divides a by b, rounding the result to Precision fractional digits.
// Division is generally non-terminating in decimal, so unlike Add/Sub/Mul
// it is not exact; Precision digits is far beyond what any waterfall
// computation needs to stay correct after narrowing.
func (a Decimal) Div(b Decimal) Decimal {
	return Decimal{d: a.d.DivRound(b.d, Precision)}
}

// RoundHalfUp narrows to the given number of fractional digits using
// round-half-up. All Decimal values in this package are non-negative
// money/share quantities, for which shopspring's round-half-away-from-zero
// Round coincides exactly with round-half-up.
func (a Decimal) RoundHalfUp(places int32) Decimal {
	return Decimal{d: a.d.Round(places)}
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Decimal) Cmp(b Decimal) int { return a.d.Cmp(b.d) }

func (a Decimal) LessThan(b Decimal) bool           { return a.d.LessThan(b.d) }
func (a Decimal) LessThanOrEqual(b Decimal) bool    { return a.d.LessThanOrEqual(b.d) }
func (a Decimal) GreaterThan(b Decimal) bool        { return a.d.GreaterThan(b.d) }
func (a Decimal) GreaterThanOrEqual(b Decimal) bool { return a.d.GreaterThanOrEqual(b.d) }

// Equal is exact decimal-value equality (1.0 == 1.00), never an
// epsilon-tolerant comparison. Tolerant comparisons are named explicitly
// (WithinTolerance) so convergence/conservation checks stand out at call
// sites, per spec.md §4.1.
func (a Decimal) Equal(b Decimal) bool { return a.d.Equal(b.d) }

func (a Decimal) IsZero() bool     { return a.d.IsZero() }
func (a Decimal) IsNegative() bool { return a.d.IsNegative() }
func (a Decimal) IsPositive() bool { return a.d.IsPositive() }

// Abs returns the absolute value.
func (a Decimal) Abs() Decimal { return Decimal{d: a.d.Abs()} }

// Max returns the larger of a and b.
func Max(a, b Decimal) Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b Decimal) Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// WithinTolerance reports whether |a-b| <= tolerance. This is the only
// place equality may be approximate, and every call site names the
// tolerance explicitly (spec.md §4.1, §4.4, §4.5).
func WithinTolerance(a, b, tolerance Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// String renders the decimal using its minimal exact representation.
func (a Decimal) String() string { return a.d.String() }

// Canonical renders the decimal with exactly CanonicalFracDigits
// fractional digits, for canonical serialization and the verification
// hash (spec.md §4.6, §6, and §9's note on toFixed(...)-keyed caches).
func (a Decimal) Canonical() string {
	return a.d.StringFixed(CanonicalFracDigits)
}

// MarshalJSON renders the decimal as a JSON string holding its exact
// value, so round-tripping through the result cache or the HTTP API never
// loses precision the way a JSON number (float64) would.
func (a Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.d.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare JSON number, both
// holding a decimal literal.
func (a *Decimal) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("money: unmarshaling %q: %w", s, err)
	}
	a.d = d
	return nil
}

// Float64 converts to float64, losing precision. The solver, analyzer and
// JSON encoding (MarshalJSON) never go through it.
func (a Decimal) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}
