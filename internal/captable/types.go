// Package captable defines the immutable cap-table data model consumed by
// the waterfall analyzer: share classes, option grants, and the cap table
// that groups them. All types are value objects; a CapTable is constructed
// once per analysis and never mutated (spec.md §3).
package captable

import "github.com/Eran5102/Valuation-sub003/internal/money"

// Kind distinguishes common stock from preferred stock.
type Kind string

const (
	Common    Kind = "COMMON"
	Preferred Kind = "PREFERRED"
)

// PreferenceType describes how a preferred class participates in residual
// proceeds after its liquidation preference is satisfied.
type PreferenceType string

const (
	NonParticipating     PreferenceType = "NON_PARTICIPATING"
	Participating        PreferenceType = "PARTICIPATING"
	ParticipatingWithCap PreferenceType = "PARTICIPATING_WITH_CAP"
)

// CheapOptionThreshold is the strike at or below which an option is
// considered "cheap" and always exercises (spec.md §3, OptionGrant).
var CheapOptionThreshold = money.MustFromString("0.01")

// ShareClass is one row of the cap table: a class of common or preferred
// stock. Preferred-only fields are zero-valued for Common.
type ShareClass struct {
	ID                string
	Kind              Kind
	Name              string
	SharesOutstanding int64
	PricePerShare     money.Decimal
	ConversionRatio   money.Decimal

	// Preferred-only.
	PreferenceType    PreferenceType
	LPMultiple        money.Decimal
	SeniorityRank     int
	ParticipationCap  money.Decimal // multiple of LP; zero means "not set"
	HasParticipationCap bool
}

// IsPreferred reports whether this class is preferred stock.
func (s ShareClass) IsPreferred() bool { return s.Kind == Preferred }

// SharesOutstandingDecimal returns SharesOutstanding as a money.Decimal for
// use in multiplicative arithmetic.
func (s ShareClass) SharesOutstandingDecimal() money.Decimal {
	return money.NewFromInt(s.SharesOutstanding)
}

// LiquidationPreference returns shares * pricePerShare * lpMultiple. Only
// meaningful for Preferred classes; dividend accrual is out of scope
// (spec.md §9 open question) so LP is exactly this product.
func (s ShareClass) LiquidationPreference() money.Decimal {
	return s.SharesOutstandingDecimal().Mul(s.PricePerShare).Mul(s.LPMultiple)
}

// AsConvertedShares returns sharesOutstanding * conversionRatio, the
// common-equivalent share count used for pro-rata participation.
func (s ShareClass) AsConvertedShares() money.Decimal {
	return s.SharesOutstandingDecimal().Mul(s.ConversionRatio)
}

// OptionGrant is one tranche of options with a uniform strike price.
type OptionGrant struct {
	ID           string
	NumOptions   int64
	VestedCount  int64 // 0 < VestedCount <= NumOptions; if unset at construction, CapTable.Normalized backfills to NumOptions via NormalizeVestedCount
	StrikePrice  money.Decimal
}

// IsCheap reports whether this grant's strike is at or below the cheap
// threshold and therefore always exercises (spec.md §3).
func (o OptionGrant) IsCheap() bool {
	return o.StrikePrice.LessThanOrEqual(CheapOptionThreshold)
}

// VestedCountDecimal returns VestedCount as a money.Decimal.
func (o OptionGrant) VestedCountDecimal() money.Decimal {
	return money.NewFromInt(o.VestedCount)
}

// NormalizeVestedCount returns a copy of the grant with VestedCount
// defaulted to NumOptions when it was left at zero, matching spec.md §3's
// "defaults to numOptions" rule. CapTable.Normalized applies this to every
// grant so downstream code never has to special-case VestedCount==0.
func (o OptionGrant) NormalizeVestedCount() OptionGrant {
	if o.VestedCount == 0 {
		o.VestedCount = o.NumOptions
	}
	return o
}

// CapTable is the ordered, immutable set of share classes and option
// grants under analysis.
type CapTable struct {
	ShareClasses []ShareClass
	OptionGrants []OptionGrant
}

// Normalized returns a copy of the CapTable with each OptionGrant's
// VestedCount defaulted per NormalizeVestedCount. Callers constructing a
// CapTable from external input (CLI YAML, HTTP JSON) should call this
// before Validate/Analyze.
func (c CapTable) Normalized() CapTable {
	out := CapTable{
		ShareClasses: append([]ShareClass(nil), c.ShareClasses...),
		OptionGrants: make([]OptionGrant, len(c.OptionGrants)),
	}
	for i, g := range c.OptionGrants {
		out.OptionGrants[i] = g.NormalizeVestedCount()
	}
	return out
}

// PreferredClasses returns the subset of ShareClasses with Kind==Preferred,
// preserving order.
func (c CapTable) PreferredClasses() []ShareClass {
	var out []ShareClass
	for _, s := range c.ShareClasses {
		if s.Kind == Preferred {
			out = append(out, s)
		}
	}
	return out
}

// CommonClasses returns the subset of ShareClasses with Kind==Common.
func (c CapTable) CommonClasses() []ShareClass {
	var out []ShareClass
	for _, s := range c.ShareClasses {
		if s.Kind == Common {
			out = append(out, s)
		}
	}
	return out
}

// TotalLiquidationPreference sums LiquidationPreference() over every
// preferred class, regardless of seniority rank.
func (c CapTable) TotalLiquidationPreference() money.Decimal {
	total := money.Zero
	for _, s := range c.PreferredClasses() {
		total = total.Add(s.LiquidationPreference())
	}
	return total
}

// BaseShares is commonShares + sum(preferredShares * conversionRatio), the
// as-converted share base before any option exercise (spec.md §4.3c).
func (c CapTable) BaseShares() money.Decimal {
	total := money.Zero
	for _, s := range c.ShareClasses {
		total = total.Add(s.AsConvertedShares())
	}
	return total
}

// TotalAsConvertedShares is an alias for BaseShares kept for readability at
// call sites that compute pro-rata shares of the fully-converted cap table
// (spec.md §4.3e).
func (c CapTable) TotalAsConvertedShares() money.Decimal {
	return c.BaseShares()
}
