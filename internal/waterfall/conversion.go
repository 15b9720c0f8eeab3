package waterfall

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Eran5102/Valuation-sub003/internal/audit"
	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/money"
)

// decisionMap tracks, per preferred class ID, whether that class has
// elected to forgo its liquidation preference (by converting to common, or
// by abandoning a capped participation position) at the exit value
// currently under consideration. Spec.md §9 calls for replacing a
// `Map<number, boolean>`-plus-JSON-stringified-key cache with a stable,
// order-independent key; stableKey below is that replacement.
type decisionMap map[string]bool

// stableKey returns a sorted, comma-joined list of the class IDs that have
// converted, independent of map iteration order (spec.md §9, §4.4's RVPS
// cache key).
func (d decisionMap) stableKey() string {
	if len(d) == 0 {
		return ""
	}
	ids := make([]string, 0, len(d))
	for id, converted := range d {
		if converted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// rvpsCache memoizes redemption-value-per-share results within a single
// analysis, keyed by (exitValue, classID, convertFlag, stableKey(decisions))
// as spec.md §4.4 requires. It is owned by one analysis and discarded at
// the end; never a package-level/global cache (spec.md §5, §9).
type rvpsCache struct {
	values map[string]money.Decimal
}

func newRVPSCache() *rvpsCache { return &rvpsCache{values: make(map[string]money.Decimal)} }

func rvpsCacheKey(exitValue money.Decimal, classID string, convert bool, decisions decisionMap) string {
	return exitValue.Canonical() + "|" + classID + "|" + boolKey(convert) + "|" + decisions.stableKey()
}

func boolKey(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// rvps computes the redemption value per share of class at exitValue under
// the given conversion decision, per spec.md §4.3d: it subtracts the LPs
// of strictly-senior classes that have not converted, then either
// distributes the residual pro-rata among common, the strictly-senior
// classes that have converted, and the class itself, all as-converted
// (convert=true), or returns the lesser of the class's own LP and the
// residual (convert=false), divided by shares outstanding.
func rvps(ct captable.CapTable, class captable.ShareClass, exitValue money.Decimal, convert bool, decisions decisionMap, cache *rvpsCache, metrics *audit.Metrics) money.Decimal {
	key := rvpsCacheKey(exitValue, class.ID, convert, decisions)
	if v, ok := cache.values[key]; ok {
		metrics.CacheHits++
		return v
	}
	metrics.CacheMisses++

	seniorRetainedLP := money.Zero
	for _, other := range ct.PreferredClasses() {
		if other.SeniorityRank < class.SeniorityRank && !decisions[other.ID] {
			seniorRetainedLP = seniorRetainedLP.Add(other.LiquidationPreference())
		}
	}
	remaining := exitValue.Sub(seniorRetainedLP)
	if remaining.IsNegative() {
		remaining = money.Zero
	}

	var result money.Decimal
	if convert {
		totalConverted := money.Zero
		for _, cc := range ct.CommonClasses() {
			totalConverted = totalConverted.Add(cc.AsConvertedShares())
		}
		for _, other := range ct.PreferredClasses() {
			if other.ID == class.ID {
				continue
			}
			if other.SeniorityRank < class.SeniorityRank && decisions[other.ID] {
				totalConverted = totalConverted.Add(other.AsConvertedShares())
			}
		}
		totalConverted = totalConverted.Add(class.AsConvertedShares())
		if totalConverted.IsZero() {
			result = money.Zero
		} else {
			payout := remaining.Mul(class.AsConvertedShares()).Div(totalConverted)
			result = payout.Div(class.SharesOutstandingDecimal())
		}
	} else {
		payout := money.Min(class.LiquidationPreference(), remaining)
		result = payout.Div(class.SharesOutstandingDecimal())
	}

	cache.values[key] = result
	return result
}

// voluntaryConversionBreakpoints computes phase (d): the non-participating
// and participating-with-cap voluntary-conversion breakpoints, processed
// senior-to-junior so each class's decision is visible to its juniors
// (spec.md §4.3d).
func voluntaryConversionBreakpoints(ct captable.CapTable, trail *audit.Trail, metrics *audit.Metrics, insertionStart int) []Breakpoint {
	preferred := append([]captable.ShareClass(nil), ct.PreferredClasses()...)
	sort.SliceStable(preferred, func(i, j int) bool {
		return preferred[i].SeniorityRank < preferred[j].SeniorityRank
	})

	decisions := make(decisionMap)
	cache := newRVPSCache()
	var bps []Breakpoint
	insertion := insertionStart

	for _, class := range preferred {
		switch class.PreferenceType {
		case captable.NonParticipating:
			lp := class.LiquidationPreference()
			low, high := lp, lp.Mul(money.NewFromInt(100))
			f := func(x money.Decimal) money.Decimal {
				convertVal := rvps(ct, class, x, true, decisions, cache, metrics)
				retainVal := rvps(ct, class, x, false, decisions, cache, metrics)
				return convertVal.Sub(retainVal)
			}
			x, iterations, converged := bisect(low, high, f)
			metrics.RecordIterations("conversion:"+class.ID, iterations)
			if !converged {
				trail.Warning("voluntary_conversion", "ConversionDidNotConverge(%s)", class.Name)
				continue
			}
			decisions[class.ID] = true
			bps = append(bps, newBreakpoint(
				TypeVoluntaryConversion, x, []string{class.Name},
				class.Name+" converts to common once its as-converted pro-rata value exceeds its liquidation preference",
				"rvps(convert) crosses rvps(retain) via bisection over ["+low.Canonical()+", "+high.Canonical()+"]",
				[]string{"seniority_rank_" + strconv.Itoa(class.SeniorityRank) + "_satisfied"},
				insertion,
			))
			insertion++

		case captable.ParticipatingWithCap:
			capReachX := capReachExitValue(ct, class)
			capValue := class.LiquidationPreference().Mul(class.ParticipationCap)
			proRataShare := class.AsConvertedShares().Div(ct.TotalAsConvertedShares())
			low, high := capReachX, capReachX.Mul(money.NewFromInt(10))
			f := func(x money.Decimal) money.Decimal {
				return proRataShare.Mul(x).Sub(capValue)
			}
			x, iterations, converged := bisect(low, high, f)
			metrics.RecordIterations("post_cap_conversion:"+class.ID, iterations)
			if !converged {
				trail.Warning("voluntary_conversion", "ConversionDidNotConverge(%s)", class.Name)
				continue
			}
			decisions[class.ID] = true
			bps = append(bps, newBreakpoint(
				TypeVoluntaryConversion, x, []string{class.Name},
				class.Name+" abandons its capped participation and fully converts to common",
				"proRataShare*X crosses lp*participationCap via bisection over ["+low.Canonical()+", "+high.Canonical()+"]",
				[]string{"participation_cap_" + class.ID + "_reached"},
				insertion,
			))
			insertion++
		}
	}

	return bps
}
