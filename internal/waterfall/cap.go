package waterfall

import (
	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/money"
)

// capReachExitValue solves the closed-form exit value at which a
// participating-with-cap class's total payout (its liquidation preference
// plus its uncapped pro-rata share of the residual) first reaches its
// capped participation value, lp*participationCap (spec.md §4.3e):
//
//	lp + proRataShare*(X - totalLP) = lp*participationCap
//	X = totalLP + (lp*participationCap - lp) / proRataShare
//
// proRataShare is the class's as-converted share of the fully-converted
// cap table, matching the denominator used for uncapped pro-rata
// participation once all preferences are satisfied.
func capReachExitValue(ct captable.CapTable, class captable.ShareClass) money.Decimal {
	totalLP := ct.TotalLiquidationPreference()
	lp := class.LiquidationPreference()
	capValue := lp.Mul(class.ParticipationCap)
	proRataShare := class.AsConvertedShares().Div(ct.TotalAsConvertedShares())
	if proRataShare.IsZero() {
		return totalLP
	}
	return totalLP.Add(capValue.Sub(lp).Div(proRataShare))
}

// participationCapBreakpoints computes phase (e): one breakpoint per
// participating-with-cap class, at the exit value its participation caps
// out (spec.md §4.3e).
func participationCapBreakpoints(ct captable.CapTable, insertionStart int) []Breakpoint {
	var bps []Breakpoint
	insertion := insertionStart

	for _, class := range ct.PreferredClasses() {
		if class.PreferenceType != captable.ParticipatingWithCap {
			continue
		}
		x := capReachExitValue(ct, class)
		bps = append(bps, newBreakpoint(
			TypeParticipationCap, x, []string{class.Name},
			class.Name+" participation reaches its cap of "+class.ParticipationCap.Canonical()+"x its liquidation preference",
			"closed form: totalLP + (lp*participationCap - lp) / proRataShare",
			[]string{"all_liquidation_preferences_satisfied"},
			insertion,
		))
		insertion++
	}
	return bps
}
