package waterfall

import "github.com/Eran5102/Valuation-sub003/internal/captable"

// proRataBreakpoint computes phase (b): exactly one breakpoint, at the exit
// value where every liquidation preference is fully satisfied and residual
// proceeds begin flowing pro-rata to common and participating preferred
// (spec.md §4.3b). Present even when there is no preferred stock at all, at
// exit value zero.
func proRataBreakpoint(ct captable.CapTable, insertionOrder int) Breakpoint {
	totalLP := ct.TotalLiquidationPreference()

	// Affected securities are scoped to the participating pool itself
	// (spec.md §4.3b): common, participating/capped-participating
	// preferred, and cheap options — not every class on the cap table.
	var names []string
	for _, s := range ct.CommonClasses() {
		names = append(names, s.Name)
	}
	for _, s := range ct.PreferredClasses() {
		if s.PreferenceType == captable.Participating || s.PreferenceType == captable.ParticipatingWithCap {
			names = append(names, s.Name)
		}
	}
	for _, g := range ct.OptionGrants {
		if g.IsCheap() {
			names = append(names, g.ID)
		}
	}

	var deps []string
	if len(ct.PreferredClasses()) > 0 {
		deps = []string{"all_liquidation_preferences_satisfied"}
	}

	return newBreakpoint(
		TypeProRataDistribution, totalLP, names,
		"residual proceeds begin flowing pro-rata to common and participating preferred",
		"exit value equals the sum of every preferred class's liquidation preference",
		deps,
		insertionOrder,
	)
}
