package waterfall

import (
	"sort"
	"strconv"

	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/money"
)

// liquidationPreferenceBreakpoints computes phase (a): one breakpoint per
// distinct seniority rank present, at the cumulative LP owed through that
// rank (spec.md §4.3a). Classes sharing a rank are pari-passu: their LPs
// are summed into a single breakpoint, not one each.
func liquidationPreferenceBreakpoints(ct captable.CapTable, insertionStart int) []Breakpoint {
	byRank := make(map[int][]captable.ShareClass)
	for _, s := range ct.PreferredClasses() {
		byRank[s.SeniorityRank] = append(byRank[s.SeniorityRank], s)
	}
	if len(byRank) == 0 {
		return nil
	}

	ranks := make([]int, 0, len(byRank))
	for r := range byRank {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)

	bps := make([]Breakpoint, 0, len(ranks))
	cumulative := money.Zero
	insertion := insertionStart

	for i, rank := range ranks {
		classesAtRank := byRank[rank]
		rankLP := money.Zero
		names := make([]string, 0, len(classesAtRank))
		for _, s := range classesAtRank {
			rankLP = rankLP.Add(s.LiquidationPreference())
			names = append(names, s.Name)
		}
		cumulative = cumulative.Add(rankLP)

		var deps []string
		if i > 0 {
			deps = []string{"seniority_rank_" + strconv.Itoa(ranks[i-1]) + "_satisfied"}
		}

		explanation := "liquidation preference satisfied for seniority rank " + strconv.Itoa(rank)
		if len(classesAtRank) > 1 {
			explanation += " (pari passu across " + strconv.Itoa(len(classesAtRank)) + " classes)"
		}

		bps = append(bps, newBreakpoint(
			TypeLiquidationPreference, cumulative, names,
			explanation,
			"cumulative sum of shares*pricePerShare*lpMultiple over classes at rank "+strconv.Itoa(rank)+" and all more senior ranks",
			deps,
			insertion,
		))
		insertion++
	}
	return bps
}
