package waterfall

import (
	"fmt"
	"sort"

	"github.com/Eran5102/Valuation-sub003/internal/audit"
	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/money"
)

type strikeGroup struct {
	strike money.Decimal
	n      money.Decimal
	grants []string
}

// groupOptionsByStrike buckets every non-cheap option grant by its strike
// price, ascending, so both the analyzer's breakpoint pass and Distribute's
// independent re-solve walk the same strike order.
func groupOptionsByStrike(ct captable.CapTable) ([]string, map[string]*strikeGroup) {
	byStrike := make(map[string]*strikeGroup)
	var order []string
	for _, g := range ct.OptionGrants {
		if g.IsCheap() {
			continue
		}
		key := g.StrikePrice.Canonical()
		group, ok := byStrike[key]
		if !ok {
			group = &strikeGroup{strike: g.StrikePrice}
			byStrike[key] = group
			order = append(order, key)
		}
		group.n = group.n.Add(g.VestedCountDecimal())
		group.grants = append(group.grants, g.ID)
	}
	sort.Slice(order, func(i, j int) bool {
		return byStrike[order[i]].strike.LessThan(byStrike[order[j]].strike)
	})
	return order, byStrike
}

// optionExerciseBreakpoints computes phase (c): one breakpoint per distinct
// strike above the cheap-option threshold, in ascending order, each solved
// against the dilution base accumulated by every strike exercised so far
// (spec.md §4.3c, §4.4).
func optionExerciseBreakpoints(ct captable.CapTable, trail *audit.Trail, metrics *audit.Metrics, insertionStart int) []Breakpoint {
	order, byStrike := groupOptionsByStrike(ct)

	totalLP := ct.TotalLiquidationPreference()
	baseShares := ct.BaseShares()
	priorExercised := money.Zero
	priorProceeds := money.Zero

	bps := make([]Breakpoint, 0, len(order))
	insertion := insertionStart

	for _, key := range order {
		group := byStrike[key]
		x, iterations, converged := solveOptionExercise(totalLP, baseShares, priorExercised, priorProceeds, group.strike, group.n)
		metrics.RecordIterations("option_exercise:"+key, iterations)

		priorExercised = priorExercised.Add(group.n)
		priorProceeds = priorProceeds.Add(group.n.Mul(group.strike))

		if !converged {
			trail.Warning("option_exercise", "OptionExerciseDidNotConverge(strike=%s)", group.strike.Canonical())
			continue
		}

		bps = append(bps, newBreakpoint(
			TypeOptionExercise, x, group.grants,
			"options struck at "+group.strike.Canonical()+" become in-the-money and exercise",
			"damped successive substitution on perShare(X) = (X+priorProceeds+n*strike-totalLP)/(baseShares+priorExercised+n)",
			nil,
			insertion,
		))
		insertion++
	}
	return bps
}

// optionExerciseDecisionsAt re-solves, independently of any previously
// computed breakpoint list, which non-cheap option strike groups have
// exercised by exitValue. It cannot reuse optionExerciseBreakpoints' output
// directly: a strike group whose solve failed to converge during Analyze is
// simply omitted there (spec.md §7's "Solver warnings" policy — recorded,
// tolerated, analysis continues), which would silently under-count
// exercised shares if Distribute trusted that list at face value. spec.md
// §6/§7 instead require Distribute to fail with SolverDidNotConverge when an
// indispensable breakpoint below exitValue failed to converge, so this walk
// redoes the sequential solve and classifies each non-convergence by
// whether its own (unreliable, last-attempted) threshold estimate still
// lands at or below exitValue.
func optionExerciseDecisionsAt(ct captable.CapTable, exitValue money.Decimal, trail *audit.Trail) (map[string]bool, error) {
	order, byStrike := groupOptionsByStrike(ct)

	totalLP := ct.TotalLiquidationPreference()
	baseShares := ct.BaseShares()
	priorExercised := money.Zero
	priorProceeds := money.Zero

	exercised := make(map[string]bool)
	for _, key := range order {
		group := byStrike[key]
		x, _, converged := solveOptionExercise(totalLP, baseShares, priorExercised, priorProceeds, group.strike, group.n)

		// The dilution base accumulates regardless of convergence, so later
		// strike groups still solve against a consistent prior state.
		priorExercised = priorExercised.Add(group.n)
		priorProceeds = priorProceeds.Add(group.n.Mul(group.strike))

		if !converged {
			if x.LessThanOrEqual(exitValue) {
				return nil, newSolverDidNotConvergeError(fmt.Sprintf(
					"option exercise breakpoint for strike %s did not converge; its estimated threshold %s is at or below exit value %s",
					group.strike.Canonical(), x.Canonical(), exitValue.Canonical()))
			}
			trail.Warning("option_exercise", "OptionExerciseDidNotConverge(strike=%s); estimated threshold %s exceeds exit value %s, treated as not exercised", group.strike.Canonical(), x.Canonical(), exitValue.Canonical())
			continue
		}

		if x.LessThanOrEqual(exitValue) {
			for _, id := range group.grants {
				exercised[id] = true
			}
		}
	}
	return exercised, nil
}
