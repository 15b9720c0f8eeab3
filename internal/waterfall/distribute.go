package waterfall

import (
	"sort"
	"time"

	"github.com/Eran5102/Valuation-sub003/internal/audit"
	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/money"
)

// conservationAbsoluteFloor and conservationRelativeFactor together bound
// the acceptable drift between the sum of payouts and the exit value
// (spec.md §4.5 step 5: max(1e-8, 1e-10*X)).
var (
	conservationAbsoluteFloor = money.MustFromString("0.00000001")
	conservationRelativeFactor = money.MustFromString("0.0000000001")
)

// Payout is one security's share of proceeds at a concrete exit value.
type Payout struct {
	SecurityID   string
	SecurityName string
	Amount       money.Decimal
}

// DistributionResult is the per-security distribution of proceeds at one
// exit value (spec.md §4.5, §6's "Distribution... plus the breakpoint list
// used, plus the audit trail and a conservation check").
type DistributionResult struct {
	ExitValue       money.Decimal
	Payouts         []Payout
	BreakpointsUsed []Breakpoint
	Trail           *audit.Trail
}

// Distribute computes the per-security distribution of exitValue proceeds.
// breakpoints is the set Analyze already computed for ct, carried through
// to BreakpointsUsed for the caller's reference; conversion decisions are
// re-derived directly at exitValue (a single-point rvps comparison, not a
// threshold search, so it cannot itself fail to converge). Option-exercise
// decisions are independently re-solved by optionExerciseDecisionsAt rather
// than read off breakpoints, because a non-converged option breakpoint is
// silently omitted from that list during Analyze (spec.md §7) and trusting
// it here would under-count exercised shares without any error ever
// surfacing. Per spec.md §6/§7, Distribute instead fails fatally with
// SolverDidNotConverge when an indispensable option-exercise breakpoint
// below exitValue could not be solved.
func Distribute(ct captable.CapTable, breakpoints []Breakpoint, exitValue money.Decimal) (*DistributionResult, error) {
	trail := &audit.Trail{}
	converted := convertedClassesAt(ct, exitValue)
	exercisedGrantIDs, err := optionExerciseDecisionsAt(ct, exitValue, trail)
	if err != nil {
		return nil, err
	}

	payouts := make(map[string]money.Decimal)
	names := make(map[string]string)
	for _, s := range ct.ShareClasses {
		payouts[s.ID] = money.Zero
		names[s.ID] = s.Name
	}
	for _, g := range ct.OptionGrants {
		payouts[g.ID] = money.Zero
		names[g.ID] = g.ID
	}

	// Step 1: pay liquidation preferences ascending seniority, pari-passu
	// within a rank, to every preferred class that has not forgone its
	// preference by converting.
	remaining := exitValue
	byRank := make(map[int][]captable.ShareClass)
	for _, s := range ct.PreferredClasses() {
		if converted[s.ID] {
			continue
		}
		byRank[s.SeniorityRank] = append(byRank[s.SeniorityRank], s)
	}
	ranks := make([]int, 0, len(byRank))
	for r := range byRank {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)

	for _, rank := range ranks {
		if remaining.IsZero() {
			break
		}
		classesAtRank := byRank[rank]
		rankTotal := money.Zero
		for _, s := range classesAtRank {
			rankTotal = rankTotal.Add(s.LiquidationPreference())
		}
		if rankTotal.IsZero() {
			continue
		}
		if remaining.GreaterThanOrEqual(rankTotal) {
			for _, s := range classesAtRank {
				payouts[s.ID] = payouts[s.ID].Add(s.LiquidationPreference())
			}
			remaining = remaining.Sub(rankTotal)
		} else {
			for _, s := range classesAtRank {
				share := remaining.Mul(s.LiquidationPreference()).Div(rankTotal)
				payouts[s.ID] = payouts[s.ID].Add(share)
			}
			remaining = money.Zero
		}
	}

	// Step 2/3: build the participating pool and distribute the residual,
	// reiterating while a participation cap is triggered (step 4).
	cappedClasses := make([]captable.ShareClass, 0)
	for _, s := range ct.PreferredClasses() {
		if s.PreferenceType == captable.ParticipatingWithCap && !converted[s.ID] {
			cappedClasses = append(cappedClasses, s)
		}
	}

	finalized := make(map[string]bool)
	pool := remaining
	// Every exercised option's shares enter the participating pool
	// alongside common. Only priced (non-cheap) exercised options add their
	// exercise cash into the pool (spec.md §4.5 step 2: "other options...
	// their aggregate n*s"); that cash is paid back out of those same
	// options' own gross share below, so it nets to zero rather than
	// inflating total payouts past the exit value.
	optionShares := money.Zero
	for _, g := range ct.OptionGrants {
		if g.IsCheap() || exercisedGrantIDs[g.ID] {
			shares := g.VestedCountDecimal()
			optionShares = optionShares.Add(shares)
			if !g.IsCheap() {
				pool = pool.Add(shares.Mul(g.StrikePrice))
			}
		}
	}

	ceiling := len(cappedClasses) + 1
	for iter := 0; iter < ceiling; iter++ {
		participatingShares := optionShares
		for _, cc := range ct.CommonClasses() {
			participatingShares = participatingShares.Add(cc.AsConvertedShares())
		}
		for _, s := range ct.PreferredClasses() {
			if finalized[s.ID] {
				continue
			}
			if converted[s.ID] || s.PreferenceType == captable.Participating || s.PreferenceType == captable.ParticipatingWithCap {
				participatingShares = participatingShares.Add(s.AsConvertedShares())
			}
		}

		if participatingShares.IsZero() {
			break
		}
		perShare := pool.Div(participatingShares)

		triggeredCap := false
		for _, cc := range ct.CommonClasses() {
			payouts[cc.ID] = payouts[cc.ID].Add(perShare.Mul(cc.AsConvertedShares()))
		}
		if optionShares.IsPositive() {
			for _, g := range ct.OptionGrants {
				if g.IsCheap() || exercisedGrantIDs[g.ID] {
					payouts[g.ID] = payouts[g.ID].Add(perShare.Mul(g.VestedCountDecimal()))
				}
			}
		}
		pool = money.Zero
		for _, s := range ct.PreferredClasses() {
			if finalized[s.ID] {
				continue
			}
			if !(converted[s.ID] || s.PreferenceType == captable.Participating || s.PreferenceType == captable.ParticipatingWithCap) {
				continue
			}
			share := perShare.Mul(s.AsConvertedShares())
			candidateTotal := payouts[s.ID].Add(share)

			if s.PreferenceType == captable.ParticipatingWithCap && !converted[s.ID] {
				capValue := s.LiquidationPreference().Mul(s.ParticipationCap)
				if candidateTotal.GreaterThan(capValue) {
					allowed := capValue.Sub(payouts[s.ID])
					if allowed.IsNegative() {
						allowed = money.Zero
					}
					payouts[s.ID] = payouts[s.ID].Add(allowed)
					excess := share.Sub(allowed)
					pool = pool.Add(excess)
					finalized[s.ID] = true
					triggeredCap = true
					continue
				}
			}
			payouts[s.ID] = candidateTotal
		}

		if !triggeredCap || pool.IsZero() {
			break
		}
	}

	// Net each priced exercised option's aggregate exercise cost back out of
	// its gross pro-rata payout, so the cash added to the pool above does
	// not inflate its holder's proceeds (spec.md §4.5 step 2/5).
	for _, g := range ct.OptionGrants {
		if !g.IsCheap() && exercisedGrantIDs[g.ID] {
			payouts[g.ID] = payouts[g.ID].Sub(g.VestedCountDecimal().Mul(g.StrikePrice))
		}
	}

	result := &DistributionResult{ExitValue: exitValue, BreakpointsUsed: breakpoints, Trail: trail}
	sum := money.Zero
	for _, s := range ct.ShareClasses {
		result.Payouts = append(result.Payouts, Payout{SecurityID: s.ID, SecurityName: s.Name, Amount: payouts[s.ID]})
		sum = sum.Add(payouts[s.ID])
	}
	for _, g := range ct.OptionGrants {
		result.Payouts = append(result.Payouts, Payout{SecurityID: g.ID, SecurityName: g.ID, Amount: payouts[g.ID]})
		sum = sum.Add(payouts[g.ID])
	}

	tolerance := money.Max(conservationAbsoluteFloor, exitValue.Mul(conservationRelativeFactor))
	if !money.WithinTolerance(sum, exitValue, tolerance) {
		return nil, newNonConservationError(sum.Sub(exitValue), exitValue)
	}

	return result, nil
}

// convertedClassesAt rebuilds, for each preferred class, whether it has
// elected to convert (non-participating) or abandon its cap
// (participating-with-cap) by the given exit value, using the same
// senior-to-junior rvps comparison as voluntaryConversionBreakpoints, so
// Distribute stays consistent with the breakpoints Analyze produced.
func convertedClassesAt(ct captable.CapTable, exitValue money.Decimal) map[string]bool {
	preferred := append([]captable.ShareClass(nil), ct.PreferredClasses()...)
	sort.SliceStable(preferred, func(i, j int) bool {
		return preferred[i].SeniorityRank < preferred[j].SeniorityRank
	})

	decisions := make(decisionMap)
	cache := newRVPSCache()
	scratch := audit.NewMetrics(time.Time{})

	for _, class := range preferred {
		switch class.PreferenceType {
		case captable.NonParticipating:
			convertVal := rvps(ct, class, exitValue, true, decisions, cache, scratch)
			retainVal := rvps(ct, class, exitValue, false, decisions, cache, scratch)
			if convertVal.GreaterThan(retainVal) {
				decisions[class.ID] = true
			}
		case captable.ParticipatingWithCap:
			capValue := class.LiquidationPreference().Mul(class.ParticipationCap)
			proRataShare := class.AsConvertedShares().Div(ct.TotalAsConvertedShares())
			if proRataShare.Mul(exitValue).GreaterThan(capValue) {
				decisions[class.ID] = true
			}
		}
	}
	return decisions
}

