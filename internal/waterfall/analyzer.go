package waterfall

import (
	"time"

	"github.com/Eran5102/Valuation-sub003/internal/audit"
	"github.com/Eran5102/Valuation-sub003/internal/captable"
)

// AnalysisResult is the full output of Analyze: the globally sorted
// breakpoints, the invariant-check report, the audit trail, and the
// performance metrics gathered along the way (spec.md §4.6).
type AnalysisResult struct {
	Breakpoints       []Breakpoint
	Validation        *audit.Report
	Trail             *audit.Trail
	Metrics           *audit.Metrics
	VerificationHash  string // stable 16-hex-digit digest over Canonicalize(ct, result)
}

// Analyze runs all five breakpoint phases against a normalized, validated
// CapTable, in the fixed calculation order (a)-(e), then globally re-sorts
// by exit value and checks the expected-count invariants (spec.md §4.3,
// §8's count laws). It owns all of its working state: callers may run
// concurrent analyses over different cap tables safely (spec.md §5, §9).
func Analyze(ct captable.CapTable) (*AnalysisResult, error) {
	if err := captable.Validate(ct); err != nil {
		return nil, err
	}

	trail := &audit.Trail{}
	metrics := audit.NewMetrics(time.Now())

	var all []Breakpoint
	insertion := 0

	trail.Record("liquidation_preference", "computing liquidation-preference breakpoints")
	lpBPs := liquidationPreferenceBreakpoints(ct, insertion)
	insertion += len(lpBPs)
	all = append(all, lpBPs...)

	trail.Record("pro_rata_distribution", "computing pro-rata distribution breakpoint")
	proRataBP := proRataBreakpoint(ct, insertion)
	insertion++
	all = append(all, proRataBP)

	trail.Record("option_exercise", "computing sequential option-exercise breakpoints")
	optionBPs := optionExerciseBreakpoints(ct, trail, metrics, insertion)
	insertion += len(optionBPs)
	all = append(all, optionBPs...)

	trail.Record("voluntary_conversion", "computing voluntary-conversion breakpoints")
	conversionBPs := voluntaryConversionBreakpoints(ct, trail, metrics, insertion)
	insertion += len(conversionBPs)
	all = append(all, conversionBPs...)

	trail.Record("participation_cap", "computing participation-cap breakpoints")
	capBPs := participationCapBreakpoints(ct, insertion)
	insertion += len(capBPs)
	all = append(all, capBPs...)

	sortBreakpoints(all)

	report := &audit.Report{}
	distinctRanks := make(map[int]bool)
	for _, s := range ct.PreferredClasses() {
		distinctRanks[s.SeniorityRank] = true
	}
	report.Add("liquidation_preference_count", len(distinctRanks), CountByType(all, TypeLiquidationPreference),
		"one breakpoint per distinct seniority rank present")
	report.Add("pro_rata_distribution_count", 1, CountByType(all, TypeProRataDistribution),
		"exactly one pro-rata distribution breakpoint")

	distinctStrikes := make(map[string]bool)
	for _, g := range ct.OptionGrants {
		if !g.IsCheap() {
			distinctStrikes[g.StrikePrice.Canonical()] = true
		}
	}
	report.Add("option_exercise_count", len(distinctStrikes), CountByType(all, TypeOptionExercise),
		"at most one breakpoint per distinct non-cheap strike; fewer if a strike failed to converge")

	cappedCount := 0
	convertibleCount := 0
	for _, s := range ct.PreferredClasses() {
		switch s.PreferenceType {
		case captable.ParticipatingWithCap:
			cappedCount++
			convertibleCount++
		case captable.NonParticipating:
			convertibleCount++
		}
	}
	report.Add("participation_cap_count", cappedCount, CountByType(all, TypeParticipationCap),
		"one breakpoint per participating-with-cap class")
	report.AddBound("voluntary_conversion_bound", convertibleCount, CountByType(all, TypeVoluntaryConversion),
		"at most one voluntary-conversion breakpoint per non-participating or participating-with-cap class")

	metrics.Finish(time.Now())

	result := &AnalysisResult{
		Breakpoints: all,
		Validation:  report,
		Trail:       trail,
		Metrics:     metrics,
	}
	result.VerificationHash = VerificationHash(ct, result)
	return result, nil
}
