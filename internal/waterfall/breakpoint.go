// Package waterfall implements the breakpoint analyzer, circularity
// solver, and distribution engine of spec.md §4.3-§4.5: given a
// captable.CapTable, it computes the ordered set of breakpoints at which
// the waterfall's marginal economic behavior changes, and the per-security
// distribution of proceeds at any concrete exit value.
package waterfall

import (
	"sort"

	"github.com/Eran5102/Valuation-sub003/internal/money"
)

// Type enumerates the five mathematically distinct breakpoint kinds
// (spec.md §4.3).
type Type string

const (
	TypeLiquidationPreference Type = "LIQUIDATION_PREFERENCE"
	TypeProRataDistribution   Type = "PRO_RATA_DISTRIBUTION"
	TypeOptionExercise        Type = "OPTION_EXERCISE"
	TypeVoluntaryConversion   Type = "VOLUNTARY_CONVERSION"
	TypeParticipationCap      Type = "PARTICIPATION_CAP"
)

// priorityOrder gives each Type its default tie-break priority when two
// breakpoints share the same ExitValue; phases run in this order
// (spec.md §4.3's "in this calculation order, then globally re-sorts").
var priorityOrder = map[Type]int{
	TypeLiquidationPreference: 0,
	TypeProRataDistribution:   1,
	TypeOptionExercise:        2,
	TypeVoluntaryConversion:   3,
	TypeParticipationCap:      4,
}

// Breakpoint is one exit value at which the waterfall's behavior changes
// (spec.md §3).
type Breakpoint struct {
	Type               Type
	ExitValue          money.Decimal
	AffectedSecurities []string
	PriorityOrder      int
	Explanation        string
	Derivation         string
	Dependencies       []string

	insertionOrder int
}

func newBreakpoint(typ Type, exitValue money.Decimal, affected []string, explanation, derivation string, deps []string, insertionOrder int) Breakpoint {
	return Breakpoint{
		Type:               typ,
		ExitValue:          exitValue,
		AffectedSecurities: affected,
		PriorityOrder:      priorityOrder[typ],
		Explanation:        explanation,
		Derivation:         derivation,
		Dependencies:       deps,
		insertionOrder:     insertionOrder,
	}
}

// sortBreakpoints sorts ascending by ExitValue, tie-breaking by
// PriorityOrder, then by original insertion order (spec.md §3, §4.3
// "State/ordering").
func sortBreakpoints(bps []Breakpoint) {
	sort.SliceStable(bps, func(i, j int) bool {
		a, b := bps[i], bps[j]
		if !a.ExitValue.Equal(b.ExitValue) {
			return a.ExitValue.LessThan(b.ExitValue)
		}
		if a.PriorityOrder != b.PriorityOrder {
			return a.PriorityOrder < b.PriorityOrder
		}
		return a.insertionOrder < b.insertionOrder
	})
}

// CountByType counts breakpoints of the given type.
func CountByType(bps []Breakpoint, typ Type) int {
	n := 0
	for _, bp := range bps {
		if bp.Type == typ {
			n++
		}
	}
	return n
}
