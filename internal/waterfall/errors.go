package waterfall

import (
	"fmt"

	"github.com/Eran5102/Valuation-sub003/internal/money"
)

// ErrorKind enumerates the closed set of fatal distribution-time failures
// (spec.md §7). Solver non-convergence during Analyze is a distinct,
// non-fatal category (spec.md §4.3c, §7's "Solver warnings"): it is
// recorded as an audit.Trail warning and the affected breakpoint is simply
// omitted from the analyzer's output. SolverDidNotConverge is the fatal
// Distribute-time counterpart of that same underlying failure: Distribute
// independently re-solves option-exercise decisions at its exit value
// (optionExerciseDecisionsAt in options.go) and raises this error when a
// breakpoint that could fall at or below that exit value fails to
// converge, since silently treating it as "not exercised" would produce an
// incorrect distribution rather than a merely incomplete breakpoint list.
type ErrorKind string

const (
	DistributionNonConservation ErrorKind = "DISTRIBUTION_NON_CONSERVATION"
	SolverDidNotConverge        ErrorKind = "SOLVER_DID_NOT_CONVERGE"
)

// DistributionError is returned by Distribute when it cannot produce a
// trustworthy result.
type DistributionError struct {
	Kind    ErrorKind
	Message string
}

func (e *DistributionError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func newNonConservationError(diff, exitValue money.Decimal) *DistributionError {
	return &DistributionError{
		Kind:    DistributionNonConservation,
		Message: fmt.Sprintf("payouts diverge from exit value by %s at exit %s", diff, exitValue),
	}
}

func newSolverDidNotConvergeError(detail string) *DistributionError {
	return &DistributionError{Kind: SolverDidNotConverge, Message: detail}
}
