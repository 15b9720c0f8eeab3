package captable

import "fmt"

// ErrorKind enumerates the closed set of input-validation failures
// (spec.md §4.2, §7). Callers match on Kind via errors.As, never on
// message text (spec.md §9's note on ad-hoc throw new Error(string)).
type ErrorKind string

const (
	NegativeLiquidationPreference ErrorKind = "NEGATIVE_LIQUIDATION_PREFERENCE"
	NegativeStrike                ErrorKind = "NEGATIVE_STRIKE"
	NonPositiveOptionCount        ErrorKind = "NON_POSITIVE_OPTION_COUNT"
	NegativeSeniority             ErrorKind = "NEGATIVE_SENIORITY"
	MissingParticipationCap       ErrorKind = "MISSING_PARTICIPATION_CAP"
)

// ValidationError is returned by Validate. It identifies the offending
// entity by class/grant ID so callers can report precisely which input
// was malformed.
type ValidationError struct {
	Kind    ErrorKind
	EntityID string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s (entity=%s)", e.Kind, e.Message, e.EntityID)
}
