package captable

import "github.com/Eran5102/Valuation-sub003/internal/money"

// Validate rejects malformed cap tables per spec.md §4.2. It fails fast on
// the first violation found, scanning share classes then option grants in
// order; no other structural checks are fatal (gaps in seniority ranks,
// duplicate names, and unusual-but-legal configurations are accepted).
func Validate(c CapTable) error {
	for _, s := range c.ShareClasses {
		if s.Kind != Preferred {
			continue
		}
		if s.PricePerShare.IsNegative() || s.LPMultiple.IsNegative() {
			return &ValidationError{
				Kind:     NegativeLiquidationPreference,
				EntityID: s.ID,
				Message:  "preferred class has negative pricePerShare or lpMultiple",
			}
		}
		if s.SeniorityRank < 0 {
			return &ValidationError{
				Kind:     NegativeSeniority,
				EntityID: s.ID,
				Message:  "preferred class has negative seniorityRank",
			}
		}
		if s.PreferenceType == ParticipatingWithCap {
			if !s.HasParticipationCap || s.ParticipationCap.LessThan(money.NewFromInt(1)) {
				return &ValidationError{
					Kind:     MissingParticipationCap,
					EntityID: s.ID,
					Message:  "participationCap is absent or below 1x for a ParticipatingWithCap class",
				}
			}
		}
	}

	for _, g := range c.OptionGrants {
		if g.StrikePrice.IsNegative() {
			return &ValidationError{
				Kind:     NegativeStrike,
				EntityID: g.ID,
				Message:  "option grant has negative strikePrice",
			}
		}
		if g.NumOptions <= 0 {
			return &ValidationError{
				Kind:     NonPositiveOptionCount,
				EntityID: g.ID,
				Message:  "option grant has non-positive numOptions",
			}
		}
	}

	return nil
}
