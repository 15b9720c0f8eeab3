package captable

import (
	"errors"
	"testing"

	"github.com/Eran5102/Valuation-sub003/internal/money"
)

func seriesA() ShareClass {
	return ShareClass{
		ID:                "series-a",
		Kind:              Preferred,
		Name:              "Series A",
		SharesOutstanding: 1_000_000,
		PricePerShare:     money.MustFromString("1.00"),
		ConversionRatio:   money.NewFromInt(1),
		PreferenceType:    NonParticipating,
		LPMultiple:        money.NewFromInt(1),
		SeniorityRank:     0,
	}
}

func TestValidateAcceptsLegalCapTable(t *testing.T) {
	c := CapTable{ShareClasses: []ShareClass{seriesA()}}
	if err := Validate(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateNegativeLiquidationPreference(t *testing.T) {
	s := seriesA()
	s.PricePerShare = money.MustFromString("-1.00")
	err := Validate(CapTable{ShareClasses: []ShareClass{s}})
	assertKind(t, err, NegativeLiquidationPreference)
}

func TestValidateNegativeLPMultiple(t *testing.T) {
	s := seriesA()
	s.LPMultiple = money.MustFromString("-1")
	err := Validate(CapTable{ShareClasses: []ShareClass{s}})
	assertKind(t, err, NegativeLiquidationPreference)
}

func TestValidateNegativeSeniority(t *testing.T) {
	s := seriesA()
	s.SeniorityRank = -1
	err := Validate(CapTable{ShareClasses: []ShareClass{s}})
	assertKind(t, err, NegativeSeniority)
}

func TestValidateMissingParticipationCap(t *testing.T) {
	s := seriesA()
	s.PreferenceType = ParticipatingWithCap
	err := Validate(CapTable{ShareClasses: []ShareClass{s}})
	assertKind(t, err, MissingParticipationCap)

	s.HasParticipationCap = true
	s.ParticipationCap = money.MustFromString("0.5")
	err = Validate(CapTable{ShareClasses: []ShareClass{s}})
	assertKind(t, err, MissingParticipationCap)

	s.ParticipationCap = money.NewFromInt(3)
	if err := Validate(CapTable{ShareClasses: []ShareClass{s}}); err != nil {
		t.Fatalf("expected valid 3x cap to pass, got %v", err)
	}
}

func TestValidateNegativeStrike(t *testing.T) {
	g := OptionGrant{ID: "opt-1", NumOptions: 1000, StrikePrice: money.MustFromString("-0.01")}
	err := Validate(CapTable{OptionGrants: []OptionGrant{g}})
	assertKind(t, err, NegativeStrike)
}

func TestValidateNonPositiveOptionCount(t *testing.T) {
	g := OptionGrant{ID: "opt-1", NumOptions: 0, StrikePrice: money.NewFromInt(1)}
	err := Validate(CapTable{OptionGrants: []OptionGrant{g}})
	assertKind(t, err, NonPositiveOptionCount)
}

func TestValidateAcceptsGapsAndDuplicates(t *testing.T) {
	a := seriesA()
	a.SeniorityRank = 5
	b := seriesA()
	b.ID = "series-a-dup"
	b.Name = "Series A" // duplicate name, legal
	b.SeniorityRank = 9
	if err := Validate(CapTable{ShareClasses: []ShareClass{a, b}}); err != nil {
		t.Fatalf("seniority gaps and duplicate names must be accepted: %v", err)
	}
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %s, got nil", want)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.Kind != want {
		t.Fatalf("expected kind %s, got %s", want, ve.Kind)
	}
}
