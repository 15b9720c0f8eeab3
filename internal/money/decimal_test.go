package money

import (
	"encoding/json"
	"testing"
)

func TestArithmeticExact(t *testing.T) {
	a := MustFromString("1000000.123456789012345678")
	b := MustFromString("2000000.876543210987654321")

	sum := a.Add(b)
	if !sum.Equal(MustFromString("3000000.999999999999999999")) {
		t.Fatalf("Add not exact: got %s", sum)
	}

	diff := b.Sub(a)
	if !diff.Equal(MustFromString("1000000.753086421975308643")) {
		t.Fatalf("Sub not exact: got %s", diff)
	}
}

func TestMulExact(t *testing.T) {
	shares := NewFromInt(1_000_000)
	price := MustFromString("1.23456789")
	got := shares.Mul(price)
	want := MustFromString("1234567.89")
	if !got.Equal(want) {
		t.Fatalf("Mul not exact: got %s want %s", got, want)
	}
}

func TestDivRounds(t *testing.T) {
	got := NewFromInt(1).Div(NewFromInt(3))
	if got.d.Exponent() < -Precision {
		t.Fatalf("Div exceeded precision floor: %s", got)
	}
	if !got.GreaterThan(MustFromString("0.333333333333333333")) {
		t.Fatalf("Div result too coarse: %s", got)
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		in     string
		places int32
		want   string
	}{
		{"2.005", 2, "2.01"},
		{"2.004", 2, "2.00"},
		{"0.125", 2, "0.13"},
		{"100", 2, "100.00"},
	}
	for _, c := range cases {
		got := MustFromString(c.in).RoundHalfUp(c.places)
		if got.Canonical() != MustFromString(c.want).Canonical() {
			t.Errorf("RoundHalfUp(%s, %d) = %s, want %s", c.in, c.places, got, c.want)
		}
	}
}

func TestEqualityIsExactNotTolerant(t *testing.T) {
	a := MustFromString("1.00")
	b := MustFromString("1.0000")
	if !a.Equal(b) {
		t.Fatalf("expected value-equal decimals with different scale to be Equal")
	}

	c := MustFromString("1.00000001")
	if a.Equal(c) {
		t.Fatalf("expected distinct values to be unequal without an explicit tolerance")
	}
	if !WithinTolerance(a, c, MustFromString("0.001")) {
		t.Fatalf("expected WithinTolerance to accept a small difference")
	}
}

func TestCanonicalFixedFracDigits(t *testing.T) {
	got := MustFromString("42").Canonical()
	want := "42.0000000000"
	if got != want {
		t.Fatalf("Canonical() = %s, want %s", got, want)
	}
}

func TestMaxMin(t *testing.T) {
	a := NewFromInt(5)
	b := NewFromInt(9)
	if !Max(a, b).Equal(b) {
		t.Fatalf("Max wrong")
	}
	if !Min(a, b).Equal(a) {
		t.Fatalf("Min wrong")
	}
}

func TestJSONRoundTripPreservesPrecision(t *testing.T) {
	want := MustFromString("1234567.123456789012345678")
	b, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Decimal
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("round-trip lost precision: got %s want %s", got, want)
	}
}

func TestUnmarshalJSONAcceptsBareNumber(t *testing.T) {
	var got Decimal
	if err := json.Unmarshal([]byte("42.5"), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(MustFromString("42.5")) {
		t.Fatalf("got %s, want 42.5", got)
	}
}
