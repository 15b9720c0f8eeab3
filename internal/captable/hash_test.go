package captable

import (
	"testing"

	"github.com/Eran5102/Valuation-sub003/internal/money"
)

func TestContentHash_StableForIdenticalTables(t *testing.T) {
	common := ShareClass{ID: "common", Kind: Common, SharesOutstanding: 1_000_000, ConversionRatio: money.NewFromInt(1)}
	a := CapTable{ShareClasses: []ShareClass{common, seriesA()}}
	b := CapTable{ShareClasses: []ShareClass{common, seriesA()}}

	if a.ContentHash() != b.ContentHash() {
		t.Fatalf("expected identical cap tables to hash identically")
	}
}

func TestContentHash_DiffersOnFieldChange(t *testing.T) {
	common := ShareClass{ID: "common", Kind: Common, SharesOutstanding: 1_000_000, ConversionRatio: money.NewFromInt(1)}
	a := CapTable{ShareClasses: []ShareClass{common, seriesA()}}

	changed := seriesA()
	changed.SharesOutstanding++
	b := CapTable{ShareClasses: []ShareClass{common, changed}}

	if a.ContentHash() == b.ContentHash() {
		t.Fatalf("expected changed cap tables to hash differently")
	}
}
