package waterfall

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/money"
)

func TestProRataBreakpoint_AtZeroWhenNoPreferred(t *testing.T) {
	ct := captable.CapTable{ShareClasses: []captable.ShareClass{
		{ID: "common", Kind: captable.Common, Name: "Common", SharesOutstanding: 1_000_000, ConversionRatio: money.NewFromInt(1)},
	}}
	bp := proRataBreakpoint(ct, 0)
	assert.True(t, bp.ExitValue.IsZero())
	assert.Empty(t, bp.Dependencies)
}

func TestProRataBreakpoint_EqualsTotalLP(t *testing.T) {
	ct := twoLayerSeniority()
	bp := proRataBreakpoint(ct, 0)
	assert.True(t, bp.ExitValue.Equal(ct.TotalLiquidationPreference()))
	assert.Equal(t, []string{"all_liquidation_preferences_satisfied"}, bp.Dependencies)
}
