package waterfall

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/money"
)

func TestLiquidationPreferenceBreakpoints_NoPreferred(t *testing.T) {
	ct := captable.CapTable{ShareClasses: []captable.ShareClass{
		{ID: "common", Kind: captable.Common, Name: "Common", SharesOutstanding: 1_000_000, ConversionRatio: money.NewFromInt(1)},
	}}
	assert.Empty(t, liquidationPreferenceBreakpoints(ct, 0))
}

func TestLiquidationPreferenceBreakpoints_DependsOnPriorRank(t *testing.T) {
	ct := twoLayerSeniority()
	bps := liquidationPreferenceBreakpoints(ct, 0)
	require := assert.New(t)
	require.Len(bps, 2)
	require.Empty(bps[0].Dependencies)
	require.Equal([]string{"seniority_rank_0_satisfied"}, bps[1].Dependencies)
}
