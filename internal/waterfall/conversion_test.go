package waterfall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Eran5102/Valuation-sub003/internal/audit"
	"github.com/Eran5102/Valuation-sub003/internal/money"
)

func TestDecisionMapStableKey_OrderIndependent(t *testing.T) {
	a := decisionMap{"b": true, "a": true, "c": false}
	b := decisionMap{"a": true, "b": true, "c": false}
	assert.Equal(t, a.stableKey(), b.stableKey())
	assert.Equal(t, "a,b", a.stableKey())
}

func TestDecisionMapStableKey_Empty(t *testing.T) {
	assert.Equal(t, "", decisionMap{}.stableKey())
}

func TestRVPSCache_HitsOnRepeatedKey(t *testing.T) {
	ct := simpleCommonAndSeriesA()
	class := ct.PreferredClasses()[0]
	cache := newRVPSCache()
	metrics := audit.NewMetrics(time.Time{})

	rvps(ct, class, money.NewFromInt(2_000_000), false, decisionMap{}, cache, metrics)
	assert.Equal(t, 0, metrics.CacheHits)
	rvps(ct, class, money.NewFromInt(2_000_000), false, decisionMap{}, cache, metrics)
	assert.Equal(t, 1, metrics.CacheHits)
}

func TestRVPS_RetainCapsAtLP(t *testing.T) {
	ct := simpleCommonAndSeriesA()
	class := ct.PreferredClasses()[0]
	cache := newRVPSCache()
	metrics := audit.NewMetrics(time.Time{})

	v := rvps(ct, class, money.NewFromInt(10_000_000), false, decisionMap{}, cache, metrics)
	assert.True(t, v.Equal(money.NewFromInt(1)), "retain rvps should cap at lp/shares, got %s", v)
}

func TestRVPS_SeniorRetainedLPReducesJuniorConvertValue(t *testing.T) {
	ct := twoLayerSeniority()
	juniorB := ct.PreferredClasses()[1]

	// At $3M: retained senior LP leaves (3M-1M)*2M/3M for B (0.667/share);
	// a converted senior frees its $1M LP but joins the pool, 3M*2M/4M
	// (0.75/share). Above $4M the dilution outweighs the freed LP.
	withSeniorRetained := rvps(ct, juniorB, money.NewFromInt(3_000_000), true, decisionMap{}, newRVPSCache(), audit.NewMetrics(time.Time{}))
	withSeniorConverted := rvps(ct, juniorB, money.NewFromInt(3_000_000), true, decisionMap{"seriesA": true}, newRVPSCache(), audit.NewMetrics(time.Time{}))

	assert.True(t, withSeniorConverted.GreaterThan(withSeniorRetained),
		"junior's convert value should be higher once the senior class's LP is no longer retained")
}
