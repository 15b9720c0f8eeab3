package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/Eran5102/Valuation-sub003/internal/config"
)

func TestLoadCapTable_MissingPathErrors(t *testing.T) {
	_, err := loadCapTable("")
	assert.Error(t, err)
}

func TestLoadCapTable_ParsesJSONAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")
	body := `{
		"ShareClasses": [
			{"ID": "common", "Kind": "COMMON", "SharesOutstanding": 1000000, "ConversionRatio": "1"}
		],
		"OptionGrants": [
			{"ID": "grant1", "NumOptions": 100000, "StrikePrice": "0.01"}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	ct, err := loadCapTable(path)
	require.NoError(t, err)
	require.Len(t, ct.OptionGrants, 1)
	assert.Equal(t, int64(100000), ct.OptionGrants[0].VestedCount, "Normalized should default VestedCount to NumOptions")
}

func TestBuildCache_MemoryIsDefault(t *testing.T) {
	c, err := buildCache(appconfig.CacheConfig{})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestBuildCache_UnknownBackendErrors(t *testing.T) {
	_, err := buildCache(appconfig.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}
