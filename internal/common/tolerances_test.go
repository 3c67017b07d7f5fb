package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tolerances.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTolerancesDefaults(t *testing.T) {
	tol, err := LoadTolerances("")
	require.NoError(t, err)
	assert.Equal(t, "2", tol.ArithmeticTolerancePct.String())
	assert.Equal(t, "1", tol.DocumentTotalTolerancePct.String())
	assert.Contains(t, tol.PriceGuardianBands, "eurovinos")
}

func TestLoadTolerancesOverrides(t *testing.T) {
	path := writeFile(t, `{
		"arithmetic_tolerance_pct": 0.5,
		"price_guardian_bands": {
			"eurovinos": {"upper_pct": "4", "lower_pct": "6"}
		}
	}`)
	tol, err := LoadTolerances(path)
	require.NoError(t, err)
	assert.Equal(t, "0.5", tol.ArithmeticTolerancePct.String())
	// unset fields keep their defaults
	assert.Equal(t, "1", tol.DocumentTotalTolerancePct.String())
	band := tol.PriceGuardianBands["eurovinos"]
	assert.Equal(t, "4", band.UpperPct.String())
	assert.Equal(t, "6", band.LowerPct.String())
}

func TestLoadTolerancesRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, `{"arithmetic_tolerance": 2}`)
	_, err := LoadTolerances(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestLoadTolerancesRejectsMalformedBand(t *testing.T) {
	path := writeFile(t, `{"price_guardian_bands": {"x": {"upper_pct": "3"}}}`)
	_, err := LoadTolerances(path)
	require.Error(t, err)
}
