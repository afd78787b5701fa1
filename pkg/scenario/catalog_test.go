package scenario

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupKnownScenario(t *testing.T) {
	c := NewCatalog()

	sc, err := c.Lookup("baseline_0001")
	require.NoError(t, err)
	require.Equal(t, 16, sc.NVoxels)
	require.Equal(t, 16, sc.NRays)
	require.Equal(t, 1.0, sc.DoseFactor)
	require.Equal(t, 0.01, sc.NoiseStd)
}

func TestLookupUnknownScenario(t *testing.T) {
	c := NewCatalog()

	_, err := c.Lookup("no_such_run")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
	require.Contains(t, err.Error(), "no_such_run")
}

func TestIDsSortedAndComplete(t *testing.T) {
	c := NewCatalog()

	ids := c.IDs()
	require.Len(t, ids, 6)
	require.True(t, sort.StringsAreSorted(ids))
	require.Contains(t, ids, "sparse_90deg_0001")
	require.Contains(t, ids, "lowdose_0p1x_0001")
}

func TestSparseVariantsHaveFewerRaysThanVoxels(t *testing.T) {
	c := NewCatalog()
	for _, id := range []string{"sparse_90deg_0001", "sparse_60deg_0001"} {
		sc, err := c.Lookup(id)
		require.NoError(t, err)
		require.Less(t, sc.NRays, sc.NVoxels, "%s must be underdetermined", id)
	}
}

func TestLowerDoseMeansMoreBaseNoise(t *testing.T) {
	c := NewCatalog()
	half, err := c.Lookup("lowdose_0p5x_0001")
	require.NoError(t, err)
	tenth, err := c.Lookup("lowdose_0p1x_0001")
	require.NoError(t, err)

	require.Greater(t, half.DoseFactor, tenth.DoseFactor)
	require.Less(t, half.NoiseStd, tenth.NoiseStd)
}
