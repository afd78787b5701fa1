package recon

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReconstructDiagonalSystem(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
	projections := []float64{1.0, 0.5}

	vol, err := Reconstruct(projections, a, 1, 1.0)
	require.NoError(t, err)
	// With an identity operator and full relaxation, a single pass matches
	// the measurements exactly.
	require.InDelta(t, 1.0, vol[0], 1e-12)
	require.InDelta(t, 0.5, vol[1], 1e-12)
}

func TestReconstructConvergesOnMixedSystem(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{
		0.5, 0.5,
		0.8, 0.2,
	})
	truth := []float64{1.0, 0.25}
	projections := make([]float64, 2)
	mat.NewVecDense(2, projections).MulVec(a, mat.NewVecDense(2, truth))

	vol, err := Reconstruct(projections, a, 200, 0.5)
	require.NoError(t, err)

	// Check the solution in measurement space: MART fits the projections.
	fitted := make([]float64, 2)
	mat.NewVecDense(2, fitted).MulVec(a, mat.NewVecDense(2, vol))
	require.InDelta(t, projections[0], fitted[0], 1e-6)
	require.InDelta(t, projections[1], fitted[1], 1e-6)
}

func TestStepSkipsNonPositivePredictions(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{1, 1})
	vol := []float64{0, 0}

	require.NoError(t, Step([]float64{1}, a, vol, 1.0))
	require.Equal(t, []float64{0, 0}, vol, "rays with zero prediction must be skipped")
}

func TestStepDimensionChecks(t *testing.T) {
	a := mat.NewDense(2, 2, nil)

	require.Error(t, Step([]float64{1}, a, []float64{1, 1}, 1.0))
	require.Error(t, Step([]float64{1, 1}, a, []float64{1}, 1.0))
}
