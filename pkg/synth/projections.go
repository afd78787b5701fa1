package synth

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// doseFloor bounds the dose factor away from zero so the effective noise
// level stays finite for degenerate inputs.
const doseFloor = 1e-6

// Projections simulates measurements y = A*p + eps, where eps is zero-mean
// Gaussian noise with standard deviation noiseStd / sqrt(max(doseFactor,
// 1e-6)). Lowering the dose factor therefore monotonically increases the
// injected noise energy. A zero effective sigma adds no noise at all, so
// noiseless projections are exact.
func Projections(a *mat.Dense, phantom []float64, doseFactor, noiseStd float64, seed uint64) ([]float64, error) {
	nRays, nVoxels := a.Dims()
	if len(phantom) != nVoxels {
		return nil, fmt.Errorf("synth: phantom length %d does not match operator voxel count %d", len(phantom), nVoxels)
	}

	y := make([]float64, nRays)
	yVec := mat.NewVecDense(nRays, y)
	yVec.MulVec(a, mat.NewVecDense(nVoxels, phantom))

	sigma := noiseStd / math.Sqrt(math.Max(doseFactor, doseFloor))
	if sigma > 0 {
		noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)}
		for i := range y {
			y[i] += noise.Rand()
		}
	}
	return y, nil
}
