// Package recon implements the MART (multiplicative algebraic reconstruction
// technique) iteration used by the reference reconstruction binary. The
// pipeline itself never imports this package; it only ever talks to the
// reconstruction executable through its file-and-flags contract.
package recon

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Step performs one MART pass over all rays, updating vol in place.
// For each ray i with predicted projection yhat = sum_j A_ij * vol_j, every
// voxel touched by the ray (A_ij > 0) is multiplied by
// (y_i / yhat)^relaxation. Rays with a non-positive prediction are skipped
// to avoid division by zero.
func Step(projections []float64, a *mat.Dense, vol []float64, relaxation float64) error {
	m, n := a.Dims()
	if len(projections) != m {
		return fmt.Errorf("recon: projections length %d does not match ray count %d", len(projections), m)
	}
	if len(vol) != n {
		return fmt.Errorf("recon: volume length %d does not match voxel count %d", len(vol), n)
	}

	for i := 0; i < m; i++ {
		row := a.RawRowView(i)

		yhat := 0.0
		for j, aij := range row {
			yhat += aij * vol[j]
		}
		if yhat <= 0 {
			continue
		}

		factor := math.Pow(projections[i]/yhat, relaxation)
		for j, aij := range row {
			if aij > 0 {
				vol[j] *= factor
			}
		}
	}
	return nil
}

// Reconstruct runs nIters full MART passes starting from a uniform all-ones
// volume and returns the reconstruction.
func Reconstruct(projections []float64, a *mat.Dense, nIters int, relaxation float64) ([]float64, error) {
	_, n := a.Dims()
	vol := make([]float64, n)
	for j := range vol {
		vol[j] = 1.0
	}
	for it := 0; it < nIters; it++ {
		if err := Step(projections, a, vol, relaxation); err != nil {
			return nil, err
		}
	}
	return vol, nil
}
