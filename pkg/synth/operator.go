package synth

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SystemMatrix builds an nRays x nVoxels sensing operator. Each row starts as
// independent uniform [0, 1) weights, is smoothed along the voxel axis with a
// zero-padded length-3 moving average to induce spatial locality, and is then
// normalized to sum to 1. Rows whose smoothed sum is zero are left as all
// zeros; a row is never partially normalized.
func SystemMatrix(nRays, nVoxels int, seed uint64) *mat.Dense {
	u := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewSource(seed)}

	a := mat.NewDense(nRays, nVoxels, nil)
	raw := make([]float64, nVoxels)
	for i := 0; i < nRays; i++ {
		for j := range raw {
			raw[j] = u.Rand()
		}
		row := a.RawRowView(i)
		smooth3(raw, row)
		normalizeRow(row)
	}
	return a
}

// smooth3 writes the zero-padded length-3 moving average of src into dst.
// Edge samples see implicit zeros, so the divisor stays 3 everywhere.
func smooth3(src, dst []float64) {
	n := len(src)
	for j := 0; j < n; j++ {
		s := src[j]
		if j > 0 {
			s += src[j-1]
		}
		if j < n-1 {
			s += src[j+1]
		}
		dst[j] = s / 3.0
	}
}

// normalizeRow divides row by its sum when the sum is positive. All-zero rows
// are left untouched.
func normalizeRow(row []float64) {
	sum := 0.0
	for _, v := range row {
		sum += v
	}
	if sum <= 0 {
		return
	}
	for j := range row {
		row[j] /= sum
	}
}
