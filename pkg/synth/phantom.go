// Package synth generates synthetic forward-model datasets: a 1D phantom
// signal, a row-stochastic sensing operator, and noisy projections that stand
// in for real physics-simulator output. All generators are deterministic for
// a given seed.
package synth

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Phantom builds a synthetic 1D ground-truth signal of length nVoxels: the
// sum of three Gaussian bumps with random centers, widths and amplitudes,
// shifted and scaled into [0, 1]. nVoxels == 0 yields an empty slice.
func Phantom(nVoxels int, seed uint64) []float64 {
	phantom := make([]float64, nVoxels)
	if nVoxels == 0 {
		return phantom
	}

	src := rand.NewSource(seed)
	const bumps = 3
	centers := uniformN(src, 0.1, 0.9, bumps)
	widths := uniformN(src, 0.05, 0.15, bumps)
	amps := uniformN(src, 0.5, 1.5, bumps)

	for i := range phantom {
		// Sample positions evenly spaced over [0, 1].
		x := 0.0
		if nVoxels > 1 {
			x = float64(i) / float64(nVoxels-1)
		}
		for b := 0; b < bumps; b++ {
			t := (x - centers[b]) / widths[b]
			phantom[i] += amps[b] * math.Exp(-0.5*t*t)
		}
	}

	lo, hi := minMax(phantom)
	for i := range phantom {
		phantom[i] -= lo
	}
	// Degenerate all-equal signals stay at zero rather than dividing by zero.
	if span := hi - lo; span > 0 {
		for i := range phantom {
			phantom[i] /= span
		}
	}
	return phantom
}

func uniformN(src rand.Source, min, max float64, n int) []float64 {
	u := distuv.Uniform{Min: min, Max: max, Src: src}
	out := make([]float64, n)
	for i := range out {
		out[i] = u.Rand()
	}
	return out
}

func minMax(data []float64) (lo, hi float64) {
	lo, hi = data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
