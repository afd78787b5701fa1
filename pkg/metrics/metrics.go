// Package metrics computes similarity metrics between a ground-truth array
// and a candidate reconstruction. Availability is modeled as a capability:
// the pipeline holds a Provider resolved at startup, and a nil Provider means
// metrics were requested but cannot be computed.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Provider computes similarity metrics parameterized by the ground truth's
// value range.
type Provider interface {
	SSIM(gt, candidate []float64, dataRange float64) (float64, error)
	PSNR(gt, candidate []float64, dataRange float64) (float64, error)
}

// Default returns the built-in gonum-backed provider.
func Default() Provider {
	return gonumProvider{}
}

type gonumProvider struct{}

// SSIM computes the global structural similarity index with the usual
// k1=0.01, k2=0.03 stabilizers and L = dataRange.
func (gonumProvider) SSIM(gt, candidate []float64, dataRange float64) (float64, error) {
	if err := checkPair(gt, candidate); err != nil {
		return 0, err
	}
	const k1, k2 = 0.01, 0.03
	c1 := (k1 * dataRange) * (k1 * dataRange)
	c2 := (k2 * dataRange) * (k2 * dataRange)

	muX := stat.Mean(gt, nil)
	muY := stat.Mean(candidate, nil)
	sigmaX := stat.Variance(gt, nil)
	sigmaY := stat.Variance(candidate, nil)
	sigmaXY := stat.Covariance(gt, candidate, nil)

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)
	if den <= 0 {
		return 0, nil
	}
	return num / den, nil
}

// PSNR computes the peak signal-to-noise ratio in decibels. Identical arrays
// yield +Inf.
func (gonumProvider) PSNR(gt, candidate []float64, dataRange float64) (float64, error) {
	if err := checkPair(gt, candidate); err != nil {
		return 0, err
	}
	mse := 0.0
	for i := range gt {
		diff := gt[i] - candidate[i]
		mse += diff * diff
	}
	mse /= float64(len(gt))
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 20*math.Log10(dataRange) - 10*math.Log10(mse), nil
}

func checkPair(gt, candidate []float64) error {
	if len(gt) == 0 {
		return errors.New("metrics: empty ground truth")
	}
	if len(gt) != len(candidate) {
		return fmt.Errorf("metrics: length mismatch: ground truth %d, candidate %d", len(gt), len(candidate))
	}
	return nil
}
