package denoise

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"tomolab/pkg/volume"
)

// Conv is a separable convolution denoiser. Its checkpoint is a 1D volume
// file holding the kernel weights, which are normalized to sum to 1 on load.
// A length-1 kernel of [1] is therefore the identity.
type Conv struct {
	kernel []float64
	device Device
}

// Load reads and normalizes the kernel weights from checkpoint.
func (c *Conv) Load(checkpoint string, device Device) error {
	kernel, err := volume.LoadVector(checkpoint)
	if err != nil {
		return fmt.Errorf("denoise: load Conv checkpoint: %w", err)
	}
	if len(kernel)%2 == 0 {
		return fmt.Errorf("denoise: Conv kernel length must be odd, got %d", len(kernel))
	}
	sum := 0.0
	for _, w := range kernel {
		sum += w
	}
	if sum == 0 {
		return errors.New("denoise: Conv kernel weights sum to zero")
	}
	normalized := make([]float64, len(kernel))
	for i, w := range kernel {
		normalized[i] = w / sum
	}
	c.kernel = normalized
	c.device = device
	return nil
}

// Apply convolves img with the kernel along rows, then along columns, using
// edge replication so overall intensity is preserved at the borders.
func (c *Conv) Apply(img *mat.Dense) (*mat.Dense, error) {
	if c.kernel == nil {
		return nil, errors.New("denoise: Conv applied before Load")
	}
	rows, cols := img.Dims()

	horizontal := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			horizontal.Set(i, j, c.convolveAt(img.At, i, j, cols, false))
		}
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, c.convolveAt(horizontal.At, i, j, rows, true))
		}
	}
	return out, nil
}

func (c *Conv) convolveAt(at func(i, j int) float64, i, j, limit int, vertical bool) float64 {
	half := len(c.kernel) / 2
	acc := 0.0
	for k, w := range c.kernel {
		offset := k - half
		idx := j + offset
		if vertical {
			idx = i + offset
		}
		if idx < 0 {
			idx = 0
		} else if idx >= limit {
			idx = limit - 1
		}
		if vertical {
			acc += w * at(idx, j)
		} else {
			acc += w * at(i, idx)
		}
	}
	return acc
}
