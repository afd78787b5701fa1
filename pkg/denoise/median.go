package denoise

import (
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Median is a parameter-free 3x3 median filter. It has no learned weights;
// the checkpoint path is only validated to exist so configurations stay
// honest about where a model supposedly came from.
type Median struct {
	loaded bool
	device Device
}

// Load validates that the checkpoint file exists.
func (m *Median) Load(checkpoint string, device Device) error {
	if _, err := os.Stat(checkpoint); err != nil {
		return fmt.Errorf("denoise: Median checkpoint: %w", err)
	}
	m.loaded = true
	m.device = device
	return nil
}

// Apply replaces every sample with the median of its 3x3 neighborhood,
// clamped at the borders.
func (m *Median) Apply(img *mat.Dense) (*mat.Dense, error) {
	if !m.loaded {
		return nil, fmt.Errorf("denoise: Median applied before Load")
	}
	rows, cols := img.Dims()
	out := mat.NewDense(rows, cols, nil)
	window := make([]float64, 0, 9)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			window = window[:0]
			for di := -1; di <= 1; di++ {
				for dj := -1; dj <= 1; dj++ {
					window = append(window, img.At(clamp(i+di, rows), clamp(j+dj, cols)))
				}
			}
			sort.Float64s(window)
			out.Set(i, j, window[len(window)/2])
		}
	}
	return out, nil
}

func clamp(idx, limit int) int {
	if idx < 0 {
		return 0
	}
	if idx >= limit {
		return limit - 1
	}
	return idx
}
