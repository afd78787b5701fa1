// Package denoise defines the learned-denoiser capability consumed by the
// pipeline: a Denoiser restores its weights from a checkpoint file onto a
// compute device and maps a single-channel 2D array to a single-channel 2D
// array. Configuration-supplied class names are resolved against a Registry
// at startup instead of reflective loading at call time.
package denoise

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrUnknownDenoiser is returned when a configured class name has no
// registered implementation.
var ErrUnknownDenoiser = errors.New("unknown denoiser")

// Denoiser is a black-box inference function over 2D arrays.
type Denoiser interface {
	// Load restores model weights from a checkpoint file onto device.
	Load(checkpoint string, device Device) error

	// Apply runs inference on img. Implementations must not mutate img or
	// retain internal state across calls; inference is read-only.
	Apply(img *mat.Dense) (*mat.Dense, error)
}

// Factory builds an unloaded Denoiser instance.
type Factory func() Denoiser

// Registry maps configuration class names to denoiser factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in denoisers:
// "Conv" (separable convolution with checkpoint-supplied kernel) and
// "Median" (3x3 median filter).
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("Conv", func() Denoiser { return &Conv{} })
	r.Register("Median", func() Denoiser { return &Median{} })
	return r
}

// Register adds a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New builds an unloaded denoiser for the given class name.
func (r *Registry) New(name string) (Denoiser, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownDenoiser, name, r.Names())
	}
	return f(), nil
}

// Names returns the registered class names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
