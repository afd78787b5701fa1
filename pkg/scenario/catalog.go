// Package scenario defines the named parameter bundles that reproduce the
// standard synthetic datasets: a baseline run, sparse-angle variants with
// fewer rays than voxels, and progressively lower-dose variants with matching
// noise increases.
package scenario

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned by Catalog.Lookup for unknown identifiers.
var ErrNotFound = errors.New("scenario not found")

// Scenario is an immutable parameter bundle for one synthetic dataset.
type Scenario struct {
	// RunID uniquely identifies the scenario and names its run directory.
	RunID string

	// NVoxels is the phantom length N.
	NVoxels int

	// NRays is the projection count M.
	NRays int

	// DoseFactor scales the simulated dose: 1.0 is baseline, smaller values
	// mean lower dose and therefore more measurement noise.
	DoseFactor float64

	// NoiseStd is the base noise standard deviation before dose scaling.
	NoiseStd float64

	// Description is free-text documentation carried into the geometry
	// descriptor.
	Description string
}

// Catalog is an immutable registry of scenarios, built once at startup and
// passed by reference to whoever needs lookups.
type Catalog struct {
	byID map[string]Scenario
}

// NewCatalog returns the standard scenario catalog.
func NewCatalog() *Catalog {
	scenarios := []Scenario{
		{
			RunID:       "baseline_0001",
			NVoxels:     16,
			NRays:       16,
			DoseFactor:  1.0,
			NoiseStd:    0.01,
			Description: "Baseline toy run, full-ish coverage, 1x dose.",
		},
		{
			RunID:       "sparse_90deg_0001",
			NVoxels:     64,
			NRays:       48,
			DoseFactor:  1.0,
			NoiseStd:    0.01,
			Description: "Conceptual 90-degree sparse-view run (fewer rays).",
		},
		{
			RunID:       "sparse_60deg_0001",
			NVoxels:     64,
			NRays:       32,
			DoseFactor:  1.0,
			NoiseStd:    0.01,
			Description: "Conceptual 60-degree sparse-view run (even fewer rays).",
		},
		{
			RunID:       "lowdose_0p5x_0001",
			NVoxels:     64,
			NRays:       64,
			DoseFactor:  0.5,
			NoiseStd:    0.02,
			Description: "Low-dose 0.5x run, full-ish coverage, increased noise.",
		},
		{
			RunID:       "lowdose_0p25x_0001",
			NVoxels:     64,
			NRays:       64,
			DoseFactor:  0.25,
			NoiseStd:    0.03,
			Description: "Low-dose 0.25x run, full-ish coverage, more noise.",
		},
		{
			RunID:       "lowdose_0p1x_0001",
			NVoxels:     64,
			NRays:       64,
			DoseFactor:  0.1,
			NoiseStd:    0.05,
			Description: "Very low-dose 0.1x run, full-ish coverage, high noise.",
		},
	}

	byID := make(map[string]Scenario, len(scenarios))
	for _, sc := range scenarios {
		byID[sc.RunID] = sc
	}
	return &Catalog{byID: byID}
}

// Lookup returns the scenario registered under id, or an error wrapping
// ErrNotFound.
func (c *Catalog) Lookup(id string) (Scenario, error) {
	sc, ok := c.byID[id]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return sc, nil
}

// IDs returns all registered identifiers in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
