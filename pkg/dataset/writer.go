// Package dataset persists generated forward-model artifacts under per-run
// directories, following the file contract consumed by the external
// reconstruction binary.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"tomolab/pkg/scenario"
	"tomolab/pkg/volume"
)

// Artifact filenames within a run directory.
const (
	PhantomFile      = "phantom.vol"
	SystemMatrixFile = "system_matrix.vol"
	ProjectionsFile  = "projections.vol"
	GeometryFile     = "geometry.json"
)

// Geometry is the documentary descriptor stored alongside the numeric
// artifacts. It carries no behavior.
type Geometry struct {
	Description string  `json:"description"`
	NVoxels     int     `json:"n_voxels"`
	NRays       int     `json:"n_rays"`
	DoseFactor  float64 `json:"dose_factor"`
	Note        string  `json:"note"`
}

const geometryNote = "Synthetic 1D linear model; not physical CT geometry."

// Writer persists scenario runs under BaseDir, one subdirectory per run.
type Writer struct {
	BaseDir string
}

// WriteRun creates (idempotently) the run directory for sc and writes the
// phantom, system matrix, projections and geometry descriptor. It returns the
// run directory path. Any filesystem failure aborts generation for this
// scenario.
func (w *Writer) WriteRun(sc scenario.Scenario, phantom []float64, matrix *mat.Dense, projections []float64) (string, error) {
	runDir := filepath.Join(w.BaseDir, sc.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("dataset: create run directory %s: %w", runDir, err)
	}

	if err := volume.SaveVector(filepath.Join(runDir, PhantomFile), phantom); err != nil {
		return "", fmt.Errorf("dataset: save phantom: %w", err)
	}
	if err := volume.SaveMatrix(filepath.Join(runDir, SystemMatrixFile), matrix); err != nil {
		return "", fmt.Errorf("dataset: save system matrix: %w", err)
	}
	if err := volume.SaveVector(filepath.Join(runDir, ProjectionsFile), projections); err != nil {
		return "", fmt.Errorf("dataset: save projections: %w", err)
	}

	geom := Geometry{
		Description: sc.Description,
		NVoxels:     sc.NVoxels,
		NRays:       sc.NRays,
		DoseFactor:  sc.DoseFactor,
		Note:        geometryNote,
	}
	data, err := json.MarshalIndent(geom, "", "  ")
	if err != nil {
		return "", fmt.Errorf("dataset: marshal geometry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, GeometryFile), data, 0644); err != nil {
		return "", fmt.Errorf("dataset: save geometry: %w", err)
	}
	return runDir, nil
}
