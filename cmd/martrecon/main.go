// Command martrecon is the reference reconstruction executable. It satisfies
// the external contract the pipeline orchestrator invokes: given projections,
// a system matrix and a geometry descriptor, it runs MART iterations and
// writes a single reconstructed volume, exiting 0 on success.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"tomolab/pkg/recon"
	"tomolab/pkg/volume"
)

func main() {
	projPath := flag.String("projections", "", "Path to the projections volume")
	sysPath := flag.String("system-matrix", "", "Path to the system matrix volume")
	geomPath := flag.String("geometry", "", "Path to the geometry JSON (validated, not yet parsed)")
	nIters := flag.Int("n-iters", 50, "Number of MART passes over all rays")
	relaxation := flag.Float64("relaxation", 0.5, "MART relaxation parameter")
	output := flag.String("output", "", "Output path for the reconstructed volume")
	flag.Parse()

	if *projPath == "" || *sysPath == "" || *geomPath == "" || *output == "" {
		flag.Usage()
		os.Exit(2)
	}

	projections, err := volume.LoadVector(*projPath)
	if err != nil {
		log.Fatalf("Failed to load projections: %v", err)
	}
	matrix, err := volume.LoadMatrix(*sysPath)
	if err != nil {
		log.Fatalf("Failed to load system matrix: %v", err)
	}
	// Geometry is only checked for existence for now; once real ray geometry
	// arrives it will be parsed and validated against the matrix dimensions.
	if _, err := os.Stat(*geomPath); err != nil {
		log.Fatalf("Failed to open geometry JSON: %v", err)
	}

	m, n := matrix.Dims()
	fmt.Printf("Running MART with M = %d, N = %d, n_iters = %d, relaxation = %g\n",
		m, n, *nIters, *relaxation)

	vol, err := recon.Reconstruct(projections, matrix, *nIters, *relaxation)
	if err != nil {
		log.Fatalf("Reconstruction failed: %v", err)
	}

	if err := volume.SaveVector(*output, vol); err != nil {
		log.Fatalf("Failed to write output volume: %v", err)
	}
	fmt.Printf("Reconstruction written to %s\n", *output)
}
