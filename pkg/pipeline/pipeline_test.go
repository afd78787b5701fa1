package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"tomolab/pkg/volume"
)

// writeTestDataset lays out a minimal input dataset directory (projections,
// system matrix, geometry, ground-truth phantom) and returns its path.
func writeTestDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, volume.SaveVector(filepath.Join(dir, "projections.vol"), []float64{1.0, 0.5}))
	require.NoError(t, volume.SaveMatrix(filepath.Join(dir, "system_matrix.vol"),
		mat.NewDense(2, 2, []float64{1, 0, 0, 1})))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geometry.json"),
		[]byte(`{"description":"toy","n_voxels":2,"n_rays":2,"dose_factor":1.0,"note":"test"}`), 0644))
	require.NoError(t, volume.SaveVector(filepath.Join(dir, "phantom.vol"), []float64{1.0, 0.5}))
	return dir
}

// writeConfig renders a config file and loads it through the normal path so
// validation and defaults apply.
func writeConfig(t *testing.T, text string) (*Config, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	return cfg, path
}

func baseConfigYAML(dataDir, expDir, extra string) string {
	return fmt.Sprintf(`id: exp_test_0001
description: pipeline test run
sim:
  data_path: %s
  projections_file: projections.vol
  system_matrix_file: system_matrix.vol
  geometry_file: geometry.json
recon:
  rust_binary: /nonexistent/martrecon
  n_iters: 10
  relaxation: 0.5
output:
  base_dir: %s
%s`, dataDir, expDir, extra)
}

// fakeRecon returns a CommandRunner that stands in for the external
// reconstruction binary: it writes the given volume to the --output path.
func fakeRecon(shape []int, data []float64) CommandRunner {
	return func(ctx context.Context, name string, args ...string) error {
		for i := 0; i < len(args)-1; i++ {
			if args[i] == "--output" {
				return volume.Save(args[i+1], shape, data)
			}
		}
		return errors.New("fake recon: no --output flag")
	}
}

func readLog(t *testing.T, expDir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(expDir, "run.log"))
	require.NoError(t, err)
	return string(data)
}

func TestRunSkipsDenoiseAndMetricsWhenUnconfigured(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, ""))

	p := New(cfg, cfgPath, WithCommandRunner(fakeRecon([]int{2}, []float64{0.9, 0.6})))
	require.NoError(t, p.Run(context.Background()))

	require.NoFileExists(t, filepath.Join(expDir, DenoisedVolumeFile),
		"no checkpoint configured, so no denoised output may exist")
	require.NoFileExists(t, filepath.Join(expDir, "metrics.csv"),
		"no ground truth configured, so no metrics table may exist")
	require.FileExists(t, filepath.Join(expDir, MetadataFile),
		"metadata must be written even when optional stages are skipped")

	logText := readLog(t, expDir)
	require.Contains(t, logText, "skipping denoising")
	require.Contains(t, logText, "skipping metrics")
	require.Contains(t, logText, "completed")
}

func TestRunAbortsOnReconstructionFailure(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, ""))

	boom := func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	}
	p := New(cfg, cfgPath, WithCommandRunner(boom))

	err := p.Run(context.Background())
	require.Error(t, err)
	require.NoFileExists(t, filepath.Join(expDir, MetadataFile),
		"a fatal reconstruction must leave no metadata record")

	logText := readLog(t, expDir)
	require.Contains(t, logText, "Reconstruction failed")
}

func TestRunComputesMetrics(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")
	extra := `metrics:
  compute_ssim: true
  compute_psnr: true
  gt_volume_path: phantom.vol
`
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, extra))

	p := New(cfg, cfgPath, WithCommandRunner(fakeRecon([]int{2}, []float64{0.9, 0.6})))
	require.NoError(t, p.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(expDir, "metrics.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "name,ssim,psnr", lines[0])

	fields := strings.Split(lines[1], ",")
	require.Len(t, fields, 3)
	require.Equal(t, "recon", fields[0])
	require.NotEmpty(t, fields[1], "ssim was requested and must be present")
	require.NotEmpty(t, fields[2], "psnr was requested and must be present")
}

func TestRunMarksUnrequestedMetricAbsent(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")
	extra := `metrics:
  compute_psnr: true
  gt_volume_path: phantom.vol
`
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, extra))

	p := New(cfg, cfgPath, WithCommandRunner(fakeRecon([]int{2}, []float64{0.9, 0.6})))
	require.NoError(t, p.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(expDir, "metrics.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	fields := strings.Split(lines[1], ",")
	require.Empty(t, fields[1], "ssim was not requested and must stay absent")
	require.NotEmpty(t, fields[2])
}

func TestRunSkipsMetricsWithoutProvider(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")
	extra := `metrics:
  compute_ssim: true
  gt_volume_path: phantom.vol
`
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, extra))

	p := New(cfg, cfgPath,
		WithCommandRunner(fakeRecon([]int{2}, []float64{0.9, 0.6})),
		WithMetrics(nil))
	require.NoError(t, p.Run(context.Background()))

	require.NoFileExists(t, filepath.Join(expDir, "metrics.csv"))
	require.FileExists(t, filepath.Join(expDir, MetadataFile))
	require.Contains(t, readLog(t, expDir), "unavailable; skipping metrics")
}

func TestRunSkipsMetricsWhenPhantomMissing(t *testing.T) {
	dataDir := writeTestDataset(t)
	require.NoError(t, os.Remove(filepath.Join(dataDir, "phantom.vol")))
	expDir := filepath.Join(t.TempDir(), "exp")
	extra := `metrics:
  compute_ssim: true
  gt_volume_path: phantom.vol
`
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, extra))

	p := New(cfg, cfgPath, WithCommandRunner(fakeRecon([]int{2}, []float64{0.9, 0.6})))
	require.NoError(t, p.Run(context.Background()))

	require.NoFileExists(t, filepath.Join(expDir, "metrics.csv"))
	require.Contains(t, readLog(t, expDir), "Phantom not found; skipping metrics.")
}

func TestRunDenoiseStage(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")

	ckpt := filepath.Join(t.TempDir(), "kernel.vol")
	require.NoError(t, volume.SaveVector(ckpt, []float64{0, 1, 0})) // identity kernel

	extra := fmt.Sprintf(`model:
  class_name: Conv
  checkpoint: %s
`, ckpt)
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, extra))

	reconData := []float64{1, 2, 3, 4, 5, 6}
	p := New(cfg, cfgPath, WithCommandRunner(fakeRecon([]int{2, 3}, reconData)))
	require.NoError(t, p.Run(context.Background()))

	den, err := volume.LoadMatrix(filepath.Join(expDir, DenoisedVolumeFile))
	require.NoError(t, err)
	require.True(t, mat.EqualApprox(mat.NewDense(2, 3, reconData), den, 1e-12),
		"an identity kernel must pass the reconstruction through unchanged")
}

func TestRunDenoiseMiddleSliceOf3DVolume(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")

	ckpt := filepath.Join(t.TempDir(), "kernel.vol")
	require.NoError(t, volume.SaveVector(ckpt, []float64{0, 1, 0}))

	extra := fmt.Sprintf(`model:
  class_name: Conv
  checkpoint: %s
`, ckpt)
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, extra))

	// 3 slices of 2x2; the middle slice holds 5..8.
	data := []float64{
		1, 1, 1, 1,
		5, 6, 7, 8,
		2, 2, 2, 2,
	}
	p := New(cfg, cfgPath, WithCommandRunner(fakeRecon([]int{3, 2, 2}, data)))
	require.NoError(t, p.Run(context.Background()))

	den, err := volume.LoadMatrix(filepath.Join(expDir, DenoisedVolumeFile))
	require.NoError(t, err)
	require.True(t, mat.EqualApprox(mat.NewDense(2, 2, []float64{5, 6, 7, 8}), den, 1e-12))
	require.Contains(t, readLog(t, expDir), "using middle slice only")
}

func TestRunDenoiseUnsupportedShape(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")

	ckpt := filepath.Join(t.TempDir(), "kernel.vol")
	require.NoError(t, volume.SaveVector(ckpt, []float64{0, 1, 0}))

	extra := fmt.Sprintf(`model:
  class_name: Conv
  checkpoint: %s
`, ckpt)
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, extra))

	p := New(cfg, cfgPath, WithCommandRunner(fakeRecon([]int{2}, []float64{0.9, 0.6})))
	err := p.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported volume shape")
	require.NoFileExists(t, filepath.Join(expDir, MetadataFile))
}

func TestRunCopiesConfigByDefault(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, ""))

	p := New(cfg, cfgPath, WithCommandRunner(fakeRecon([]int{2}, []float64{0.9, 0.6})))
	require.NoError(t, p.Run(context.Background()))

	original, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	copied, err := os.ReadFile(filepath.Join(expDir, ConfigCopyFile))
	require.NoError(t, err)
	require.Equal(t, original, copied, "the config copy must be verbatim")
}

func TestRunHonorsSaveConfigCopyFalse(t *testing.T) {
	dataDir := writeTestDataset(t)
	expDir := filepath.Join(t.TempDir(), "exp")
	extra := `  save_config_copy: false
`
	cfg, cfgPath := writeConfig(t, baseConfigYAML(dataDir, expDir, extra))

	p := New(cfg, cfgPath, WithCommandRunner(fakeRecon([]int{2}, []float64{0.9, 0.6})))
	require.NoError(t, p.Run(context.Background()))

	require.NoFileExists(t, filepath.Join(expDir, ConfigCopyFile))
	require.FileExists(t, filepath.Join(expDir, MetadataFile))
}
