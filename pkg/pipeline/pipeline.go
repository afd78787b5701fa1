// Package pipeline orchestrates one reconstruction experiment: external
// iterative reconstruction, optional learned denoising, optional metric
// computation, and metadata persistence. Stages execute strictly in order;
// only the reconstruction stage is fatal, the optional stages degrade to
// logged skips.
package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"tomolab/pkg/denoise"
	"tomolab/pkg/metrics"
	"tomolab/pkg/volume"
)

// Output artifact filenames within an experiment directory.
const (
	ReconVolumeFile    = "volume_recon.vol"
	DenoisedVolumeFile = "volume_denoised.vol"
	MetadataFile       = "metadata.json"
	ConfigCopyFile     = "config.yaml"
)

// Metadata is the completion record written by the finalize stage.
type Metadata struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	TimestampUTC string `json:"timestamp_utc"`
}

// CommandRunner invokes an external process and returns its terminal error
// (non-nil for non-zero exit). It is the injectable hook for cancellation,
// timeouts and tests.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMetrics sets the metric provider. A nil provider models "metric
// library unavailable": requested metrics are skipped with a log entry.
func WithMetrics(p metrics.Provider) Option {
	return func(pl *Pipeline) { pl.metrics = p }
}

// WithDenoisers sets the denoiser registry used to resolve model class
// names.
func WithDenoisers(r *denoise.Registry) Option {
	return func(pl *Pipeline) { pl.denoisers = r }
}

// WithCommandRunner replaces the subprocess invocation hook.
func WithCommandRunner(run CommandRunner) Option {
	return func(pl *Pipeline) { pl.runCmd = run }
}

// Pipeline executes one configured experiment.
type Pipeline struct {
	cfg       *Config
	cfgPath   string
	metrics   metrics.Provider
	denoisers *denoise.Registry
	runCmd    CommandRunner
}

// New builds a pipeline for cfg. cfgPath is the file the configuration was
// loaded from and is used for the verbatim config copy; it may be empty when
// the configuration was built in memory.
func New(cfg *Config, cfgPath string, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		cfgPath:   cfgPath,
		metrics:   metrics.Default(),
		denoisers: denoise.DefaultRegistry(),
		runCmd:    execRunner,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the stage sequence. It returns a non-nil error only on fatal
// failures: experiment-directory preparation, a non-zero reconstruction
// exit, a denoise failure when a checkpoint was configured, or an artifact
// write failure. Partial outputs and the log are left in place on failure.
func (p *Pipeline) Run(ctx context.Context) error {
	expDir := p.cfg.Output.BaseDir
	if err := os.MkdirAll(expDir, 0755); err != nil {
		return fmt.Errorf("pipeline: prepare experiment dir: %w", err)
	}
	rlog, err := OpenRunLog(filepath.Join(expDir, p.cfg.Output.LogFile))
	if err != nil {
		return err
	}
	defer rlog.Close()

	rlog.Printf("Starting experiment %s", p.cfg.ID)

	reconPath, err := p.reconstruct(ctx, expDir, rlog)
	if err != nil {
		rlog.Printf("Reconstruction failed: %v", err)
		return fmt.Errorf("pipeline: reconstruction: %w", err)
	}

	denoisedPath := ""
	if p.cfg.Model.Checkpoint == "" {
		rlog.Printf("No checkpoint; skipping denoising.")
	} else {
		denoisedPath, err = p.denoise(expDir, reconPath, rlog)
		if err != nil {
			rlog.Printf("Denoising failed: %v", err)
			return fmt.Errorf("pipeline: denoise: %w", err)
		}
	}

	if err := p.computeMetrics(expDir, reconPath, denoisedPath, rlog); err != nil {
		rlog.Printf("Metrics failed: %v", err)
		return fmt.Errorf("pipeline: metrics: %w", err)
	}

	if err := p.finalize(expDir, rlog); err != nil {
		rlog.Printf("Finalize failed: %v", err)
		return fmt.Errorf("pipeline: finalize: %w", err)
	}

	rlog.Printf("Experiment %s completed.", p.cfg.ID)
	return nil
}

// reconstruct invokes the external reconstruction executable synchronously
// and blocks until it exits. A missing binary is only a warning: the
// invocation still happens so the external tool's own failure surfaces.
func (p *Pipeline) reconstruct(ctx context.Context, expDir string, rlog *RunLog) (string, error) {
	bin := p.cfg.Recon.Binary
	if _, err := os.Stat(bin); err != nil {
		rlog.Printf("[WARN] Reconstruction binary not found at %s (you may need to build it).", bin)
	}

	out := filepath.Join(expDir, ReconVolumeFile)
	args := []string{
		"--projections", filepath.Join(p.cfg.Sim.DataPath, p.cfg.Sim.ProjectionsFile),
		"--system-matrix", filepath.Join(p.cfg.Sim.DataPath, p.cfg.Sim.SystemMatrixFile),
		"--geometry", filepath.Join(p.cfg.Sim.DataPath, p.cfg.Sim.GeometryFile),
		"--n-iters", strconv.Itoa(p.cfg.Recon.NIters),
		"--relaxation", strconv.FormatFloat(p.cfg.Recon.Relaxation, 'g', -1, 64),
		"--output", out,
	}

	rlog.Printf("Running reconstruction: %s %s", bin, strings.Join(args, " "))
	if err := p.runCmd(ctx, bin, args...); err != nil {
		return "", err
	}
	rlog.Printf("Reconstruction finished. Output saved to %s", out)
	return out, nil
}

// denoise loads the configured denoiser and runs read-only inference on the
// reconstructed volume. 2D volumes are denoised whole; for 3D volumes only
// the middle slice along axis 0 is used, which discards data and is logged
// as a warning. Any other dimensionality is an unsupported shape.
func (p *Pipeline) denoise(expDir, reconPath string, rlog *RunLog) (string, error) {
	name := p.cfg.Model.ClassName
	if name == "" {
		return "", fmt.Errorf("model.class_name is required when model.checkpoint is set")
	}
	den, err := p.denoisers.New(name)
	if err != nil {
		return "", err
	}
	dev := denoise.ResolveDevice(p.cfg.Model.Device)

	rlog.Printf("Loading denoiser %s (device=%s)...", name, dev)
	if err := den.Load(p.cfg.Model.Checkpoint, dev); err != nil {
		return "", err
	}

	shape, data, err := volume.Load(reconPath)
	if err != nil {
		return "", err
	}
	var img *mat.Dense
	switch len(shape) {
	case 2:
		img = mat.NewDense(shape[0], shape[1], data)
	case 3:
		mid := shape[0] / 2
		plane := shape[1] * shape[2]
		rlog.Printf("[WARN] 3D volume detected; using middle slice only.")
		img = mat.NewDense(shape[1], shape[2], data[mid*plane:(mid+1)*plane])
	default:
		return "", fmt.Errorf("unsupported volume shape %v", shape)
	}

	out, err := den.Apply(img)
	if err != nil {
		return "", err
	}
	outPath := filepath.Join(expDir, DenoisedVolumeFile)
	if err := volume.SaveMatrix(outPath, out); err != nil {
		return "", err
	}
	rlog.Printf("Denoised volume saved to %s", outPath)
	return outPath, nil
}

type metricsRow struct {
	name string
	ssim *float64
	psnr *float64
}

// computeMetrics compares the ground-truth phantom with the reconstruction
// and, when present, the denoised output. Missing ground truth or an
// unavailable metric provider produce a logged skip, never a failure.
func (p *Pipeline) computeMetrics(expDir, reconPath, denoisedPath string, rlog *RunLog) error {
	mcfg := p.cfg.Metrics
	gtPath := mcfg.GTVolumePath
	if gtPath == "" {
		gtPath = p.cfg.Sim.PhantomFile
	}
	if gtPath == "" {
		rlog.Printf("No ground truth phantom; skipping metrics.")
		return nil
	}
	if _, err := os.Stat(gtPath); err != nil {
		// Retry relative to the dataset directory before giving up.
		alt := filepath.Join(p.cfg.Sim.DataPath, gtPath)
		if _, altErr := os.Stat(alt); altErr != nil {
			rlog.Printf("Phantom not found; skipping metrics.")
			return nil
		}
		gtPath = alt
	}
	if p.metrics == nil && (mcfg.ComputeSSIM || mcfg.ComputePSNR) {
		rlog.Printf("Metrics provider unavailable; skipping metrics.")
		return nil
	}

	_, gt, err := volume.Load(gtPath)
	if err != nil {
		rlog.Printf("Failed to read ground truth %s: %v; skipping metrics.", gtPath, err)
		return nil
	}
	lo, hi := gt[0], gt[0]
	for _, v := range gt {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	dataRange := hi - lo

	rows := make([]metricsRow, 0, 2)
	row, err := p.compareWithGT("recon", gt, reconPath, dataRange)
	if err != nil {
		return err
	}
	rows = append(rows, row)

	if denoisedPath != "" {
		row, err := p.compareWithGT("denoised", gt, denoisedPath, dataRange)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	metricsPath := filepath.Join(expDir, p.cfg.Output.MetricsFile)
	if err := writeMetricsTable(metricsPath, rows); err != nil {
		return err
	}
	rlog.Printf("Metrics written to %s", metricsPath)
	return nil
}

// compareWithGT computes the requested metrics between the ground truth and
// the artifact at path. Metrics not requested stay absent (nil), which is
// distinct from zero.
func (p *Pipeline) compareWithGT(name string, gt []float64, path string, dataRange float64) (metricsRow, error) {
	row := metricsRow{name: name}
	_, candidate, err := volume.Load(path)
	if err != nil {
		return row, fmt.Errorf("load %s volume: %w", name, err)
	}
	if p.cfg.Metrics.ComputeSSIM {
		v, err := p.metrics.SSIM(gt, candidate, dataRange)
		if err != nil {
			return row, fmt.Errorf("ssim(%s): %w", name, err)
		}
		row.ssim = &v
	}
	if p.cfg.Metrics.ComputePSNR {
		v, err := p.metrics.PSNR(gt, candidate, dataRange)
		if err != nil {
			return row, fmt.Errorf("psnr(%s): %w", name, err)
		}
		row.psnr = &v
	}
	return row, nil
}

func writeMetricsTable(path string, rows []metricsRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"name", "ssim", "psnr"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.name, formatMetric(row.ssim), formatMetric(row.psnr)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// formatMetric renders an absent metric as the empty field.
func formatMetric(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// finalize copies the resolved configuration alongside the outputs (when
// configured) and writes the metadata record. It runs whenever the
// reconstruction stage succeeded, regardless of skipped optional stages.
func (p *Pipeline) finalize(expDir string, rlog *RunLog) error {
	if p.cfg.saveConfigCopy() {
		if p.cfgPath == "" {
			rlog.Printf("No config file path; skipping config copy.")
		} else {
			data, err := os.ReadFile(p.cfgPath)
			if err != nil {
				return fmt.Errorf("read config for copy: %w", err)
			}
			dst := filepath.Join(expDir, ConfigCopyFile)
			if err := os.WriteFile(dst, data, 0644); err != nil {
				return fmt.Errorf("copy config: %w", err)
			}
			rlog.Printf("Config copied to %s", dst)
		}
	}

	meta := Metadata{
		ID:           p.cfg.ID,
		Description:  p.cfg.Description,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	metaPath := filepath.Join(expDir, MetadataFile)
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	rlog.Printf("Metadata saved to %s", metaPath)
	return nil
}
