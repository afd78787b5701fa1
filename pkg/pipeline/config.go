package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the declarative experiment configuration, loaded once per run and
// immutable afterwards. The YAML schema keeps its historical key names
// (notably recon.rust_binary) because existing configs and tooling depend on
// them.
type Config struct {
	// ID uniquely identifies the experiment.
	ID string `yaml:"id"`

	// Description is free text carried into the metadata record.
	Description string `yaml:"description"`

	Sim     SimConfig     `yaml:"sim"`
	Recon   ReconConfig   `yaml:"recon"`
	Model   ModelConfig   `yaml:"model"`
	Metrics MetricsConfig `yaml:"metrics"`
	Output  OutputConfig  `yaml:"output"`
}

// SimConfig locates the input dataset produced by the generator.
type SimConfig struct {
	DataPath         string `yaml:"data_path"`
	ProjectionsFile  string `yaml:"projections_file"`
	SystemMatrixFile string `yaml:"system_matrix_file"`
	GeometryFile     string `yaml:"geometry_file"`

	// PhantomFile optionally names the ground-truth phantom used as a
	// fallback when metrics.gt_volume_path is unset.
	PhantomFile string `yaml:"phantom_file"`
}

// ReconConfig parameterizes the external reconstruction invocation.
type ReconConfig struct {
	// Binary is the path to the reconstruction executable.
	Binary     string  `yaml:"rust_binary"`
	NIters     int     `yaml:"n_iters"`
	Relaxation float64 `yaml:"relaxation"`
}

// ModelConfig optionally references a learned denoiser. The denoise stage
// runs only when Checkpoint is set.
type ModelConfig struct {
	Module     string `yaml:"module"`
	ClassName  string `yaml:"class_name"`
	Checkpoint string `yaml:"checkpoint"`
	Device     string `yaml:"device"`
}

// MetricsConfig gates metric computation.
type MetricsConfig struct {
	ComputeSSIM  bool   `yaml:"compute_ssim"`
	ComputePSNR  bool   `yaml:"compute_psnr"`
	GTVolumePath string `yaml:"gt_volume_path"`
}

// OutputConfig names the experiment directory and its artifacts.
type OutputConfig struct {
	BaseDir     string `yaml:"base_dir"`
	LogFile     string `yaml:"log_file"`
	MetricsFile string `yaml:"metrics_file"`

	// SaveConfigCopy defaults to true when omitted.
	SaveConfigCopy *bool `yaml:"save_config_copy"`
}

// LoadConfig reads, validates and defaults an experiment configuration.
// Missing required fields fail fast, before any stage executes.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("pipeline: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	var missing []string
	if c.ID == "" {
		missing = append(missing, "id")
	}
	if c.Output.BaseDir == "" {
		missing = append(missing, "output.base_dir")
	}
	if c.Recon.Binary == "" {
		missing = append(missing, "recon.rust_binary")
	}
	if c.Sim.DataPath == "" {
		missing = append(missing, "sim.data_path")
	}
	if c.Sim.ProjectionsFile == "" {
		missing = append(missing, "sim.projections_file")
	}
	if c.Sim.SystemMatrixFile == "" {
		missing = append(missing, "sim.system_matrix_file")
	}
	if c.Sim.GeometryFile == "" {
		missing = append(missing, "sim.geometry_file")
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline: config missing required fields: %s", strings.Join(missing, ", "))
	}
	if c.Recon.NIters < 1 {
		return fmt.Errorf("pipeline: recon.n_iters must be >= 1, got %d", c.Recon.NIters)
	}
	if c.Recon.Relaxation <= 0 {
		return fmt.Errorf("pipeline: recon.relaxation must be > 0, got %g", c.Recon.Relaxation)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Output.LogFile == "" {
		c.Output.LogFile = "run.log"
	}
	if c.Output.MetricsFile == "" {
		c.Output.MetricsFile = "metrics.csv"
	}
	if c.Output.SaveConfigCopy == nil {
		t := true
		c.Output.SaveConfigCopy = &t
	}
}

func (c *Config) saveConfigCopy() bool {
	return c.Output.SaveConfigCopy == nil || *c.Output.SaveConfigCopy
}
