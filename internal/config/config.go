// Package config holds the declarative configuration for inference runs.
//
// A run is described by three inputs: a model config (network topology and
// head layout), a data config (dataset splits and loader settings), and a
// set of stage options (mode, dump flags, device selection). Resolve merges
// the three into a single RunConfig consumed by the stage runner.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LayerConfig describes one backbone layer.
type LayerConfig struct {
	Type string `yaml:"type"` // "linear" or "relu"
	In   int    `yaml:"in,omitempty"`
	Out  int    `yaml:"out,omitempty"`
}

// BackboneConfig describes the feature-extracting sub-network.
//
// MapShape, when set, declares the spatial view [channels, height, width]
// the backbone output is reshaped to; saliency maps are derived from it.
type BackboneConfig struct {
	Layers   []LayerConfig `yaml:"layers"`
	MapShape []int         `yaml:"map_shape,omitempty"`
}

// TaskConfig names one classification task of a multi-task head.
type TaskConfig struct {
	Name       string `yaml:"name"`
	NumClasses int    `yaml:"num_classes"`
}

// HeadConfig describes the classification head. Single-task heads set
// NumClasses; multi-task heads list Tasks instead.
type HeadConfig struct {
	InFeatures int          `yaml:"in_features"`
	NumClasses int          `yaml:"num_classes,omitempty"`
	Dropout    float32      `yaml:"dropout,omitempty"`
	Tasks      []TaskConfig `yaml:"tasks,omitempty"`
}

// TaskAdaptConfig marks a model for the task-adaptation pre-stage. Its
// presence on a model config is what triggers soft-label extraction.
type TaskAdaptConfig struct {
	Type string `yaml:"type"` // extraction flavor; "prob" is the default
}

// ModelConfig describes a classifier to build.
type ModelConfig struct {
	Type      string           `yaml:"type"` // model registry key
	Backbone  BackboneConfig   `yaml:"backbone"`
	Head      HeadConfig       `yaml:"head"`
	TaskAdapt *TaskAdaptConfig `yaml:"task_adapt,omitempty"`
}

// Validate checks the model config for structural errors.
func (c *ModelConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("model type is required")
	}
	if len(c.Backbone.Layers) == 0 {
		return fmt.Errorf("backbone needs at least one layer")
	}
	for i, l := range c.Backbone.Layers {
		switch l.Type {
		case "linear":
			if l.In <= 0 || l.Out <= 0 {
				return fmt.Errorf("backbone layer %d: linear needs positive in/out, got in=%d out=%d", i, l.In, l.Out)
			}
		case "relu":
		default:
			return fmt.Errorf("backbone layer %d: unknown layer type %q", i, l.Type)
		}
	}
	if ms := c.Backbone.MapShape; len(ms) != 0 && len(ms) != 3 {
		return fmt.Errorf("backbone map_shape must be [channels, height, width], got %v", ms)
	}
	if c.Head.InFeatures <= 0 {
		return fmt.Errorf("head in_features must be positive, got %d", c.Head.InFeatures)
	}
	if c.Head.NumClasses <= 0 && len(c.Head.Tasks) == 0 {
		return fmt.Errorf("head needs num_classes or tasks")
	}
	for i, task := range c.Head.Tasks {
		if task.Name == "" {
			return fmt.Errorf("head task %d: name is required", i)
		}
		if task.NumClasses <= 0 {
			return fmt.Errorf("head task %q: num_classes must be positive, got %d", task.Name, task.NumClasses)
		}
	}
	if c.Head.Dropout < 0 || c.Head.Dropout >= 1 {
		return fmt.Errorf("head dropout must be in [0, 1), got %v", c.Head.Dropout)
	}
	return nil
}

// TransformConfig describes one sample transform in a split pipeline.
type TransformConfig struct {
	Type string    `yaml:"type"` // "normalize" or "l2norm"
	Mean []float32 `yaml:"mean,omitempty"`
	Std  []float32 `yaml:"std,omitempty"`
}

// SplitConfig describes one dataset split and how to materialize it.
type SplitConfig struct {
	Type       string            `yaml:"type"` // dataset registry key
	Path       string            `yaml:"path,omitempty"`
	NumClasses int               `yaml:"num_classes,omitempty"`
	FeatureDim int               `yaml:"feature_dim,omitempty"`
	Samples    int               `yaml:"samples,omitempty"` // synthetic split size
	Seed       int64             `yaml:"seed,omitempty"`
	Encoding   string            `yaml:"encoding,omitempty"` // text tokenizer encoding
	Pipeline   []TransformConfig `yaml:"pipeline,omitempty"`
}

// DataConfig describes the dataset splits and loader settings of a run.
type DataConfig struct {
	Train            SplitConfig `yaml:"train,omitempty"`
	Val              SplitConfig `yaml:"val,omitempty"`
	Test             SplitConfig `yaml:"test"`
	SamplesPerDevice int         `yaml:"samples_per_device"`
	WorkersPerDevice int         `yaml:"workers_per_device"`
}

// Validate checks the data config for structural errors.
func (c *DataConfig) Validate() error {
	if c.Test.Type == "" {
		return fmt.Errorf("data.test split is required")
	}
	if c.SamplesPerDevice < 0 {
		return fmt.Errorf("samples_per_device must not be negative, got %d", c.SamplesPerDevice)
	}
	if c.WorkersPerDevice < 0 {
		return fmt.Errorf("workers_per_device must not be negative, got %d", c.WorkersPerDevice)
	}
	return nil
}

// Options carries the per-run stage options.
type Options struct {
	// Mode selects which pipeline phase this invocation belongs to; the
	// stage skips the run when its allowed modes do not include it.
	Mode string `yaml:"mode"`

	// DumpFeatures and DumpSaliencyMap request backbone instrumentation
	// during the forward pass.
	DumpFeatures    bool `yaml:"dump_features"`
	DumpSaliencyMap bool `yaml:"dump_saliency_map"`

	// Evaluation marks the run as an evaluation pass. The task-adaptation
	// pre-stage only fires on non-evaluation runs.
	Evaluation bool `yaml:"evaluation"`

	WorkDir string `yaml:"work_dir,omitempty"`

	// Accelerator selects the compute backend: "cpu", "webgpu", or "auto".
	Accelerator string `yaml:"accelerator,omitempty"`

	// Devices lists device ordinals. Execution is single-device; only the
	// first entry is used.
	Devices []int `yaml:"devices,omitempty"`
}

// DefaultOptions returns the options applied when a field is unset.
func DefaultOptions() Options {
	return Options{
		Mode:        "train",
		Accelerator: "auto",
		Devices:     []int{0},
	}
}

// LoadModelConfig reads and validates a model config YAML file.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path comes from operator-supplied CLI flags.
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}
	var cfg ModelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDataConfig reads and validates a data config YAML file.
func LoadDataConfig(path string) (*DataConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path comes from operator-supplied CLI flags.
	if err != nil {
		return nil, fmt.Errorf("failed to read data config: %w", err)
	}
	var cfg DataConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse data config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid data config %s: %w", path, err)
	}
	return &cfg, nil
}
