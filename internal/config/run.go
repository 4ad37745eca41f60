package config

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// RunConfig is the resolved configuration for one stage run.
type RunConfig struct {
	RunID   string
	WorkDir string

	Model    ModelConfig
	LoadFrom string // checkpoint path, empty to run from initial weights

	// Infer is the split the stage iterates: the test split normally, the
	// train split with the test pipeline for the task-adaptation pre-stage.
	Infer     SplitConfig
	BatchSize int
	Workers   int

	Accelerator string
	Devices     []int

	TaskAdapt  bool
	Evaluation bool

	DumpFeatures    bool
	DumpSaliencyMap bool
}

// Resolve merges a model config, checkpoint reference, data config and stage
// options into a RunConfig. It validates the inputs and applies defaults for
// unset fields: batch size 1, device list [0], accelerator "auto", work dir
// derived from the run id.
func Resolve(model *ModelConfig, checkpoint string, data *DataConfig, opts Options) (*RunConfig, error) {
	if model == nil {
		return nil, fmt.Errorf("model config is required")
	}
	if data == nil {
		return nil, fmt.Errorf("data config is required")
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("invalid data config: %w", err)
	}

	switch opts.Accelerator {
	case "", "auto", "cpu", "webgpu":
	default:
		return nil, fmt.Errorf("unknown accelerator %q (want cpu, webgpu or auto)", opts.Accelerator)
	}

	runID := uuid.NewString()

	cfg := &RunConfig{
		RunID:           runID,
		WorkDir:         opts.WorkDir,
		Model:           *model,
		LoadFrom:        checkpoint,
		BatchSize:       data.SamplesPerDevice,
		Workers:         data.WorkersPerDevice,
		Accelerator:     opts.Accelerator,
		Devices:         opts.Devices,
		TaskAdapt:       model.TaskAdapt != nil,
		Evaluation:      opts.Evaluation,
		DumpFeatures:    opts.DumpFeatures,
		DumpSaliencyMap: opts.DumpSaliencyMap,
	}

	if cfg.TaskAdapt && !cfg.Evaluation {
		// Pre-stage runs over the training data, but with the evaluation
		// pipeline applied to the samples.
		if data.Train.Type == "" {
			return nil, fmt.Errorf("task adaptation needs a data.train split")
		}
		cfg.Infer = data.Train
		cfg.Infer.Pipeline = data.Test.Pipeline
	} else {
		cfg.Infer = data.Test
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join("work_dirs", runID[:8])
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Workers < 0 {
		cfg.Workers = 0
	}
	if cfg.Accelerator == "" {
		cfg.Accelerator = "auto"
	}
	if len(cfg.Devices) == 0 {
		cfg.Devices = []int{0}
	}
	return cfg, nil
}
