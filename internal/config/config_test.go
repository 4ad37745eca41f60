package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validModel() *ModelConfig {
	return &ModelConfig{
		Type: "classifier",
		Backbone: BackboneConfig{
			Layers: []LayerConfig{
				{Type: "linear", In: 16, Out: 8},
				{Type: "relu"},
			},
		},
		Head: HeadConfig{InFeatures: 8, NumClasses: 3},
	}
}

func validData() *DataConfig {
	return &DataConfig{
		Train: SplitConfig{Type: "synthetic", Samples: 20, FeatureDim: 16, NumClasses: 3},
		Test:  SplitConfig{Type: "synthetic", Samples: 10, FeatureDim: 16, NumClasses: 3},
	}
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(validModel(), "", validData(), Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.RunID)
	assert.Equal(t, filepath.Join("work_dirs", cfg.RunID[:8]), cfg.WorkDir)
	assert.Equal(t, 1, cfg.BatchSize)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, "auto", cfg.Accelerator)
	assert.Equal(t, []int{0}, cfg.Devices)
	assert.False(t, cfg.TaskAdapt)
	assert.Equal(t, "synthetic", cfg.Infer.Type)
	assert.Equal(t, 10, cfg.Infer.Samples, "should resolve the test split")
}

func TestResolve_ExplicitOptions(t *testing.T) {
	data := validData()
	data.SamplesPerDevice = 4
	data.WorkersPerDevice = 2

	opts := Options{
		Mode:            "eval",
		WorkDir:         "out/run1",
		Accelerator:     "cpu",
		Devices:         []int{1, 2},
		DumpFeatures:    true,
		DumpSaliencyMap: true,
	}
	cfg, err := Resolve(validModel(), "ckpt.mpac", data, opts)
	require.NoError(t, err)

	assert.Equal(t, "out/run1", cfg.WorkDir)
	assert.Equal(t, "ckpt.mpac", cfg.LoadFrom)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "cpu", cfg.Accelerator)
	assert.Equal(t, []int{1, 2}, cfg.Devices)
	assert.True(t, cfg.DumpFeatures)
	assert.True(t, cfg.DumpSaliencyMap)
}

func TestResolve_TaskAdaptUsesTrainSplit(t *testing.T) {
	model := validModel()
	model.TaskAdapt = &TaskAdaptConfig{Type: "prob"}

	data := validData()
	data.Test.Pipeline = []TransformConfig{{Type: "l2norm"}}

	cfg, err := Resolve(model, "", data, Options{})
	require.NoError(t, err)

	assert.True(t, cfg.TaskAdapt)
	assert.Equal(t, 20, cfg.Infer.Samples, "pre-stage should iterate the train split")
	require.Len(t, cfg.Infer.Pipeline, 1)
	assert.Equal(t, "l2norm", cfg.Infer.Pipeline[0].Type, "pre-stage should apply the test pipeline")
}

func TestResolve_TaskAdaptEvaluationKeepsTestSplit(t *testing.T) {
	model := validModel()
	model.TaskAdapt = &TaskAdaptConfig{Type: "prob"}

	cfg, err := Resolve(model, "", validData(), Options{Evaluation: true})
	require.NoError(t, err)

	assert.True(t, cfg.TaskAdapt)
	assert.True(t, cfg.Evaluation)
	assert.Equal(t, 10, cfg.Infer.Samples, "evaluation runs should use the test split")
}

func TestResolve_TaskAdaptNeedsTrainSplit(t *testing.T) {
	model := validModel()
	model.TaskAdapt = &TaskAdaptConfig{Type: "prob"}

	data := validData()
	data.Train = SplitConfig{}

	_, err := Resolve(model, "", data, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.train")
}

func TestResolve_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *ModelConfig, d *DataConfig, o *Options)
		wantErr string
	}{
		{
			name:    "missing model type",
			mutate:  func(m *ModelConfig, d *DataConfig, o *Options) { m.Type = "" },
			wantErr: "model type",
		},
		{
			name:    "empty backbone",
			mutate:  func(m *ModelConfig, d *DataConfig, o *Options) { m.Backbone.Layers = nil },
			wantErr: "at least one layer",
		},
		{
			name: "unknown layer type",
			mutate: func(m *ModelConfig, d *DataConfig, o *Options) {
				m.Backbone.Layers[0].Type = "conv"
			},
			wantErr: "unknown layer type",
		},
		{
			name: "bad map shape",
			mutate: func(m *ModelConfig, d *DataConfig, o *Options) {
				m.Backbone.MapShape = []int{4, 2}
			},
			wantErr: "map_shape",
		},
		{
			name:    "dropout out of range",
			mutate:  func(m *ModelConfig, d *DataConfig, o *Options) { m.Head.Dropout = 1.0 },
			wantErr: "dropout",
		},
		{
			name: "headless model",
			mutate: func(m *ModelConfig, d *DataConfig, o *Options) {
				m.Head.NumClasses = 0
				m.Head.Tasks = nil
			},
			wantErr: "num_classes or tasks",
		},
		{
			name:    "missing test split",
			mutate:  func(m *ModelConfig, d *DataConfig, o *Options) { d.Test = SplitConfig{} },
			wantErr: "data.test",
		},
		{
			name:    "negative workers",
			mutate:  func(m *ModelConfig, d *DataConfig, o *Options) { d.WorkersPerDevice = -1 },
			wantErr: "workers_per_device",
		},
		{
			name:    "unknown accelerator",
			mutate:  func(m *ModelConfig, d *DataConfig, o *Options) { o.Accelerator = "cuda" },
			wantErr: "accelerator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := validModel()
			data := validData()
			opts := Options{}
			tt.mutate(model, data, &opts)

			_, err := Resolve(model, "", data, opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadModelConfig(t *testing.T) {
	doc := `
type: multitask_classifier
backbone:
  layers:
    - {type: linear, in: 32, out: 16}
    - {type: relu}
    - {type: linear, in: 16, out: 12}
  map_shape: [3, 2, 2]
head:
  in_features: 12
  dropout: 0.1
  tasks:
    - {name: species, num_classes: 4}
    - {name: color, num_classes: 3}
task_adapt:
  type: prob
`
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadModelConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "multitask_classifier", cfg.Type)
	assert.Len(t, cfg.Backbone.Layers, 3)
	assert.Equal(t, []int{3, 2, 2}, cfg.Backbone.MapShape)
	assert.Equal(t, float32(0.1), cfg.Head.Dropout)
	require.Len(t, cfg.Head.Tasks, 2)
	assert.Equal(t, "species", cfg.Head.Tasks[0].Name)
	require.NotNil(t, cfg.TaskAdapt)
	assert.Equal(t, "prob", cfg.TaskAdapt.Type)
}

func TestLoadDataConfig(t *testing.T) {
	doc := `
test:
  type: csv
  path: data/test.csv
  num_classes: 10
  pipeline:
    - {type: normalize, mean: [0.5], std: [0.5]}
samples_per_device: 8
workers_per_device: 2
`
	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadDataConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Test.Type)
	assert.Equal(t, "data/test.csv", cfg.Test.Path)
	assert.Equal(t, 8, cfg.SamplesPerDevice)
	require.Len(t, cfg.Test.Pipeline, 1)
	assert.Equal(t, []float32{0.5}, cfg.Test.Pipeline[0].Mean)
}

func TestLoadModelConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("type: classifier\n"), 0o600))

	_, err := LoadModelConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model config")
}

func TestLoadModelConfig_MissingFile(t *testing.T) {
	_, err := LoadModelConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvWorkDir, "/tmp/override")
	t.Setenv(EnvAccelerator, "cpu")
	t.Setenv(EnvMode, "infer")

	opts := Options{Mode: "train", WorkDir: "orig", Accelerator: "auto"}
	opts.ApplyEnvOverrides()

	assert.Equal(t, "/tmp/override", opts.WorkDir)
	assert.Equal(t, "cpu", opts.Accelerator)
	assert.Equal(t, "infer", opts.Mode)
}

func TestApplyEnvOverrides_UnsetKeepsValues(t *testing.T) {
	t.Setenv(EnvWorkDir, "")
	t.Setenv(EnvAccelerator, "")
	t.Setenv(EnvMode, "")

	opts := Options{Mode: "train", WorkDir: "orig", Accelerator: "webgpu"}
	opts.ApplyEnvOverrides()

	assert.Equal(t, "orig", opts.WorkDir)
	assert.Equal(t, "webgpu", opts.Accelerator)
	assert.Equal(t, "train", opts.Mode)
}
