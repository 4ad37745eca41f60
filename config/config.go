// Copyright 2026 The MPA Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config provides the public API for run configuration.
//
// Stage runs are described by three inputs: a model config (architecture
// and task adaptation), a data config (splits and pipelines), and the
// per-run options (mode, dump flags, work dir). Resolve merges them into
// the single RunConfig a stage executes.
//
// Example:
//
//	modelCfg, err := config.LoadModelConfig("model.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dataCfg, err := config.LoadDataConfig("data.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts := config.DefaultOptions()
//	opts.Mode = "infer"
package config

import (
	"github.com/negvet/model-preparation-algorithm/internal/config"
)

// ModelConfig describes a model: type, backbone layers, head, and
// optional task adaptation.
type ModelConfig = config.ModelConfig

// BackboneConfig describes the feature extractor layer stack.
type BackboneConfig = config.BackboneConfig

// LayerConfig describes one backbone layer.
type LayerConfig = config.LayerConfig

// HeadConfig describes the classification head: either a class count
// for single-task models or a task list for multi-task models.
type HeadConfig = config.HeadConfig

// TaskConfig names one task and its class count.
type TaskConfig = config.TaskConfig

// TaskAdaptConfig enables the task-adaptation pre-stage.
type TaskAdaptConfig = config.TaskAdaptConfig

// DataConfig describes the dataset splits of a run.
type DataConfig = config.DataConfig

// SplitConfig describes one dataset split and its transform pipeline.
type SplitConfig = config.SplitConfig

// TransformConfig describes one entry of a split's transform pipeline.
type TransformConfig = config.TransformConfig

// Options are the per-run settings a recipe passes to a stage.
type Options = config.Options

// RunConfig is the resolved configuration for one stage run.
type RunConfig = config.RunConfig

// Environment variables recognized by Options.ApplyEnvOverrides.
const (
	EnvWorkDir     = config.EnvWorkDir
	EnvAccelerator = config.EnvAccelerator
	EnvMode        = config.EnvMode
)

// LoadModelConfig reads and validates a model config YAML file.
func LoadModelConfig(path string) (*ModelConfig, error) {
	return config.LoadModelConfig(path)
}

// LoadDataConfig reads and validates a data config YAML file.
func LoadDataConfig(path string) (*DataConfig, error) {
	return config.LoadDataConfig(path)
}

// DefaultOptions returns the options applied when a field is unset.
func DefaultOptions() Options {
	return config.DefaultOptions()
}

// Resolve merges a model config, checkpoint reference, data config and
// stage options into a RunConfig, validating the inputs and applying
// defaults for unset fields.
func Resolve(model *ModelConfig, checkpoint string, data *DataConfig, opts Options) (*RunConfig, error) {
	return config.Resolve(model, checkpoint, data, opts)
}
