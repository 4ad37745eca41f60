// Copyright 2026 The MPA Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package stage provides the public API for running pipeline stages.
//
// Recipes drive stages by name through the registry: build a runner,
// hand it the model config, checkpoint, data config and per-run
// options, and switch on the concrete Result type that comes back.
//
// Example:
//
//	runner, err := stage.Build("infer", logger, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := runner.Run(ctx, modelCfg, "model.mpac", dataCfg, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	switch r := result.(type) {
//	case stage.Skipped:
//	    // mode gate rejected the run
//	case stage.PreStageResult:
//	    // soft labels persisted at r.Path
//	case stage.InferenceResult:
//	    // r.Outputs holds predictions and instrumentation
//	}
package stage

import (
	"go.uber.org/zap"

	"github.com/negvet/model-preparation-algorithm/internal/stage"
)

// Result is the outcome of a stage run.
type Result = stage.Result

// Skipped reports that the stage declined to run in the given mode.
type Skipped = stage.Skipped

// PreStageResult carries the path of the persisted soft-label artifact
// written by the task-adaptation pre-stage.
type PreStageResult = stage.PreStageResult

// InferenceResult carries the in-memory output bundle of a normal run.
type InferenceResult = stage.InferenceResult

// Outputs bundles the per-sample results of the forward loop. The three
// slices always have equal length, one entry per dataset sample in
// iteration order.
type Outputs = stage.Outputs

// Runner is what the stage registry serves.
type Runner = stage.Runner

// Progress reports forward-loop progress after each batch.
type Progress = stage.Progress

// Factory builds a stage runner with its logger and progress callback.
type Factory = stage.Factory

// InferStage runs a forward-only pass over the resolved inference split.
type InferStage = stage.InferStage

// NewInferStage creates the stage that handles inference runs. With no
// explicit modes it participates in "train", "infer" and "eval" runs.
func NewInferStage(logger *zap.Logger, progress Progress, modes ...string) *InferStage {
	return stage.NewInferStage(logger, progress, modes...)
}

// Register adds a stage factory under the given name.
func Register(name string, factory Factory) error {
	return stage.Register(name, factory)
}

// Build constructs the stage registered under name.
func Build(name string, logger *zap.Logger, progress Progress) (Runner, error) {
	return stage.Build(name, logger, progress)
}

// Names returns the registered stage names, sorted.
func Names() []string {
	return stage.Names()
}
