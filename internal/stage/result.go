package stage

import (
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Result is the outcome of a stage run. Run returns exactly one
// concrete variant: Skipped when the mode gate rejects the run,
// otherwise PreStageResult or InferenceResult depending on which
// branch executed.
type Result interface {
	isResult()
}

// Skipped reports that the stage declined to run in the given mode.
type Skipped struct {
	Mode string
}

func (Skipped) isResult() {}

// PreStageResult carries the path of the persisted soft-label artifact
// written by the task-adaptation pre-stage.
type PreStageResult struct {
	Path string
}

func (PreStageResult) isResult() {}

// InferenceResult carries the in-memory output bundle of a normal run.
// WorkDir is the resolved run directory, for callers that persist
// artifacts alongside the run.
type InferenceResult struct {
	WorkDir string
	Outputs *Outputs
}

func (InferenceResult) isResult() {}

// Outputs bundles the per-sample results of the forward loop.
//
// The three slices always have equal length, one entry per dataset
// sample in iteration order. FeatureVectors and SaliencyMaps hold nil
// placeholders when the matching dump flag was off.
type Outputs struct {
	Predictions    [][]float32
	FeatureVectors []*tensor.RawTensor
	SaliencyMaps   []*tensor.RawTensor
}
