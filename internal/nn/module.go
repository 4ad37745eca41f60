// Package nn implements the neural network modules used by inference stages.
//
// Models are assembled from small pieces: Linear layers and ReLU
// activations stacked in a Sequential, a Backbone that exposes the
// feature extractor to forward hooks, and the Classifier and
// MultiTaskClassifier heads on top. Parameters carry names so state
// dictionaries round-trip through checkpoints.
//
// Modules are not generic over the backend: model topology is decided at
// runtime from recipe configs, so every module operates on *tensor.RawTensor
// and dispatches through a tensor.Backend injected at construction.
package nn

import (
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Module is the interface every network component implements. Modules
// compose into complete models through Sequential and the classifier types.
type Module interface {
	// Forward computes the module output. Shape expectations are
	// per-module; Linear wants [batch, in_features].
	Forward(input *tensor.RawTensor) *tensor.RawTensor

	// Parameters returns the module's parameters, nested modules included.
	// Parameter-free modules return nil.
	Parameters() []*Parameter

	// StateDict returns a map of parameter names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict validates entries against the module's expected shapes
	// and dtypes, then copies them into place.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
