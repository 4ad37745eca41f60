package nn

import (
	"fmt"
	"math/rand"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Dropout randomly zeroes elements of the input during training.
//
// Each element is zeroed with probability p, and the surviving elements
// are scaled by 1/(1-p) so the expected activation stays constant
// (inverted dropout).
//
// In evaluation mode Forward is the identity, which is the mode
// inference stages run models in.
type Dropout struct {
	p        float32
	training bool
}

// NewDropout creates a Dropout module with drop probability p in [0, 1).
func NewDropout(p float32) *Dropout {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("Dropout: probability must be in [0, 1), got %v", p))
	}
	return &Dropout{p: p, training: true}
}

// SetTraining switches between training and evaluation behavior.
func (d *Dropout) SetTraining(training bool) {
	d.training = training
}

// Training reports whether the module is in training mode.
func (d *Dropout) Training() bool {
	return d.training
}

// Forward applies dropout in training mode and is the identity otherwise.
func (d *Dropout) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	if !d.training || d.p == 0 {
		return input
	}

	if input.DType() != tensor.Float32 {
		panic(fmt.Sprintf("Dropout.Forward: only float32 is supported, got %s", input.DType()))
	}

	result, err := tensor.NewRaw(input.Shape().Clone(), tensor.Float32, input.Device())
	if err != nil {
		panic(err)
	}

	scale := 1.0 / (1.0 - d.p)
	src := input.AsFloat32()
	dst := result.AsFloat32()
	for i := range src {
		//nolint:gosec // Using math/rand for dropout masks (not security-critical)
		if rand.Float32() >= d.p {
			dst[i] = src[i] * scale
		}
	}

	return result
}

// Parameters returns an empty slice (Dropout has no parameters).
func (d *Dropout) Parameters() []*Parameter {
	return nil
}

// StateDict returns an empty map (Dropout has no parameters).
func (d *Dropout) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op (Dropout has no parameters).
func (d *Dropout) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}
