package nn

import (
	"fmt"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Linear is a fully connected layer computing y = x @ W.T + b.
//
// The weight has shape [out_features, in_features] and the bias
// [out_features], matching the state-dict layout checkpoints use. Fresh
// layers start from Xavier weights and zero biases; checkpoint loads
// overwrite both.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features]
	backend     tensor.Backend
}

// NewLinear creates a Linear layer with freshly initialized parameters.
func NewLinear(inFeatures, outFeatures int, backend tensor.Backend) *Linear {
	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures})),
		bias:        NewParameter("bias", Zeros(tensor.Shape{outFeatures})),
		backend:     backend,
	}
}

// Forward maps [batch, in_features] to [batch, out_features].
func (l *Linear) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: input must be [batch, features], got shape %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: input has %d features, layer wants %d", shape[1], l.inFeatures))
	}

	wT := l.backend.Transpose2D(l.weight.Raw())
	output := l.backend.MatMul(input, wT)
	if l.bias != nil {
		output = l.backend.Add(output, l.bias.Raw())
	}
	return output
}

// Parameters returns the weight followed by the bias, when present.
func (l *Linear) Parameters() []*Parameter {
	if l.bias == nil {
		return []*Parameter{l.weight}
	}
	return []*Parameter{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter { return l.weight }

// Bias returns the bias parameter.
func (l *Linear) Bias() *Parameter { return l.bias }

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int { return l.inFeatures }

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int { return l.outFeatures }

// StateDict returns the layer parameters keyed "weight" and "bias".
func (l *Linear) StateDict() map[string]*tensor.RawTensor {
	stateDict := map[string]*tensor.RawTensor{"weight": l.weight.Raw()}
	if l.bias != nil {
		stateDict["bias"] = l.bias.Raw()
	}
	return stateDict
}

// LoadStateDict restores the layer parameters, validating shape and dtype.
func (l *Linear) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	weightRaw, ok := stateDict["weight"]
	if !ok {
		return fmt.Errorf("state dict has no weight entry")
	}
	if err := l.weight.Load(weightRaw); err != nil {
		return err
	}

	if l.bias != nil {
		biasRaw, ok := stateDict["bias"]
		if !ok {
			return fmt.Errorf("state dict has no bias entry")
		}
		if err := l.bias.Load(biasRaw); err != nil {
			return err
		}
	}
	return nil
}
