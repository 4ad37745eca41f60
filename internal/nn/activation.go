package nn

import (
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// ReLU applies max(0, x) element-wise. It has no parameters.
type ReLU struct {
	backend tensor.Backend
}

// NewReLU creates a ReLU activation module.
func NewReLU(backend tensor.Backend) *ReLU {
	return &ReLU{backend: backend}
}

// Forward applies the activation.
func (r *ReLU) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	return r.backend.ReLU(input)
}

// Parameters returns nil; ReLU is parameter-free.
func (r *ReLU) Parameters() []*Parameter { return nil }

// StateDict returns an empty map.
func (r *ReLU) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op.
func (r *ReLU) LoadStateDict(map[string]*tensor.RawTensor) error { return nil }
