package nn

import (
	"fmt"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Parameter is a named parameter tensor of a module, typically a weight or
// bias. Checkpoint loads mutate the tensor in place rather than replacing
// it, so views handed out earlier stay valid.
type Parameter struct {
	name string
	raw  *tensor.RawTensor
}

// NewParameter wraps an initialized tensor as a named parameter.
func NewParameter(name string, raw *tensor.RawTensor) *Parameter {
	return &Parameter{name: name, raw: raw}
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// Raw returns the parameter tensor.
func (p *Parameter) Raw() *tensor.RawTensor { return p.raw }

// Load copies raw into the parameter after validating shape and dtype.
func (p *Parameter) Load(raw *tensor.RawTensor) error {
	if !raw.Shape().Equal(p.raw.Shape()) {
		return fmt.Errorf("%s: cannot load shape %v into %v", p.name, raw.Shape(), p.raw.Shape())
	}
	if raw.DType() != p.raw.DType() {
		return fmt.Errorf("%s: cannot load %s into %s", p.name, raw.DType(), p.raw.DType())
	}
	copy(p.raw.Data(), raw.Data())
	return nil
}
