package nn

import (
	"fmt"
	"strings"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Sequential chains modules so each output feeds the next input.
type Sequential struct {
	modules []Module
}

// NewSequential builds a Sequential from the given modules.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{modules: modules}
}

// Forward applies every module in order.
func (s *Sequential) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns the parameters of all modules in order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Add appends a module to the end of the chain.
func (s *Sequential) Add(module Module) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules.
func (s *Sequential) Len() int { return len(s.modules) }

// Module returns the module at index. Panics when out of bounds.
func (s *Sequential) Module(index int) Module {
	if index < 0 || index >= len(s.modules) {
		panic(fmt.Sprintf("Sequential.Module: index %d out of range [0, %d)", index, len(s.modules)))
	}
	return s.modules[index]
}

// StateDict returns all module parameters keyed by module index, as in
// "0.weight", "2.bias".
func (s *Sequential) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for i, module := range s.modules {
		for name, raw := range module.StateDict() {
			stateDict[fmt.Sprintf("%d.%s", i, name)] = raw
		}
	}
	return stateDict
}

// LoadStateDict routes index-prefixed entries to the matching module.
// Modules with no entries in the dict keep their current parameters.
func (s *Sequential) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for i, module := range s.modules {
		prefix := fmt.Sprintf("%d.", i)
		sub := make(map[string]*tensor.RawTensor)
		for key, raw := range stateDict {
			if rest, ok := strings.CutPrefix(key, prefix); ok && rest != "" {
				sub[rest] = raw
			}
		}
		if len(sub) > 0 {
			if err := module.LoadStateDict(sub); err != nil {
				return fmt.Errorf("module %d: %w", i, err)
			}
		}
	}
	return nil
}
