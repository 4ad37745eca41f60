package nn

import (
	"fmt"
	"sync"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// ForwardHook observes the output of a module during Forward.
//
// Hooks must not mutate the tensor they receive; captures that outlive
// the forward call should Clone it.
type ForwardHook func(output *tensor.RawTensor)

// Backbone is the feature extractor of a classifier.
//
// It wraps a Sequential of layers and optionally reshapes the final
// activation into a spatial feature map [batch, C, H, W] when the
// backbone config declares a map shape. Downstream consumers (the
// classifier head, feature and saliency captures) observe that output.
//
// Hooks registered with RegisterForwardHook fire after every Forward
// with the backbone output, in registration order. The returned remove
// function detaches the hook; removing twice is a no-op.
type Backbone struct {
	layers   *Sequential
	mapShape tensor.Shape // optional [C, H, W] view of the output
	backend  tensor.Backend

	mu     sync.Mutex
	hooks  []registeredHook
	nextID int
}

type registeredHook struct {
	id int
	fn ForwardHook
}

// NewBackbone creates a backbone from a layer stack.
//
// mapShape may be nil for backbones that produce flat [batch, features]
// outputs. When set it must be [C, H, W] and match the layer stack's
// output width (C*H*W).
func NewBackbone(layers *Sequential, mapShape tensor.Shape, backend tensor.Backend) *Backbone {
	var ms tensor.Shape
	if mapShape != nil {
		if len(mapShape) != 3 {
			panic(fmt.Sprintf("NewBackbone: map shape must be [C, H, W], got %v", mapShape))
		}
		ms = mapShape.Clone()
	}
	return &Backbone{
		layers:   layers,
		mapShape: ms,
		backend:  backend,
	}
}

// Forward runs the layer stack and notifies registered hooks.
//
// Output shape is [batch, C, H, W] when a map shape is configured,
// [batch, features] otherwise.
func (b *Backbone) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	output := b.layers.Forward(input)

	if len(b.mapShape) == 3 {
		batch := output.Shape()[0]
		want := b.mapShape.NumElements()
		if got := output.NumElements() / batch; got != want {
			panic(fmt.Sprintf("Backbone.Forward: output width %d does not match map shape %v", got, b.mapShape))
		}
		output = b.backend.Reshape(output, tensor.Shape{batch, b.mapShape[0], b.mapShape[1], b.mapShape[2]})
	}

	b.mu.Lock()
	hooks := make([]registeredHook, len(b.hooks))
	copy(hooks, b.hooks)
	b.mu.Unlock()

	for _, h := range hooks {
		h.fn(output)
	}

	return output
}

// RegisterForwardHook attaches a hook to the backbone output.
//
// The returned function removes the hook. It is safe to call from any
// goroutine and safe to call more than once.
func (b *Backbone) RegisterForwardHook(fn ForwardHook) (remove func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.hooks = append(b.hooks, registeredHook{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, h := range b.hooks {
			if h.id == id {
				b.hooks = append(b.hooks[:i], b.hooks[i+1:]...)
				return
			}
		}
	}
}

// NumHooks returns the number of currently registered hooks.
func (b *Backbone) NumHooks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hooks)
}

// MapShape returns the configured [C, H, W] output view, or nil.
func (b *Backbone) MapShape() tensor.Shape {
	if b.mapShape == nil {
		return nil
	}
	return b.mapShape.Clone()
}

// Parameters returns the parameters of the layer stack.
func (b *Backbone) Parameters() []*Parameter {
	return b.layers.Parameters()
}

// StateDict returns the layer stack's state dictionary.
func (b *Backbone) StateDict() map[string]*tensor.RawTensor {
	return b.layers.StateDict()
}

// LoadStateDict loads the layer stack's parameters.
func (b *Backbone) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return b.layers.LoadStateDict(stateDict)
}
