// Copyright 2026 The MPA Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/negvet/model-preparation-algorithm/internal/nn"
	"github.com/negvet/model-preparation-algorithm/tensor"
)

// Module is the base interface for all neural network components.
type Module = nn.Module

// Model is the interface inference stages drive. Both Classifier and
// MultiTaskClassifier satisfy it.
type Model = nn.Model

// Parameter represents a named parameter tensor.
type Parameter = nn.Parameter

// NewParameter wraps a tensor as a named parameter.
func NewParameter(name string, raw *tensor.RawTensor) *Parameter {
	return nn.NewParameter(name, raw)
}

// Layers

// Linear is a fully connected layer.
type Linear = nn.Linear

// NewLinear builds a linear layer with Xavier-initialized weights.
//
// Example:
//
//	layer := nn.NewLinear(784, 128, cpu.New())
func NewLinear(inFeatures, outFeatures int, backend tensor.Backend) *Linear {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// Activations

// ReLU is the rectified linear activation.
type ReLU = nn.ReLU

// NewReLU builds a ReLU activation layer.
func NewReLU(backend tensor.Backend) *ReLU {
	return nn.NewReLU(backend)
}

// Dropout zeroes activations with probability p during training and is
// the identity in eval mode.
type Dropout = nn.Dropout

// NewDropout creates a new dropout layer.
func NewDropout(p float32) *Dropout {
	return nn.NewDropout(p)
}

// Containers

// Sequential chains modules, feeding each output into the next module.
type Sequential = nn.Sequential

// NewSequential chains the given modules in order.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU(backend),
//	    nn.NewLinear(128, 10, backend),
//	)
func NewSequential(modules ...Module) *Sequential {
	return nn.NewSequential(modules...)
}

// Models

// Backbone is a feature extractor with forward-hook support.
type Backbone = nn.Backbone

// ForwardHook observes backbone outputs during the forward pass.
type ForwardHook = nn.ForwardHook

// NewBackbone wraps a layer stack as a backbone. A non-nil mapShape
// reshapes flat backbone outputs to [batch, C, H, W] before hooks fire.
func NewBackbone(layers *Sequential, mapShape tensor.Shape, backend tensor.Backend) *Backbone {
	return nn.NewBackbone(layers, mapShape, backend)
}

// Classifier is a single-head classification model: backbone, optional
// dropout, linear head, softmax.
type Classifier = nn.Classifier

// NewClassifier assembles a classifier. dropout may be nil.
func NewClassifier(backbone *Backbone, head *Linear, dropout *Dropout, backend tensor.Backend) *Classifier {
	return nn.NewClassifier(backbone, head, dropout, backend)
}

// TaskSpec names one task head and its class count.
type TaskSpec = nn.TaskSpec

// MultiTaskClassifier is a classification model with one linear head
// per task, sharing a single backbone.
type MultiTaskClassifier = nn.MultiTaskClassifier

// NewMultiTaskClassifier assembles a multi-task classifier. dropout may
// be nil.
func NewMultiTaskClassifier(backbone *Backbone, inFeatures int, tasks []TaskSpec, dropout *Dropout, backend tensor.Backend) *MultiTaskClassifier {
	return nn.NewMultiTaskClassifier(backbone, inFeatures, tasks, dropout, backend)
}

// Checkpoints

// CheckpointInfo is the metadata stored alongside model weights.
type CheckpointInfo = nn.CheckpointInfo

// SaveCheckpoint writes the module's state dict and metadata to path.
func SaveCheckpoint(path string, model Module, modelType string, classes []string, metadata map[string]string) error {
	return nn.SaveCheckpoint(path, model, modelType, classes, metadata)
}

// LoadCheckpoint restores a module's state dict from path and returns
// the stored metadata.
func LoadCheckpoint(path string, model Module) (*CheckpointInfo, error) {
	return nn.LoadCheckpoint(path, model)
}

// Weight initialization

// Xavier returns a Float32 tensor initialized with Xavier/Glorot
// uniform values for the given fan-in and fan-out.
func Xavier(fanIn, fanOut int, shape tensor.Shape) *tensor.RawTensor {
	return nn.Xavier(fanIn, fanOut, shape)
}

// Zeros returns a zero-initialized Float32 tensor.
func Zeros(shape tensor.Shape) *tensor.RawTensor {
	return nn.Zeros(shape)
}
