// Copyright 2026 The MPA Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for the neural network modules the
// model preparation pipeline assembles classifiers from.
//
// Layers (Linear, ReLU, Dropout) stack into a Sequential, a Backbone
// exposes the feature extractor to forward hooks, and Classifier or
// MultiTaskClassifier sits on top. SaveCheckpoint and LoadCheckpoint
// persist model state. Every module operates on *tensor.RawTensor and
// dispatches through the tensor.Backend it was constructed with.
//
// Example:
//
//	backend := cpu.New()
//	backbone := nn.NewBackbone(nn.NewSequential(
//	    nn.NewLinear(16, 8, backend),
//	    nn.NewReLU(backend),
//	), nil, backend)
//	model := nn.NewClassifier(backbone, nn.NewLinear(8, 3, backend), nil, backend)
//	model.Eval()
//	probs := model.Forward(features) // [batch, 3], rows sum to 1
package nn
