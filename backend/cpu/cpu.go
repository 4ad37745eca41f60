// Copyright 2026 The MPA Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the CPU compute backend.
package cpu

import (
	internalcpu "github.com/negvet/model-preparation-algorithm/internal/backend/cpu"
	"github.com/negvet/model-preparation-algorithm/tensor"
)

// Backend runs tensor operations on the CPU in pure Go, with
// row-parallel loops for the larger ones. It needs no hardware or
// native libraries and is the fallback when no GPU is present.
type Backend = internalcpu.Backend

// The backend must satisfy the public compute interface.
var _ tensor.Backend = (*Backend)(nil)

// New returns a ready CPU backend. It never fails and needs no cleanup.
//
//	backend := cpu.New()
//	x, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, backend.Device())
//	_ = backend.ReLU(x)
func New() *Backend {
	return internalcpu.New()
}
