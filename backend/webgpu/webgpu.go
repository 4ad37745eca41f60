// Copyright 2026 The MPA Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated tensor
// operations.
//
// WebGPU is a cross-platform graphics and compute API; the backend runs
// matrix multiplication, transposition, softmax and the element-wise
// operations as compute shaders and falls back to the CPU backend for
// the rest.
//
// Example:
//
//	import (
//	    "github.com/negvet/model-preparation-algorithm/backend/cpu"
//	    "github.com/negvet/model-preparation-algorithm/backend/webgpu"
//	    "github.com/negvet/model-preparation-algorithm/tensor"
//	)
//
//	func main() {
//	    var backend tensor.Backend
//	    if webgpu.IsAvailable() {
//	        gpu, err := webgpu.New()
//	        if err != nil {
//	            log.Fatal(err)
//	        }
//	        defer gpu.Release()
//	        backend = gpu
//	    } else {
//	        backend = cpu.New()
//	    }
//	    _ = backend
//	}
package webgpu

import (
	internalwebgpu "github.com/negvet/model-preparation-algorithm/internal/backend/webgpu"
	"github.com/negvet/model-preparation-algorithm/tensor"
)

// Backend executes tensor operations on a WebGPU device.
type Backend = internalwebgpu.Backend

// The backend must satisfy the public compute interface.
var _ tensor.Backend = (*Backend)(nil)

// New acquires a GPU adapter and returns a ready backend. Call Release
// when done to free GPU resources. Initialization fails with an error
// when no compatible GPU or native library is present.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU adapter can be acquired, which
// makes graceful fallback to the CPU backend cheap to implement.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
