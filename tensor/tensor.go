// Copyright 2026 The MPA Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the tensor substrate of the
// model preparation pipeline.
//
// The package exports the types exchanged between datasets, models and
// checkpoints: RawTensor, the reference-counted n-dimensional array;
// Backend, the interface compute devices implement; and the Shape,
// DataType and Device definitions.
//
// Example:
//
//	backend := cpu.New()
//	x, _ := tensor.FromFloat32s([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend.Device())
//	y := backend.ReLU(x)
package tensor

import (
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// DataType identifies the element type of a tensor.
type DataType = tensor.DataType

// Element types.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
)

// Device identifies where tensor data lives.
type Device = tensor.Device

// Devices.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape holds tensor dimensions, outermost first.
type Shape = tensor.Shape

// NewRaw allocates a zero-initialized tensor with the given shape, dtype
// and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromFloat32s builds a Float32 tensor from a slice. The data is copied.
//
// Example:
//
//	x, err := tensor.FromFloat32s([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.CPU)
func FromFloat32s(data []float32, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromFloat32s(data, shape, device)
}
