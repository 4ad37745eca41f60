// Copyright 2026 The MPA Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/negvet/model-preparation-algorithm/tensor"
)

func TestNewRaw(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if !raw.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		t.Errorf("DType() = %v, want Float32", raw.DType())
	}
}

func TestFromFloat32s(t *testing.T) {
	raw, err := tensor.FromFloat32s([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
	if err != nil {
		t.Fatalf("FromFloat32s failed: %v", err)
	}
	if raw.AsFloat32()[3] != 4 {
		t.Errorf("element 3 = %v, want 4", raw.AsFloat32()[3])
	}
}

func TestDataTypeSizes(t *testing.T) {
	tests := []struct {
		dtype tensor.DataType
		want  int
	}{
		{tensor.Float32, 4},
		{tensor.Float64, 8},
		{tensor.Int32, 4},
		{tensor.Int64, 8},
		{tensor.Uint8, 1},
	}
	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.want {
			t.Errorf("%v.Size() = %d, want %d", tt.dtype, got, tt.want)
		}
	}
}

func TestDeviceNames(t *testing.T) {
	if tensor.CPU.String() != "CPU" {
		t.Errorf("CPU.String() = %q", tensor.CPU.String())
	}
	if tensor.WebGPU.String() != "WebGPU" {
		t.Errorf("WebGPU.String() = %q", tensor.WebGPU.String())
	}
}
