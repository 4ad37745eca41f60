package tensor

import (
	"strings"
	"testing"
)

// Shape tests

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{2, 3, 4}, 24},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("Shape%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{2, 3}).Validate(); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
	if err := (Shape{2, 0}).Validate(); err == nil {
		t.Error("zero dimension accepted")
	}
	if err := (Shape{-1, 3}).Validate(); err == nil {
		t.Error("negative dimension accepted")
	}
}

func TestShapeEqual(t *testing.T) {
	if !(Shape{2, 3}).Equal(Shape{2, 3}) {
		t.Error("equal shapes reported unequal")
	}
	if (Shape{2, 3}).Equal(Shape{3, 2}) {
		t.Error("different shapes reported equal")
	}
	if (Shape{2, 3}).Equal(Shape{2, 3, 1}) {
		t.Error("different ranks reported equal")
	}
}

func TestShapeComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Fatalf("ComputeStrides() = %v, want %v", strides, want)
		}
	}
}

func TestShapeCloneIsIndependent(t *testing.T) {
	s := Shape{2, 3}
	c := s.Clone()
	c[0] = 99
	if s[0] != 2 {
		t.Error("Clone shares backing array with original")
	}
}

// DataType tests

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		want  int
	}{
		{Float32, 4},
		{Float64, 8},
		{Int32, 4},
		{Int64, 8},
		{Uint8, 1},
	}
	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.want {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.want)
		}
	}
}

// RawTensor tests

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if !raw.Shape().Equal(Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != Float32 {
		t.Errorf("DType() = %s, want float32", raw.DType())
	}
	if raw.Device() != CPU {
		t.Errorf("Device() = %s, want CPU", raw.Device())
	}
	if raw.NumElements() != 6 {
		t.Errorf("NumElements() = %d, want 6", raw.NumElements())
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize() = %d, want 24", raw.ByteSize())
	}

	// Fresh tensors are zero-initialized.
	for i, v := range raw.AsFloat32() {
		if v != 0 {
			t.Fatalf("element %d = %v, want 0", i, v)
		}
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{2, -1}, Float32, CPU); err == nil {
		t.Error("invalid shape accepted")
	}
}

func TestFromFloat32s(t *testing.T) {
	raw, err := FromFloat32s([]float32{1, 2, 3, 4}, Shape{2, 2}, CPU)
	if err != nil {
		t.Fatalf("FromFloat32s failed: %v", err)
	}
	got := raw.AsFloat32()
	for i, want := range []float32{1, 2, 3, 4} {
		if got[i] != want {
			t.Errorf("element %d = %v, want %v", i, got[i], want)
		}
	}
}

func TestFromFloat32sCopiesData(t *testing.T) {
	src := []float32{1, 2}
	raw, _ := FromFloat32s(src, Shape{2}, CPU)
	src[0] = 99
	if raw.AsFloat32()[0] != 1 {
		t.Error("FromFloat32s must copy the input slice")
	}
}

func TestFromFloat32sLengthMismatch(t *testing.T) {
	if _, err := FromFloat32s([]float32{1, 2, 3}, Shape{2, 2}, CPU); err == nil {
		t.Error("length mismatch accepted")
	}
}

func TestAsFloat32WrongDType(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Int64, CPU)
	defer func() {
		if recover() == nil {
			t.Error("AsFloat32 on Int64 tensor did not panic")
		}
	}()
	raw.AsFloat32()
}

func TestAsUint8ZeroCopy(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Uint8, CPU)
	raw.AsUint8()[0] = 255
	if raw.AsUint8()[0] != 255 {
		t.Error("AsUint8 should return a zero-copy slice")
	}
}

func TestFloat32Row(t *testing.T) {
	raw, _ := FromFloat32s([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, CPU)

	row := raw.Float32Row(1)
	for i, want := range []float32{4, 5, 6} {
		if row[i] != want {
			t.Fatalf("Float32Row(1) = %v, want [4 5 6]", row)
		}
	}

	// The row is a copy, not a view.
	row[0] = 99
	if raw.AsFloat32()[3] != 4 {
		t.Error("Float32Row must copy the row")
	}
}

func TestFloat32RowOutOfBounds(t *testing.T) {
	raw, _ := FromFloat32s([]float32{1, 2}, Shape{1, 2}, CPU)
	defer func() {
		if recover() == nil {
			t.Error("out-of-bounds row did not panic")
		}
	}()
	raw.Float32Row(1)
}

func TestCloneSharesBuffer(t *testing.T) {
	raw, _ := FromFloat32s([]float32{1, 2, 3, 4}, Shape{2, 2}, CPU)
	clone := raw.Clone()

	raw.AsFloat32()[0] = 42
	if clone.AsFloat32()[0] != 42 {
		t.Error("Clone should share the buffer with the original")
	}

	// Releasing the original must keep the clone's buffer alive.
	raw.Release()
	if clone.AsFloat32()[3] != 4 {
		t.Error("buffer freed while a clone still references it")
	}
	clone.Release()
}

func TestCloneShapeIsIndependent(t *testing.T) {
	raw, _ := NewRaw(Shape{2, 2}, Float32, CPU)
	clone := raw.Clone()
	clone.Shape()[0] = 99
	if raw.Shape()[0] != 2 {
		t.Error("Clone shares the shape slice with the original")
	}
}

func TestString(t *testing.T) {
	raw, _ := NewRaw(Shape{2, 3}, Float32, CPU)
	s := raw.String()
	if !strings.Contains(s, "float32") || !strings.Contains(s, "CPU") {
		t.Errorf("String() = %q, want dtype and device in it", s)
	}
}

func TestDeviceString(t *testing.T) {
	if CPU.String() != "CPU" {
		t.Errorf("CPU.String() = %q", CPU.String())
	}
	if WebGPU.String() != "WebGPU" {
		t.Errorf("WebGPU.String() = %q", WebGPU.String())
	}
}
