package tensor

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device identifies where a tensor's memory lives.
type Device int

// Devices a tensor can be tagged with.
const (
	CPU Device = iota
	WebGPU
)

// String names the device for logs.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted shared buffer. Clones share the buffer
// until one of them is released, which keeps hook captures and checkpoint
// loads cheap.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // guards deallocation
}

func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
	}
}

// RawTensor is the low-level tensor representation exchanged between the data
// layer, the models, and the checkpoint store.
type RawTensor struct {
	buffer *tensorBuffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
	offset int
}

// NewRaw allocates a zero-initialized tensor of the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		buffer: newTensorBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// FromFloat32s creates a Float32 RawTensor from a slice. The data is copied.
func FromFloat32s(data []float32, shape Shape, device Device) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, Float32, device)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

// Shape returns the dimensions, outermost first.
func (r *RawTensor) Shape() Shape { return r.shape }

// Strides returns the element stride of each dimension.
func (r *RawTensor) Strides() []int { return r.stride }

// DType returns the element type.
func (r *RawTensor) DType() DataType { return r.dtype }

// Device returns the device tag.
func (r *RawTensor) Device() Device { return r.device }

// NumElements returns the element count across all dimensions.
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// ByteSize returns the size of the backing data in bytes.
func (r *RawTensor) ByteSize() int { return r.NumElements() * r.dtype.Size() }

// Data returns the raw byte slice backing the tensor. Mutations are visible
// to every clone sharing the buffer.
func (r *RawTensor) Data() []byte {
	return r.buffer.data[r.offset:]
}

// view reinterprets the buffer as a typed slice after checking the dtype tag.
func view[T any](r *RawTensor, want DataType) []T {
	if r.dtype != want {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, want))
	}
	data := r.buffer.data[r.offset:]
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsFloat32 views the data as []float32. Panics unless the dtype is Float32.
func (r *RawTensor) AsFloat32() []float32 { return view[float32](r, Float32) }

// AsFloat64 views the data as []float64. Panics unless the dtype is Float64.
func (r *RawTensor) AsFloat64() []float64 { return view[float64](r, Float64) }

// AsInt32 views the data as []int32. Panics unless the dtype is Int32.
func (r *RawTensor) AsInt32() []int32 { return view[int32](r, Int32) }

// AsInt64 views the data as []int64. Panics unless the dtype is Int64.
func (r *RawTensor) AsInt64() []int64 { return view[int64](r, Int64) }

// AsUint8 views the data as []uint8. Panics unless the dtype is Uint8.
func (r *RawTensor) AsUint8() []uint8 { return view[uint8](r, Uint8) }

// Float32Row returns a copy of row i of a 2D Float32 tensor.
func (r *RawTensor) Float32Row(i int) []float32 {
	if len(r.shape) != 2 {
		panic(fmt.Sprintf("Float32Row requires a 2D tensor, got shape %v", r.shape))
	}
	if i < 0 || i >= r.shape[0] {
		panic(fmt.Sprintf("row %d out of bounds for shape %v", i, r.shape))
	}
	width := r.shape[1]
	row := make([]float32, width)
	copy(row, r.AsFloat32()[i*width:(i+1)*width])
	return row
}

// Clone creates a shallow copy of the RawTensor. The buffer is shared with
// reference counting, so clones are cheap until released.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: slices.Clone(r.stride),
		dtype:  r.dtype,
		device: r.device,
		offset: r.offset,
	}
}

// Release drops this tensor's reference; the buffer is freed once the
// last clone releases.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// String summarizes the tensor for logs.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor[%s]%v on %s", r.dtype, r.shape, r.device)
}
