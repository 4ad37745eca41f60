// Package webgpu runs tensor operations on the GPU through WebGPU, using
// the zero-CGO github.com/go-webgpu/webgpu bindings.
//
// MatMul, Transpose2D, equal-shape element-wise operations, ReLU and
// row-wise Softmax execute as WGSL compute kernels. The remaining
// operations (Scale, Argmax, MeanDim, broadcast Add, higher-rank Softmax)
// delegate to the CPU backend and return CPU-tagged tensors.
package webgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/negvet/model-preparation-algorithm/internal/backend/cpu"
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Backend implements tensor.Backend on a WebGPU device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Compiled kernels keyed by shader name.
	kernels map[string]kernel
	mu      sync.RWMutex

	info *wgpu.AdapterInfoGo

	// Fallback for operations without a kernel.
	cpu *cpu.Backend
}

// New acquires the default high-performance adapter and builds a backend
// on it. Initialization panics inside wgpu when the native library is
// missing; that panic is converted to an error here.
func New() (backend *Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: wgpu runtime not available: %v", r)
		}
	}()

	instance, _ := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", err)
	}
	info, _ := adapter.GetInfo()

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", err)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, errors.New("webgpu: no queue on device")
	}

	return &Backend{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		kernels:  make(map[string]kernel),
		info:     info,
		cpu:      cpu.New(),
	}, nil
}

// Release frees every GPU resource the backend holds. The backend must not
// be used afterwards.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range b.kernels {
		k.pipeline.Release()
		k.module.Release()
	}
	b.kernels = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name, including the adapter when known.
func (b *Backend) Name() string {
	if b.info != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.info.Device, b.info.Vendor)
	}
	return "WebGPU"
}

// Device reports tensor.WebGPU.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// AdapterInfo returns the adapter description reported by wgpu.
func (b *Backend) AdapterInfo() *wgpu.AdapterInfoGo {
	return b.info
}

// IsAvailable reports whether a WebGPU adapter can be acquired on this
// system.
func IsAvailable() (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	instance, _ := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// ListAdapters returns information about available GPU adapters. The
// WebGPU spec has no adapter enumeration, so at most the default adapter
// is reported.
func ListAdapters() (adapters []*wgpu.AdapterInfoGo, err error) {
	defer func() {
		if r := recover(); r != nil {
			adapters = nil
			err = fmt.Errorf("webgpu: wgpu runtime not available: %v", r)
		}
	}()

	instance, _ := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, reqErr := instance.RequestAdapter(nil)
	if reqErr != nil {
		return nil, fmt.Errorf("webgpu: no adapters available: %w", reqErr)
	}
	defer adapter.Release()

	info, _ := adapter.GetInfo()
	return []*wgpu.AdapterInfoGo{info}, nil
}

// MatMul computes [M, K] @ [K, N] -> [M, N] on GPU.
func (b *Backend) MatMul(a, x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runMatMul(a, x)
	if err != nil {
		panic("webgpu: MatMul: " + err.Error())
	}
	return result
}

// Add computes element-wise a + b. Equal shapes run on GPU; the broadcast
// form (bias addition) falls back to the CPU backend.
func (b *Backend) Add(a, x *tensor.RawTensor) *tensor.RawTensor {
	if !a.Shape().Equal(x.Shape()) {
		return b.cpu.Add(a, x)
	}
	result, err := b.runEwise(a, x, opAdd)
	if err != nil {
		panic("webgpu: Add: " + err.Error())
	}
	return result
}

// Mul computes element-wise a * b for equal shapes on GPU.
func (b *Backend) Mul(a, x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runEwise(a, x, opMul)
	if err != nil {
		panic("webgpu: Mul: " + err.Error())
	}
	return result
}

// Scale multiplies every element by a scalar on the CPU.
func (b *Backend) Scale(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return b.cpu.Scale(x, s)
}

// ReLU applies max(0, x) element-wise on GPU.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runReLU(x)
	if err != nil {
		panic("webgpu: ReLU: " + err.Error())
	}
	return result
}

// Softmax normalizes along dim into a probability distribution. The 2D
// row-wise case runs on GPU; everything else falls back to the CPU backend.
func (b *Backend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(x.Shape()) != 2 || (dim != 1 && dim != -1) {
		return b.cpu.Softmax(x, dim)
	}
	result, err := b.runSoftmax(x)
	if err != nil {
		panic("webgpu: Softmax: " + err.Error())
	}
	return result
}

// Argmax returns the Int64 indices of the maximum along dim on the CPU.
func (b *Backend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.cpu.Argmax(x, dim)
}

// MeanDim averages along dim on the CPU.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.cpu.MeanDim(x, dim, keepDim)
}

// Transpose2D swaps the two dimensions of a matrix on GPU.
func (b *Backend) Transpose2D(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runTranspose(x)
	if err != nil {
		panic("webgpu: Transpose2D: " + err.Error())
	}
	return result
}

// Reshape returns a copy with a new shape of equal element count. The data
// never leaves host memory, so no GPU work is involved.
func (b *Backend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if x.NumElements() != shape.NumElements() {
		panic(fmt.Sprintf("webgpu: Reshape: cannot reshape %v into %v", x.Shape(), shape))
	}
	result, err := tensor.NewRaw(shape, x.DType(), tensor.WebGPU)
	if err != nil {
		panic("webgpu: Reshape: " + err.Error())
	}
	copy(result.Data(), x.Data())
	return result
}
