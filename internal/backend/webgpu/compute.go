package webgpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// kernel pairs a compiled pipeline with its shader module so Release can
// free both.
type kernel struct {
	module   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
}

// pipeline returns the compute pipeline for a named shader, compiling and
// caching it on first use.
func (b *Backend) pipeline(name string) (*wgpu.ComputePipeline, error) {
	b.mu.RLock()
	k, ok := b.kernels[name]
	b.mu.RUnlock()
	if ok {
		return k.pipeline, nil
	}

	code, ok := shaderSources[name]
	if !ok {
		return nil, fmt.Errorf("unknown shader %q", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if k, ok := b.kernels[name]; ok {
		return k.pipeline, nil
	}
	module := b.device.CreateShaderModuleWGSL(code)
	k = kernel{
		module:   module,
		pipeline: b.device.CreateComputePipelineSimple(nil, module, "main"),
	}
	b.kernels[name] = k
	return k.pipeline, nil
}

// upload copies host data into a new GPU buffer through the
// mapped-at-creation range.
func (b *Backend) upload(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	ptr := buf.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice over the mapped range, no extra copy
	copy(unsafe.Slice((*byte)(ptr), size), data)
	buf.Unmap()
	return buf
}

// readback copies a storage buffer into host memory through a MapRead
// staging buffer. Storage buffers cannot be mapped directly.
func (b *Backend) readback(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}
	defer staging.Unmap()

	ptr := staging.GetMappedRange(0, size)
	out := make([]byte, size)
	//nolint:gosec // unsafe.Slice over the mapped range, no extra copy
	copy(out, unsafe.Slice((*byte)(ptr), size))
	return out, nil
}

// gpuTask describes a single kernel dispatch: input tensors in binding
// order, the packed uniform parameters, the output byte size and the
// workgroup grid. Bindings are assigned inputs first, then the output,
// then the parameter block, matching the WGSL in shaders.go.
type gpuTask struct {
	shader  string
	inputs  []*tensor.RawTensor
	params  []byte
	outSize uint64
	groupsX uint32
	groupsY uint32
}

// execute uploads the task's inputs, dispatches its kernel once and reads
// the output back to host memory.
func (b *Backend) execute(t gpuTask) ([]byte, error) {
	pipeline, err := b.pipeline(t.shader)
	if err != nil {
		return nil, err
	}

	var owned []*wgpu.Buffer
	defer func() {
		for _, buf := range owned {
			buf.Release()
		}
	}()

	entries := make([]wgpu.BindGroupEntry, 0, len(t.inputs)+2)
	binding := uint32(0)
	for _, in := range t.inputs {
		buf := b.upload(in.Data(), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
		owned = append(owned, buf)
		//nolint:gosec // G115: byte sizes are non-negative
		entries = append(entries, wgpu.BufferBindingEntry(binding, buf, 0, uint64(in.ByteSize())))
		binding++
	}

	out := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  t.outSize,
	})
	owned = append(owned, out)
	entries = append(entries, wgpu.BufferBindingEntry(binding, out, 0, t.outSize))
	binding++

	uniform := b.upload(t.params, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	owned = append(owned, uniform)
	entries = append(entries, wgpu.BufferBindingEntry(binding, uniform, 0, uint64(len(t.params))))

	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(t.groupsX, max(t.groupsY, 1), 1)
	pass.End()
	b.queue.Submit(encoder.Finish(nil))

	return b.readback(out, t.outSize)
}

// packParams encodes uniform fields as little-endian u32 words, padded to
// the 16-byte uniform buffer alignment.
func packParams(words ...uint32) []byte {
	buf := make([]byte, (len(words)*4+15)&^15)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// groups1D returns the workgroup count covering n threads at workgroupSize
// threads per group.
func groups1D(n int) uint32 {
	//nolint:gosec // G115: element counts are non-negative
	return uint32((n + workgroupSize - 1) / workgroupSize)
}

// groups2D returns the workgroup count covering n threads along one axis
// of a 16x16 tile.
func groups2D(n int) uint32 {
	//nolint:gosec // G115: dimensions are non-negative
	return uint32((n + 15) / 16)
}

// deviceTensor wraps result bytes in a WebGPU-tagged tensor.
func deviceTensor(data []byte, shape tensor.Shape) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(shape, tensor.Float32, tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}

// wantFloat32 rejects tensors the kernels cannot operate on.
func wantFloat32(x *tensor.RawTensor) error {
	if x.DType() != tensor.Float32 {
		return fmt.Errorf("only float32 is supported, got %s", x.DType())
	}
	return nil
}

// Element-wise operation selectors, matching meta.op in ewiseWGSL.
const (
	opAdd uint32 = iota
	opMul
)

// runEwise applies add or mul over two float32 tensors of equal shape.
func (b *Backend) runEwise(a, x *tensor.RawTensor, op uint32) (*tensor.RawTensor, error) {
	if err := wantFloat32(a); err != nil {
		return nil, err
	}
	if !a.Shape().Equal(x.Shape()) {
		return nil, fmt.Errorf("shape mismatch: %v vs %v", a.Shape(), x.Shape())
	}

	n := a.NumElements()
	//nolint:gosec // G115: sizes and counts are non-negative
	data, err := b.execute(gpuTask{
		shader:  "ewise",
		inputs:  []*tensor.RawTensor{a, x},
		params:  packParams(uint32(n), op),
		outSize: uint64(a.ByteSize()),
		groupsX: groups1D(n),
	})
	if err != nil {
		return nil, err
	}
	return deviceTensor(data, a.Shape())
}

// runReLU applies max(0, x) element-wise.
func (b *Backend) runReLU(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := wantFloat32(x); err != nil {
		return nil, err
	}

	n := x.NumElements()
	//nolint:gosec // G115: sizes and counts are non-negative
	data, err := b.execute(gpuTask{
		shader:  "relu",
		inputs:  []*tensor.RawTensor{x},
		params:  packParams(uint32(n)),
		outSize: uint64(x.ByteSize()),
		groupsX: groups1D(n),
	})
	if err != nil {
		return nil, err
	}
	return deviceTensor(data, x.Shape())
}

// runMatMul computes [M, K] @ [K, N] -> [M, N] with one thread per output
// element.
func (b *Backend) runMatMul(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := wantFloat32(a); err != nil {
		return nil, err
	}
	if len(a.Shape()) != 2 || len(x.Shape()) != 2 {
		return nil, fmt.Errorf("matmul requires 2D tensors, got %v and %v", a.Shape(), x.Shape())
	}
	m, k, n := a.Shape()[0], a.Shape()[1], x.Shape()[1]
	if x.Shape()[0] != k {
		return nil, fmt.Errorf("matmul shape mismatch: [%d,%d] @ [%d,%d]", m, k, x.Shape()[0], n)
	}

	//nolint:gosec // G115: dimensions are non-negative
	data, err := b.execute(gpuTask{
		shader:  "matmul",
		inputs:  []*tensor.RawTensor{a, x},
		params:  packParams(uint32(m), uint32(k), uint32(n)),
		outSize: uint64(m * n * 4),
		groupsX: groups2D(n),
		groupsY: groups2D(m),
	})
	if err != nil {
		return nil, err
	}
	return deviceTensor(data, tensor.Shape{m, n})
}

// runTranspose swaps the axes of a 2D float32 tensor.
func (b *Backend) runTranspose(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := wantFloat32(x); err != nil {
		return nil, err
	}
	if len(x.Shape()) != 2 {
		return nil, fmt.Errorf("transpose requires 2D tensor, got %v", x.Shape())
	}
	rows, cols := x.Shape()[0], x.Shape()[1]

	//nolint:gosec // G115: dimensions are non-negative
	data, err := b.execute(gpuTask{
		shader:  "transpose",
		inputs:  []*tensor.RawTensor{x},
		params:  packParams(uint32(rows), uint32(cols)),
		outSize: uint64(x.ByteSize()),
		groupsX: groups2D(cols),
		groupsY: groups2D(rows),
	})
	if err != nil {
		return nil, err
	}
	return deviceTensor(data, tensor.Shape{cols, rows})
}

// runSoftmax normalizes each row of a [batch, classes] tensor. One thread
// reduces one row, so the grid covers the batch dimension.
func (b *Backend) runSoftmax(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := wantFloat32(x); err != nil {
		return nil, err
	}
	if len(x.Shape()) != 2 {
		return nil, fmt.Errorf("softmax requires 2D tensor, got %v", x.Shape())
	}
	rows, width := x.Shape()[0], x.Shape()[1]

	//nolint:gosec // G115: dimensions are non-negative
	data, err := b.execute(gpuTask{
		shader:  "softmax",
		inputs:  []*tensor.RawTensor{x},
		params:  packParams(uint32(rows), uint32(width)),
		outSize: uint64(x.ByteSize()),
		groupsX: groups1D(rows),
	})
	if err != nil {
		return nil, err
	}
	return deviceTensor(data, x.Shape())
}
