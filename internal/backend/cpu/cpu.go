// Package cpu implements the CPU compute backend for the inference pipeline.
package cpu

import (
	"fmt"
	"math"

	"github.com/negvet/model-preparation-algorithm/internal/parallel"
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Backend implements tensor.Backend on the host CPU.
type Backend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend.
func New() *Backend {
	return &Backend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return b.device
}

func (b *Backend) newResult(op string, shape tensor.Shape) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, tensor.Float32, b.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}

func requireFloat32(op string, ts ...*tensor.RawTensor) {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			panic(fmt.Sprintf("%s: unsupported dtype %s (only float32 supported)", op, t.DType()))
		}
	}
}

// MatMul computes [M, K] @ [K, N] -> [M, N]. Rows are distributed across
// worker goroutines for large inputs.
func (b *Backend) MatMul(a, x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("matmul", a, x)
	as, xs := a.Shape(), x.Shape()
	if len(as) != 2 || len(xs) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D operands, got %v and %v", as, xs))
	}
	if as[1] != xs[0] {
		panic(fmt.Sprintf("matmul: inner dimensions mismatch: %v @ %v", as, xs))
	}

	m, k, n := as[0], as[1], xs[1]
	result := b.newResult("matmul", tensor.Shape{m, n})

	av := a.AsFloat32()
	xv := x.AsFloat32()
	rv := result.AsFloat32()

	cfg := b.par
	cfg.MinChunkSize = 1 // A single row is already a meaningful unit of work.
	parallel.For(m, func(i int) {
		rowA := av[i*k : (i+1)*k]
		rowR := rv[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			ap := rowA[p]
			if ap == 0 {
				continue
			}
			rowX := xv[p*n : (p+1)*n]
			for j := 0; j < n; j++ {
				rowR[j] += ap * rowX[j]
			}
		}
	}, cfg)

	return result
}

// Add computes element-wise a + b. A 1D or [1, N] second operand is broadcast
// across the rows of a, which covers bias addition after MatMul.
func (b *Backend) Add(a, x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("add", a, x)

	result := b.newResult("add", a.Shape())
	av := a.AsFloat32()
	xv := x.AsFloat32()
	rv := result.AsFloat32()

	switch {
	case a.Shape().Equal(x.Shape()):
		for i, v := range av {
			rv[i] = v + xv[i]
		}
	case isRowBroadcastable(a.Shape(), x.Shape()):
		width := x.NumElements()
		for i, v := range av {
			rv[i] = v + xv[i%width]
		}
	default:
		panic(fmt.Sprintf("add: shapes not compatible: %v vs %v", a.Shape(), x.Shape()))
	}

	return result
}

// isRowBroadcastable reports whether b can be broadcast across the rows of a:
// b must be 1D or [1, N] with N equal to a's trailing dimension.
func isRowBroadcastable(a, b tensor.Shape) bool {
	if len(a) < 1 {
		return false
	}
	trailing := a[len(a)-1]
	if len(b) == 1 {
		return b[0] == trailing
	}
	if len(b) == 2 {
		return b[0] == 1 && b[1] == trailing
	}
	return false
}

// Mul computes element-wise a * b for equal shapes.
func (b *Backend) Mul(a, x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("mul", a, x)
	if !a.Shape().Equal(x.Shape()) {
		panic(fmt.Sprintf("mul: shape mismatch: %v vs %v", a.Shape(), x.Shape()))
	}

	result := b.newResult("mul", a.Shape())
	av := a.AsFloat32()
	xv := x.AsFloat32()
	rv := result.AsFloat32()
	for i, v := range av {
		rv[i] = v * xv[i]
	}
	return result
}

// Scale multiplies every element by a scalar.
func (b *Backend) Scale(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	requireFloat32("scale", x)

	result := b.newResult("scale", x.Shape())
	xv := x.AsFloat32()
	rv := result.AsFloat32()
	for i, v := range xv {
		rv[i] = v * s
	}
	return result
}

// ReLU applies max(0, x) element-wise.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("relu", x)

	result := b.newResult("relu", x.Shape())
	xv := x.AsFloat32()
	rv := result.AsFloat32()
	for i, v := range xv {
		if v > 0 {
			rv[i] = v
		}
	}
	return result
}

// Softmax normalizes along dim into a probability distribution, using the
// max-subtraction trick for numerical stability.
func (b *Backend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	requireFloat32("softmax", x)
	outer, n, inner := reduceExtents("softmax", x.Shape(), dim)

	result := b.newResult("softmax", x.Shape())
	xv := x.AsFloat32()
	rv := result.AsFloat32()

	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			base := o*n*inner + i

			maxV := float32(math.Inf(-1))
			for k := 0; k < n; k++ {
				if v := xv[base+k*inner]; v > maxV {
					maxV = v
				}
			}

			var sum float32
			for k := 0; k < n; k++ {
				e := float32(math.Exp(float64(xv[base+k*inner] - maxV)))
				rv[base+k*inner] = e
				sum += e
			}
			for k := 0; k < n; k++ {
				rv[base+k*inner] /= sum
			}
		}
	}
	return result
}

// Argmax returns the Int64 indices of the maximum along dim.
func (b *Backend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	requireFloat32("argmax", x)
	outer, n, inner := reduceExtents("argmax", x.Shape(), dim)

	result, err := tensor.NewRaw(reducedShape(x.Shape(), dim, false), tensor.Int64, b.device)
	if err != nil {
		panic(fmt.Sprintf("argmax: failed to create result tensor: %v", err))
	}

	xv := x.AsFloat32()
	rv := result.AsInt64()
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			base := o*n*inner + i
			best := 0
			bestV := xv[base]
			for k := 1; k < n; k++ {
				if v := xv[base+k*inner]; v > bestV {
					bestV = v
					best = k
				}
			}
			rv[o*inner+i] = int64(best)
		}
	}
	return result
}

// MeanDim averages along dim, optionally keeping it as size 1.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	requireFloat32("meandim", x)
	outer, n, inner := reduceExtents("meandim", x.Shape(), dim)

	result := b.newResult("meandim", reducedShape(x.Shape(), dim, keepDim))
	xv := x.AsFloat32()
	rv := result.AsFloat32()

	inv := 1.0 / float32(n)
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			base := o*n*inner + i
			var sum float32
			for k := 0; k < n; k++ {
				sum += xv[base+k*inner]
			}
			rv[o*inner+i] = sum * inv
		}
	}
	return result
}

// Transpose2D swaps the two dimensions of a matrix.
func (b *Backend) Transpose2D(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("transpose2d", x)
	s := x.Shape()
	if len(s) != 2 {
		panic(fmt.Sprintf("transpose2d: expected 2D tensor, got %v", s))
	}

	rows, cols := s[0], s[1]
	result := b.newResult("transpose2d", tensor.Shape{cols, rows})
	xv := x.AsFloat32()
	rv := result.AsFloat32()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rv[j*rows+i] = xv[i*cols+j]
		}
	}
	return result
}

// Reshape returns a copy with a new shape of equal element count.
func (b *Backend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if x.NumElements() != shape.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v into %v", x.Shape(), shape))
	}
	result, err := tensor.NewRaw(shape, x.DType(), b.device)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	copy(result.Data(), x.Data())
	return result
}

// reduceExtents decomposes shape into (outer, n, inner) extents around dim.
// Negative dims index from the end.
func reduceExtents(op string, shape tensor.Shape, dim int) (outer, n, inner int) {
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("%s: dimension %d out of range for %dD tensor", op, dim, ndim))
	}

	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < ndim; i++ {
		inner *= shape[i]
	}
	return outer, shape[dim], inner
}

// reducedShape computes the output shape of a reduction along dim.
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}
	out := make(tensor.Shape, 0, ndim-1)
	for i, d := range shape {
		if i != dim {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = tensor.Shape{1}
	}
	return out
}
