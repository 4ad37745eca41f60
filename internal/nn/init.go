package nn

import (
	"math"
	"math/rand"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Xavier returns a Float32 tensor initialized from the Glorot uniform
// distribution U(-b, b) with b = sqrt(6 / (fanIn + fanOut)). Freshly built
// models start from these values until a checkpoint overwrites them.
func Xavier(fanIn, fanOut int, shape tensor.Shape) *tensor.RawTensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		panic(err)
	}

	data := t.AsFloat32()
	for i := range data {
		//nolint:gosec // G404: weight initialization does not need a CSPRNG
		data[i] = float32(bound * (2.0*rand.Float64() - 1.0))
	}
	return t
}

// Zeros returns a zero-filled Float32 tensor, the usual bias start.
func Zeros(shape tensor.Shape) *tensor.RawTensor {
	t, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		panic(err)
	}
	return t
}
