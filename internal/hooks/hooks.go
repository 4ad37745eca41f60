// Package hooks implements scoped capture of model internals during
// inference.
//
// A capture attaches a forward hook to a classifier's backbone and
// accumulates one tensor per sample while batches flow through the
// model. Closing the capture detaches the hook, so instrumentation
// never outlives the inference loop that requested it. A disabled
// capture attaches nothing and reports nil records, letting callers
// treat both cases uniformly.
package hooks

import (
	"fmt"

	"github.com/negvet/model-preparation-algorithm/internal/nn"
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Capture accumulates per-sample tensors from a backbone's forward
// passes until closed.
//
// Captures are not safe for concurrent forward passes; inference runs
// batches sequentially.
type Capture struct {
	records []*tensor.RawTensor
	remove  func()
}

// Records returns the captured tensors in forward order, one entry per
// sample. A disabled capture returns nil.
func (c *Capture) Records() []*tensor.RawTensor {
	return c.records
}

// Close detaches the capture from the backbone. Closing twice, or
// closing a disabled capture, is a no-op.
func (c *Capture) Close() {
	if c.remove != nil {
		c.remove()
		c.remove = nil
	}
}

// CaptureFeatures attaches a feature-vector capture to the backbone.
//
// Every forward pass appends one pooled feature vector per sample:
// spatial [batch, C, H, W] activations are average-pooled to [C]
// vectors, flat [batch, F] activations are recorded row by row.
func CaptureFeatures(backbone *nn.Backbone, backend tensor.Backend, enabled bool) *Capture {
	if !enabled {
		return &Capture{}
	}
	c := &Capture{}
	c.remove = backbone.RegisterForwardHook(func(output *tensor.RawTensor) {
		c.records = append(c.records, featureVectors(backend, output)...)
	})
	return c
}

// CaptureSaliencyMaps attaches a saliency-map capture to the backbone.
//
// Every forward pass appends one spatial importance map per sample: the
// channel mean of a [batch, C, H, W] activation, rescaled per sample to
// 0..255 and stored as a Uint8 [H, W] tensor. Flat [batch, F]
// activations produce [1, F] maps.
func CaptureSaliencyMaps(backbone *nn.Backbone, backend tensor.Backend, enabled bool) *Capture {
	if !enabled {
		return &Capture{}
	}
	c := &Capture{}
	c.remove = backbone.RegisterForwardHook(func(output *tensor.RawTensor) {
		c.records = append(c.records, saliencyMaps(backend, output)...)
	})
	return c
}

// featureVectors pools a backbone activation into per-sample vectors.
func featureVectors(backend tensor.Backend, output *tensor.RawTensor) []*tensor.RawTensor {
	pooled := output
	if len(output.Shape()) == 4 {
		pooled = backend.MeanDim(output, 3, false)
		pooled = backend.MeanDim(pooled, 2, false)
	}
	shape := pooled.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("hooks: unexpected backbone output shape %v", output.Shape()))
	}

	rows := make([]*tensor.RawTensor, shape[0])
	for i := range rows {
		row, err := tensor.FromFloat32s(pooled.Float32Row(i), tensor.Shape{shape[1]}, pooled.Device())
		if err != nil {
			panic(fmt.Sprintf("hooks: failed to allocate capture tensor: %v", err))
		}
		rows[i] = row
	}
	return rows
}

// saliencyMaps reduces a backbone activation to per-sample importance
// maps.
func saliencyMaps(backend tensor.Backend, output *tensor.RawTensor) []*tensor.RawTensor {
	var flat *tensor.RawTensor
	var height, width int
	switch len(output.Shape()) {
	case 4:
		flat = backend.MeanDim(output, 1, false) // [batch, H, W]
		height, width = output.Shape()[2], output.Shape()[3]
	case 2:
		flat = output
		height, width = 1, output.Shape()[1]
	default:
		panic(fmt.Sprintf("hooks: unexpected backbone output shape %v", output.Shape()))
	}

	batch := output.Shape()[0]
	size := height * width
	values := flat.AsFloat32()

	maps := make([]*tensor.RawTensor, batch)
	for i := 0; i < batch; i++ {
		maps[i] = rescaleToBytes(values[i*size:(i+1)*size], tensor.Shape{height, width}, flat.Device())
	}
	return maps
}

// rescaleToBytes min-max rescales one map to 0..255. A constant map
// comes out as zeros.
func rescaleToBytes(values []float32, shape tensor.Shape, device tensor.Device) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, tensor.Uint8, device)
	if err != nil {
		panic(fmt.Sprintf("hooks: failed to allocate capture tensor: %v", err))
	}

	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if maxV == minV {
		return raw
	}

	out := raw.AsUint8()
	scale := 255 / (maxV - minV)
	for i, v := range values {
		out[i] = uint8(scale * (v - minV))
	}
	return raw
}
