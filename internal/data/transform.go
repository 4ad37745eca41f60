package data

import (
	"fmt"
	"math"

	"github.com/negvet/model-preparation-algorithm/internal/config"
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Transform mutates a sample tensor in place and returns it. Transforms run
// on loader worker goroutines, so they must not keep state across calls.
type Transform interface {
	Name() string
	Apply(x *tensor.RawTensor) (*tensor.RawTensor, error)
}

// Normalize shifts and scales features: (x - mean) / std. Mean and std are
// either a single value broadcast over all features or one value per
// feature.
type Normalize struct {
	mean []float32
	std  []float32
}

// NewNormalize validates the statistics against the feature width.
func NewNormalize(mean, std []float32, featureDim int) (*Normalize, error) {
	if len(mean) != 1 && len(mean) != featureDim {
		return nil, fmt.Errorf("normalize: mean needs 1 or %d values, got %d", featureDim, len(mean))
	}
	if len(std) != 1 && len(std) != featureDim {
		return nil, fmt.Errorf("normalize: std needs 1 or %d values, got %d", featureDim, len(std))
	}
	for i, s := range std {
		if s == 0 {
			return nil, fmt.Errorf("normalize: std[%d] is zero", i)
		}
	}
	return &Normalize{mean: mean, std: std}, nil
}

// Name returns "normalize".
func (n *Normalize) Name() string { return "normalize" }

// Apply normalizes the sample in place.
func (n *Normalize) Apply(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	values := x.AsFloat32()
	for i := range values {
		mean := n.mean[0]
		if len(n.mean) > 1 {
			mean = n.mean[i]
		}
		std := n.std[0]
		if len(n.std) > 1 {
			std = n.std[i]
		}
		values[i] = (values[i] - mean) / std
	}
	return x, nil
}

// L2Norm scales a sample to unit Euclidean length. Zero vectors pass
// through unchanged.
type L2Norm struct{}

// Name returns "l2norm".
func (L2Norm) Name() string { return "l2norm" }

// Apply rescales the sample in place.
func (L2Norm) Apply(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	values := x.AsFloat32()
	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return x, nil
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range values {
		values[i] *= inv
	}
	return x, nil
}

// buildPipeline turns transform configs into Transform values, validating
// them against the dataset's feature width.
func buildPipeline(cfgs []config.TransformConfig, featureDim int) ([]Transform, error) {
	pipeline := make([]Transform, 0, len(cfgs))
	for i, cfg := range cfgs {
		switch cfg.Type {
		case "normalize":
			tr, err := NewNormalize(cfg.Mean, cfg.Std, featureDim)
			if err != nil {
				return nil, fmt.Errorf("pipeline step %d: %w", i, err)
			}
			pipeline = append(pipeline, tr)
		case "l2norm":
			pipeline = append(pipeline, L2Norm{})
		default:
			return nil, fmt.Errorf("pipeline step %d: unknown transform %q", i, cfg.Type)
		}
	}
	return pipeline, nil
}

// transformed wraps a Dataset and runs the pipeline on every sample.
type transformed struct {
	Dataset
	pipeline []Transform
}

func (d *transformed) Sample(i int) (*tensor.RawTensor, error) {
	x, err := d.Dataset.Sample(i)
	if err != nil {
		return nil, err
	}
	for _, tr := range d.pipeline {
		x, err = tr.Apply(x)
		if err != nil {
			x.Release()
			return nil, fmt.Errorf("%s on sample %d: %w", tr.Name(), i, err)
		}
	}
	return x, nil
}
