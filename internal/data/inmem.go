package data

import (
	"fmt"
	"math/rand"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// InMemory is a Dataset backed by in-memory feature vectors. The CSV, text
// and synthetic loaders all produce one.
type InMemory struct {
	records    []*Record
	features   [][]float32
	featureDim int
	numClasses int
}

// NewInMemory builds a dataset from parallel feature and label slices. All
// feature vectors must share one width; labels must be in [0, numClasses).
func NewInMemory(features [][]float32, labels []int, numClasses int) (*InMemory, error) {
	if len(features) != len(labels) {
		return nil, fmt.Errorf("got %d feature vectors but %d labels", len(features), len(labels))
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("numClasses must be positive, got %d", numClasses)
	}

	dim := 0
	if len(features) > 0 {
		dim = len(features[0])
	}
	records := make([]*Record, len(features))
	for i, vec := range features {
		if len(vec) != dim {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(vec), dim)
		}
		if labels[i] < 0 || labels[i] >= numClasses {
			return nil, fmt.Errorf("sample %d: label %d out of range [0, %d)", i, labels[i], numClasses)
		}
		records[i] = &Record{
			Index: i,
			ID:    fmt.Sprintf("sample_%06d", i),
			Label: labels[i],
		}
	}

	return &InMemory{
		records:    records,
		features:   features,
		featureDim: dim,
		numClasses: numClasses,
	}, nil
}

// Len returns the number of samples.
func (d *InMemory) Len() int {
	return len(d.records)
}

// Record returns the metadata of sample i.
func (d *InMemory) Record(i int) *Record {
	return d.records[i]
}

// Records returns the backing metadata slice in dataset order.
func (d *InMemory) Records() []*Record {
	return d.records
}

// Sample materializes the feature vector of sample i as a fresh tensor.
func (d *InMemory) Sample(i int) (*tensor.RawTensor, error) {
	if i < 0 || i >= len(d.features) {
		return nil, fmt.Errorf("sample index %d out of range [0, %d)", i, len(d.features))
	}
	return tensor.FromFloat32s(d.features[i], tensor.Shape{d.featureDim}, tensor.CPU)
}

// FeatureDim returns the width of every feature vector.
func (d *InMemory) FeatureDim() int {
	return d.featureDim
}

// NumClasses returns the number of classes of the primary task.
func (d *InMemory) NumClasses() int {
	return d.numClasses
}

// Synthetic generates a deterministic class-clustered dataset: samples of
// class c scatter around a per-class mean, labels cycle 0..numClasses-1.
// The same seed always produces the same data.
func Synthetic(samples, featureDim, numClasses int, seed int64) (*InMemory, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("samples must be positive, got %d", samples)
	}
	if featureDim <= 0 {
		return nil, fmt.Errorf("featureDim must be positive, got %d", featureDim)
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("numClasses must be positive, got %d", numClasses)
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // Using math/rand for synthetic test data (not security-critical).

	// Per-class cluster means, spread over [0, 1).
	means := make([][]float32, numClasses)
	for c := range means {
		means[c] = make([]float32, featureDim)
		for j := range means[c] {
			means[c][j] = rng.Float32()
		}
	}

	features := make([][]float32, samples)
	labels := make([]int, samples)
	for i := 0; i < samples; i++ {
		label := i % numClasses
		vec := make([]float32, featureDim)
		for j := range vec {
			vec[j] = means[label][j] + float32(rng.NormFloat64())*0.1
		}
		features[i] = vec
		labels[i] = label
	}
	return NewInMemory(features, labels, numClasses)
}
