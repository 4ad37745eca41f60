package data

import (
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Dataset is a fixed-size collection of labeled feature vectors.
//
// Sample returns a fresh [feature_dim] float32 tensor each call; the caller
// owns it and releases it when done. Implementations must be safe for
// concurrent Sample calls, since the loader fetches from worker goroutines.
type Dataset interface {
	// Len returns the number of samples.
	Len() int

	// Record returns the metadata of sample i.
	Record(i int) *Record

	// Records returns the backing metadata slice in dataset order.
	Records() []*Record

	// Sample materializes the feature vector of sample i.
	Sample(i int) (*tensor.RawTensor, error)

	// FeatureDim returns the width of every feature vector.
	FeatureDim() int

	// NumClasses returns the number of classes of the primary task.
	NumClasses() int
}
