// Copyright 2026 The MPA Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data provides the public API for datasets and batch loading.
//
// The package wraps the internal dataset implementations and exports a
// clean surface for assembling evaluation-order pipelines: datasets are
// built from split configs (or constructed directly), then iterated in
// fixed-size batches by a Loader.
//
// Example usage:
//
//	import (
//	    "github.com/negvet/model-preparation-algorithm/data"
//	)
//
//	ds, err := data.Synthetic(100, 16, 3, 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	loader, err := data.NewLoader(ds, 8, 2)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = loader.Iterate(ctx, func(batch *data.Batch) error {
//	    defer batch.Features.Release()
//	    // forward pass over batch.Features
//	    return nil
//	})
package data

import (
	"github.com/negvet/model-preparation-algorithm/config"
	"github.com/negvet/model-preparation-algorithm/internal/data"
)

// Dataset is a fixed-size collection of labeled feature vectors.
// Implementations must be safe for concurrent Sample calls.
type Dataset = data.Dataset

// Record is the per-sample metadata of a dataset entry.
type Record = data.Record

// Batch is one collated slice of a dataset. The consumer owns Features
// and releases it when done.
type Batch = data.Batch

// Loader iterates a Dataset in evaluation order: no shuffling, batches
// in dataset order, the final partial batch kept.
type Loader = data.Loader

// NewLoader creates a loader. batchSize must be positive; workers may be
// 0 for fully synchronous collation.
func NewLoader(ds Dataset, batchSize, workers int) (*Loader, error) {
	return data.NewLoader(ds, batchSize, workers)
}

// InMemory is a dataset backed by slices of feature vectors and labels.
type InMemory = data.InMemory

// NewInMemory creates a dataset from pre-materialized features and labels.
func NewInMemory(features [][]float32, labels []int, numClasses int) (*InMemory, error) {
	return data.NewInMemory(features, labels, numClasses)
}

// Synthetic creates a deterministic random dataset, useful for smoke
// tests and pipeline bring-up.
func Synthetic(samples, featureDim, numClasses int, seed int64) (*InMemory, error) {
	return data.Synthetic(samples, featureDim, numClasses, seed)
}

// LoadCSV reads a dataset from a CSV file of a label column followed by
// pixel columns. A header row is detected and skipped.
func LoadCSV(path string, numClasses int) (*InMemory, error) {
	return data.LoadCSV(path, numClasses)
}

// Factory builds a dataset from a split config.
type Factory = data.Factory

// Register adds a dataset factory under the given type name, making it
// usable from data configs.
func Register(name string, f Factory) error {
	return data.Register(name, f)
}

// Build constructs the dataset a split config describes and applies the
// configured transform pipeline.
func Build(cfg config.SplitConfig) (Dataset, error) {
	return data.Build(cfg)
}

// Types returns the registered dataset type names, sorted.
func Types() []string {
	return data.Types()
}
