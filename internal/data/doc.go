// Package data provides the datasets and the evaluation loader for
// inference runs.
//
// A Dataset pairs per-sample metadata (Record) with fixed-width float32
// feature vectors. Three implementations are registered:
//
//   - "synthetic": deterministic class-clustered vectors, for tests and
//     smoke runs
//   - "csv": label,pix0..pixN rows with 8-bit pixel values scaled to [0,1]
//   - "text": label<TAB>text lines, tokenized and hashed into a
//     bag-of-tokens vector
//
// Datasets are built from a split config via Build, which also applies the
// split's transform pipeline to every sample.
//
// The Loader batches a Dataset for evaluation: iteration order is the
// dataset order, there is no shuffling, and the final partial batch is
// kept. Worker goroutines prefetch batches ahead of the consumer; delivery
// stays in order.
//
// Example:
//
//	ds, err := data.Build(cfg.Infer)
//	if err != nil { ... }
//	loader, err := data.NewLoader(ds, cfg.BatchSize, cfg.Workers)
//	if err != nil { ... }
//	err = loader.Iterate(ctx, func(b *data.Batch) error {
//		out := model.Forward(b.Features)
//		defer out.Release()
//		return nil
//	})
package data
