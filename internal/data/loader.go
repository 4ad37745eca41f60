package data

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Batch is one collated slice of a dataset: the feature vectors of
// consecutive samples stacked into a [size, feature_dim] tensor, with their
// labels alongside. The consumer owns Features and releases it when done.
type Batch struct {
	// Index is the batch ordinal, starting at 0.
	Index int

	// Start is the dataset index of the first sample in the batch.
	Start int

	// Size is the number of samples; the final batch may be short.
	Size int

	// Features holds the stacked sample vectors, [Size, feature_dim].
	Features *tensor.RawTensor

	// Labels holds the primary-task labels, one per sample.
	Labels []int64
}

// Loader iterates a Dataset in evaluation order: no shuffling, batches in
// dataset order, the final partial batch kept. With workers > 0, batches
// are collated on a goroutine pool ahead of the consumer; delivery order is
// unchanged and at most `workers` batches exist ahead of the consumer at
// any time.
type Loader struct {
	ds        Dataset
	batchSize int
	workers   int
}

// NewLoader creates a loader. batchSize must be positive; workers may be 0
// for fully synchronous collation.
func NewLoader(ds Dataset, batchSize, workers int) (*Loader, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", workers)
	}
	return &Loader{ds: ds, batchSize: batchSize, workers: workers}, nil
}

// NumBatches returns the number of batches one pass produces.
func (l *Loader) NumBatches() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int {
	return l.batchSize
}

// Dataset returns the wrapped dataset.
func (l *Loader) Dataset() Dataset {
	return l.ds
}

// Iterate calls fn once per batch, in batch order, on the calling
// goroutine. It stops on the first fn error, on a collation error, or when
// ctx is canceled, and only returns after all worker goroutines have
// finished.
func (l *Loader) Iterate(ctx context.Context, fn func(*Batch) error) error {
	if fn == nil {
		return fmt.Errorf("iterate callback is required")
	}
	numBatches := l.NumBatches()
	if l.workers == 0 {
		for i := 0; i < numBatches; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch, err := l.collate(i)
			if err != nil {
				return err
			}
			if err := fn(batch); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		batch *Batch
		err   error
	}
	// One single-use slot per batch keeps delivery in order; the token
	// channel bounds how far collation runs ahead of the consumer.
	results := make([]chan result, numBatches)
	for i := range results {
		results[i] = make(chan result, 1)
	}
	tokens := make(chan struct{}, l.workers)

	workers := pool.New().WithMaxGoroutines(l.workers)
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i := 0; i < numBatches; i++ {
			if ctx.Err() != nil {
				return
			}
			select {
			case tokens <- struct{}{}:
			case <-ctx.Done():
				return
			}
			workers.Go(func() {
				batch, err := l.collate(i)
				results[i] <- result{batch: batch, err: err}
			})
		}
	}()

	var iterErr error
loop:
	for i := 0; i < numBatches; i++ {
		if err := ctx.Err(); err != nil {
			iterErr = err
			break
		}
		select {
		case r := <-results[i]:
			<-tokens
			if r.err != nil {
				iterErr = r.err
				break loop
			}
			if err := fn(r.batch); err != nil {
				iterErr = err
				break loop
			}
		case <-ctx.Done():
			iterErr = ctx.Err()
			break loop
		}
	}

	cancel()
	<-submitted
	workers.Wait()

	// Release batches that were collated but never delivered.
	for _, ch := range results {
		select {
		case r := <-ch:
			if r.batch != nil {
				r.batch.Features.Release()
			}
		default:
		}
	}
	return iterErr
}

// collate copies the samples of batch i into one stacked tensor.
func (l *Loader) collate(i int) (*Batch, error) {
	start := i * l.batchSize
	end := start + l.batchSize
	if end > l.ds.Len() {
		end = l.ds.Len()
	}
	size := end - start
	width := l.ds.FeatureDim()

	features, err := tensor.NewRaw(tensor.Shape{size, width}, tensor.Float32, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate batch %d: %w", i, err)
	}
	dst := features.AsFloat32()
	labels := make([]int64, size)

	for j := start; j < end; j++ {
		sample, err := l.ds.Sample(j)
		if err != nil {
			features.Release()
			return nil, fmt.Errorf("failed to load sample %d: %w", j, err)
		}
		row := sample.AsFloat32()
		if len(row) != width {
			sample.Release()
			features.Release()
			return nil, fmt.Errorf("sample %d has %d features, want %d", j, len(row), width)
		}
		copy(dst[(j-start)*width:(j-start+1)*width], row)
		sample.Release()
		labels[j-start] = int64(l.ds.Record(j).Label)
	}

	return &Batch{
		Index:    i,
		Start:    start,
		Size:     size,
		Features: features,
		Labels:   labels,
	}, nil
}
