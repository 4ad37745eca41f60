package data_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/negvet/model-preparation-algorithm/internal/data"
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoader_BatchLayout(t *testing.T) {
	ds, err := data.Synthetic(10, 3, 2, 1)
	require.NoError(t, err)

	loader, err := data.NewLoader(ds, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, loader.NumBatches())

	var starts, sizes, order []int
	err = loader.Iterate(context.Background(), func(b *data.Batch) error {
		defer b.Features.Release()
		order = append(order, b.Index)
		starts = append(starts, b.Start)
		sizes = append(sizes, b.Size)

		require.Equal(t, tensor.Shape{b.Size, 3}, b.Features.Shape())
		require.Len(t, b.Labels, b.Size)
		for j := 0; j < b.Size; j++ {
			sample, err := ds.Sample(b.Start + j)
			require.NoError(t, err)
			assert.Equal(t, sample.AsFloat32(), b.Features.Float32Row(j))
			sample.Release()
			assert.Equal(t, int64(ds.Record(b.Start+j).Label), b.Labels[j])
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, []int{0, 4, 8}, starts)
	assert.Equal(t, []int{4, 4, 2}, sizes, "final partial batch should be kept")
}

func TestLoader_WorkersPreserveOrder(t *testing.T) {
	ds, err := data.Synthetic(25, 4, 3, 2)
	require.NoError(t, err)

	loader, err := data.NewLoader(ds, 2, 3)
	require.NoError(t, err)

	var order []int
	var firstValues []float32
	err = loader.Iterate(context.Background(), func(b *data.Batch) error {
		defer b.Features.Release()
		order = append(order, b.Index)
		firstValues = append(firstValues, b.Features.AsFloat32()[0])
		return nil
	})
	require.NoError(t, err)

	require.Len(t, order, 13)
	for i, got := range order {
		assert.Equal(t, i, got, "batches must arrive in order")
	}

	// The concurrent run must deliver the same bytes as a synchronous one.
	sync, err := data.NewLoader(ds, 2, 0)
	require.NoError(t, err)
	i := 0
	err = sync.Iterate(context.Background(), func(b *data.Batch) error {
		defer b.Features.Release()
		assert.Equal(t, b.Features.AsFloat32()[0], firstValues[i])
		i++
		return nil
	})
	require.NoError(t, err)
}

func TestLoader_ContextCancel(t *testing.T) {
	ds, err := data.Synthetic(40, 4, 2, 3)
	require.NoError(t, err)

	loader, err := data.NewLoader(ds, 2, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	seen := 0
	err = loader.Iterate(ctx, func(b *data.Batch) error {
		defer b.Features.Release()
		seen++
		if seen == 3 {
			cancel()
		}
		return nil
	})
	cancel()

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, seen, "no batches should be delivered after cancellation")
}

func TestLoader_PreCanceledContext(t *testing.T) {
	ds, err := data.Synthetic(10, 4, 2, 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{0, 2} {
		loader, err := data.NewLoader(ds, 2, workers)
		require.NoError(t, err)

		calls := 0
		err = loader.Iterate(ctx, func(b *data.Batch) error {
			calls++
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled, "workers=%d", workers)
		assert.Equal(t, 0, calls, "workers=%d", workers)
	}
}

func TestLoader_CallbackError(t *testing.T) {
	ds, err := data.Synthetic(10, 4, 2, 4)
	require.NoError(t, err)

	for _, workers := range []int{0, 2} {
		loader, err := data.NewLoader(ds, 3, workers)
		require.NoError(t, err)

		calls := 0
		wantErr := fmt.Errorf("forward failed")
		err = loader.Iterate(context.Background(), func(b *data.Batch) error {
			defer b.Features.Release()
			calls++
			if b.Index == 1 {
				return wantErr
			}
			return nil
		})
		require.ErrorIs(t, err, wantErr, "workers=%d", workers)
		assert.Equal(t, 2, calls, "workers=%d", workers)
	}
}

// failingDataset fails on one sample index, to exercise collation errors.
type failingDataset struct {
	data.Dataset
	failAt int
}

func (d *failingDataset) Sample(i int) (*tensor.RawTensor, error) {
	if i == d.failAt {
		return nil, fmt.Errorf("corrupt sample")
	}
	return d.Dataset.Sample(i)
}

func TestLoader_CollateError(t *testing.T) {
	base, err := data.Synthetic(12, 4, 2, 5)
	require.NoError(t, err)
	ds := &failingDataset{Dataset: base, failAt: 7}

	for _, workers := range []int{0, 3} {
		loader, err := data.NewLoader(ds, 2, workers)
		require.NoError(t, err)

		err = loader.Iterate(context.Background(), func(b *data.Batch) error {
			defer b.Features.Release()
			return nil
		})
		require.Error(t, err, "workers=%d", workers)
		assert.Contains(t, err.Error(), "sample 7", "workers=%d", workers)
	}
}

func TestLoader_EmptyDataset(t *testing.T) {
	ds, err := data.NewInMemory(nil, nil, 2)
	require.NoError(t, err)

	loader, err := data.NewLoader(ds, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, loader.NumBatches())

	calls := 0
	err = loader.Iterate(context.Background(), func(b *data.Batch) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestNewLoader_Validation(t *testing.T) {
	ds, err := data.Synthetic(4, 2, 2, 6)
	require.NoError(t, err)

	_, err = data.NewLoader(nil, 4, 0)
	assert.Error(t, err)
	_, err = data.NewLoader(ds, 0, 0)
	assert.Error(t, err)
	_, err = data.NewLoader(ds, 4, -1)
	assert.Error(t, err)
}
