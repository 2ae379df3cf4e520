package worker

import (
	"context"
	"errors"
	"testing"

	"stockpos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	products     []model.Product
	err          error
	gotThreshold int
}

func (f *fakeLister) ListBelow(_ context.Context, threshold, _ int) ([]model.Product, error) {
	f.gotThreshold = threshold
	return f.products, f.err
}

type fakeQueue struct {
	payloads []LowStockPayload
}

func (q *fakeQueue) EnqueueLowStock(_ context.Context, p LowStockPayload) error {
	q.payloads = append(q.payloads, p)
	return nil
}

func TestScanLowStock_EnqueuesDigest(t *testing.T) {
	lister := &fakeLister{products: []model.Product{
		{ID: 1, Name: "Widget", Quantity: 0},
		{ID: 2, Name: "Gadget", Quantity: 7},
	}}
	queue := &fakeQueue{}

	n, err := scanLowStock(context.Background(), LowStockCronConfig{Products: lister, Queue: queue, Threshold: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 10, lister.gotThreshold)

	require.Len(t, queue.payloads, 1)
	assert.Equal(t, LowStockSourceScan, queue.payloads[0].Source)
	assert.Len(t, queue.payloads[0].Items, 2)
}

func TestScanLowStock_NothingLow(t *testing.T) {
	queue := &fakeQueue{}
	n, err := scanLowStock(context.Background(), LowStockCronConfig{Products: &fakeLister{}, Queue: queue, Threshold: 10})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, queue.payloads)
}

func TestScanLowStock_ListError(t *testing.T) {
	queue := &fakeQueue{}
	_, err := scanLowStock(context.Background(), LowStockCronConfig{Products: &fakeLister{err: errors.New("db down")}, Queue: queue, Threshold: 10})
	require.Error(t, err)
	assert.Empty(t, queue.payloads)
}
