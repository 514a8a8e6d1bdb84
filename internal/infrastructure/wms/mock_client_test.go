package wms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_MirrorsOperations(t *testing.T) {
	ctx := context.Background()
	client := NewMockClient()
	client.Seed("WMS-1", 100)

	require.NoError(t, client.Allocate(ctx, AllocationRequest{ExternalBatchID: "WMS-1", Quantity: 30, OrderRef: "o-1"}))
	require.NoError(t, client.Release(ctx, AllocationRequest{ExternalBatchID: "WMS-1", Quantity: 10, OrderRef: "o-1"}))

	batchID := "WMS-1"
	result, err := client.Snapshot(ctx, SnapshotQuery{BatchID: &batchID})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, 80, result.Entries[0].Orderable)
}

func TestMockClient_SnapshotUnknownBatch(t *testing.T) {
	client := NewMockClient()

	batchID := "missing"
	result, err := client.Snapshot(context.Background(), SnapshotQuery{BatchID: &batchID})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
}

func TestMockClient_FullSnapshot(t *testing.T) {
	client := NewMockClient()
	client.Seed("WMS-1", 10)
	client.Seed("WMS-2", 20)

	result, err := client.Snapshot(context.Background(), SnapshotQuery{})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)
	assert.Nil(t, result.NextToken)
}
