package wms

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MockClient is an in-memory WMS used in development and tests. Allocations
// and releases adjust an internal orderable count per external batch id, so
// a snapshot after traffic reflects the mirrored operations.
type MockClient struct {
	mu        sync.Mutex
	orderable map[string]int
}

func NewMockClient() *MockClient {
	return &MockClient{orderable: make(map[string]int)}
}

// Seed sets the orderable quantity reported for an external batch.
func (m *MockClient) Seed(externalBatchID string, orderable int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderable[externalBatchID] = orderable
}

func (m *MockClient) Allocate(_ context.Context, req AllocationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderable[req.ExternalBatchID] -= req.Quantity
	return nil
}

func (m *MockClient) Release(_ context.Context, req AllocationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderable[req.ExternalBatchID] += req.Quantity
	return nil
}

func (m *MockClient) Snapshot(_ context.Context, query SnapshotQuery) (*SnapshotResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	result := &SnapshotResult{}

	appendEntry := func(id string, orderable int) {
		raw, _ := json.Marshal(map[string]interface{}{"wmsBatchId": id, "orderable": orderable})
		result.Entries = append(result.Entries, SnapshotEntry{
			WmsBatchID: id,
			Orderable:  orderable,
			ReportedAt: now,
			Raw:        raw,
		})
	}

	if query.BatchID != nil {
		if orderable, ok := m.orderable[*query.BatchID]; ok {
			appendEntry(*query.BatchID, orderable)
		}
		return result, nil
	}

	for id, orderable := range m.orderable {
		appendEntry(id, orderable)
	}
	return result, nil
}
