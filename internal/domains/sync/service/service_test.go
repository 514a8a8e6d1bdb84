package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invmodel "inventory-service/internal/domains/inventory/model"
	invrepo "inventory-service/internal/domains/inventory/repository"
	"inventory-service/internal/domains/sync/model"
	"inventory-service/internal/domains/sync/repository"
	"inventory-service/internal/infrastructure/wms"
)

type fakeSyncRepo struct {
	requests    map[uuid.UUID]*model.SyncRequest
	snapshots   []*model.WmsSnapshot
	adjustOn    map[int64]bool // batch ids whose reports differ from local
	outOfBounds map[int64]bool
	state       model.SyncState
}

var _ repository.RepositoryInterface = (*fakeSyncRepo)(nil)

func newFakeSyncRepo() *fakeSyncRepo {
	return &fakeSyncRepo{
		requests:    make(map[uuid.UUID]*model.SyncRequest),
		adjustOn:    make(map[int64]bool),
		outOfBounds: make(map[int64]bool),
	}
}

func (f *fakeSyncRepo) CreateSyncRequest(_ context.Context, req *model.SyncRequest) error {
	req.ID = uuid.New()
	req.Status = model.SyncPending
	f.requests[req.ID] = req
	return nil
}

func (f *fakeSyncRepo) GetSyncRequest(_ context.Context, id uuid.UUID) (*model.SyncRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, model.ErrSyncRequestNotFound
	}
	return req, nil
}

func (f *fakeSyncRepo) ListSyncRequests(context.Context, int) ([]model.SyncRequest, error) {
	out := make([]model.SyncRequest, 0, len(f.requests))
	for _, req := range f.requests {
		out = append(out, *req)
	}
	return out, nil
}

func (f *fakeSyncRepo) ClaimSyncRequest(_ context.Context, id uuid.UUID) (bool, error) {
	req, ok := f.requests[id]
	if !ok {
		return false, model.ErrSyncRequestNotFound
	}
	if req.Status == model.SyncDone || req.Status == model.SyncFailed {
		return false, nil
	}
	req.Status = model.SyncInProgress
	return true, nil
}

func (f *fakeSyncRepo) MarkSyncDone(_ context.Context, id uuid.UUID, adjusted int) error {
	now := time.Now().UTC()
	f.requests[id].Status = model.SyncDone
	f.requests[id].AdjustedCount = adjusted
	f.requests[id].CompletedAt = &now
	return nil
}

func (f *fakeSyncRepo) MarkSyncFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	now := time.Now().UTC()
	f.requests[id].Status = model.SyncFailed
	f.requests[id].Error = &errMsg
	f.requests[id].CompletedAt = &now
	return nil
}

func (f *fakeSyncRepo) ApplySnapshot(_ context.Context, snap *model.WmsSnapshot) (model.ReconcileOutcome, error) {
	snap.ID = int64(len(f.snapshots) + 1)
	f.snapshots = append(f.snapshots, snap)

	outcome := model.ReconcileOutcome{SnapshotID: snap.ID}
	if snap.BatchID == nil {
		return outcome, nil
	}

	outcome.BatchID = *snap.BatchID
	if f.outOfBounds[*snap.BatchID] {
		outcome.OutOfBounds = true
		return outcome, nil
	}
	outcome.Adjusted = f.adjustOn[*snap.BatchID]
	return outcome, nil
}

func (f *fakeSyncRepo) GetSyncState(context.Context) (*model.SyncState, error) {
	return &f.state, nil
}

func (f *fakeSyncRepo) UpdateSyncState(_ context.Context, token *string, at time.Time) error {
	f.state.Token = token
	f.state.LastSyncAt = &at
	return nil
}

// snapshotsFor returns the recorded snapshot rows for one external batch id.
func (f *fakeSyncRepo) snapshotsFor(wmsBatchID string) []*model.WmsSnapshot {
	var out []*model.WmsSnapshot
	for _, snap := range f.snapshots {
		if snap.WmsBatchID == wmsBatchID {
			out = append(out, snap)
		}
	}
	return out
}

// fakeInvRepo resolves external batch ids; everything else is unused here.
type fakeInvRepo struct {
	byExternal map[string]*invmodel.Batch
}

var _ invrepo.RepositoryInterface = (*fakeInvRepo)(nil)

func (f *fakeInvRepo) GetBatchByExternalID(_ context.Context, externalID string) (*invmodel.Batch, error) {
	if b, ok := f.byExternal[externalID]; ok {
		return b, nil
	}
	return nil, invmodel.ErrBatchNotFound
}

func (f *fakeInvRepo) Reserve(context.Context, string, []invmodel.ReserveLine, *time.Time) error {
	panic("not used")
}
func (f *fakeInvRepo) Release(context.Context, string, string) error { panic("not used") }
func (f *fakeInvRepo) Adjust(context.Context, int64, int, string, string) (int, error) {
	panic("not used")
}
func (f *fakeInvRepo) ExpireDueReservations(context.Context, time.Time, int) (int, error) {
	panic("not used")
}
func (f *fakeInvRepo) RecordOutboundMirror(context.Context, int64, string, string) error {
	panic("not used")
}
func (f *fakeInvRepo) CreateSKU(context.Context, *invmodel.SKU) error { panic("not used") }
func (f *fakeInvRepo) GetSKUByCode(context.Context, string) (*invmodel.SKU, error) {
	panic("not used")
}
func (f *fakeInvRepo) CreateBatch(context.Context, *invmodel.Batch) error { panic("not used") }
func (f *fakeInvRepo) GetBatchByID(context.Context, int64) (*invmodel.Batch, error) {
	panic("not used")
}
func (f *fakeInvRepo) ListAvailableBatches(context.Context, string) ([]invmodel.Batch, error) {
	panic("not used")
}

type fakeCommandPublisher struct {
	routingKeys []string
	messageIDs  []string
}

func (f *fakeCommandPublisher) PublishCommand(_ context.Context, routingKey, messageID string, _ []byte) error {
	f.routingKeys = append(f.routingKeys, routingKey)
	f.messageIDs = append(f.messageIDs, messageID)
	return nil
}

type failingWmsClient struct {
	err error
}

func (f *failingWmsClient) Allocate(context.Context, wms.AllocationRequest) error { return f.err }
func (f *failingWmsClient) Release(context.Context, wms.AllocationRequest) error  { return f.err }
func (f *failingWmsClient) Snapshot(context.Context, wms.SnapshotQuery) (*wms.SnapshotResult, error) {
	return nil, f.err
}

func extID(s string) *string { return &s }

func TestRequestSync_FullScope(t *testing.T) {
	repo := newFakeSyncRepo()
	pub := &fakeCommandPublisher{}
	svc := NewService(repo, &fakeInvRepo{}, wms.NewMockClient(), pub)

	req, err := svc.RequestSync(context.Background(), nil, "nightly count mismatch", "ops@example.com")
	require.NoError(t, err)

	assert.Equal(t, model.ScopeAll, req.Scope)
	assert.Equal(t, model.SyncPending, req.Status)
	assert.Equal(t, "nightly count mismatch", req.Reason)
	assert.Nil(t, req.CompletedAt)
	require.Len(t, pub.routingKeys, 1)
	assert.Equal(t, "wms.forceSync", pub.routingKeys[0])
	assert.Equal(t, req.ID.String(), pub.messageIDs[0])
}

func TestRequestSync_UnknownBatchFailsFast(t *testing.T) {
	repo := newFakeSyncRepo()
	pub := &fakeCommandPublisher{}
	svc := NewService(repo, &fakeInvRepo{byExternal: map[string]*invmodel.Batch{}}, wms.NewMockClient(), pub)

	_, err := svc.RequestSync(context.Background(), extID("WMS-missing"), "", "ops")
	assert.ErrorIs(t, err, invmodel.ErrBatchNotFound)
	assert.Empty(t, pub.routingKeys)
	assert.Empty(t, repo.requests)
}

func TestRunSync_ReconcilesSnapshot(t *testing.T) {
	ctx := context.Background()

	repo := newFakeSyncRepo()
	repo.adjustOn[11] = true // batch 11 will need a compensating adjustment

	invRepo := &fakeInvRepo{byExternal: map[string]*invmodel.Batch{
		"WMS-1": {ID: 11, TotalQuantity: 100, AvailableQuantity: 80},
		"WMS-2": {ID: 12, TotalQuantity: 50, AvailableQuantity: 50},
	}}

	wmsClient := wms.NewMockClient()
	wmsClient.Seed("WMS-1", 75) // disagrees with local 80
	wmsClient.Seed("WMS-2", 50) // agrees

	svc := NewService(repo, invRepo, wmsClient, &fakeCommandPublisher{})

	req, err := svc.RequestSync(ctx, nil, "", "ops")
	require.NoError(t, err)

	err = svc.RunSync(ctx, model.ForceWmsSyncCommand{RequestID: req.ID, Scope: model.ScopeAll})
	require.NoError(t, err)

	assert.Equal(t, model.SyncDone, repo.requests[req.ID].Status)
	assert.Equal(t, 1, repo.requests[req.ID].AdjustedCount)
	assert.NotNil(t, repo.requests[req.ID].CompletedAt)

	require.Len(t, repo.snapshots, 2)
	snapOne := repo.snapshotsFor("WMS-1")
	require.Len(t, snapOne, 1)
	require.NotNil(t, snapOne[0].BatchID)
	assert.Equal(t, int64(11), *snapOne[0].BatchID)
}

func TestRunSync_UnmatchedBatchStillSnapshots(t *testing.T) {
	ctx := context.Background()

	repo := newFakeSyncRepo()
	invRepo := &fakeInvRepo{byExternal: map[string]*invmodel.Batch{}}

	wmsClient := wms.NewMockClient()
	wmsClient.Seed("WMS-UNKNOWN", 10)

	svc := NewService(repo, invRepo, wmsClient, &fakeCommandPublisher{})

	req, err := svc.RequestSync(ctx, nil, "", "ops")
	require.NoError(t, err)

	err = svc.RunSync(ctx, model.ForceWmsSyncCommand{RequestID: req.ID, Scope: model.ScopeAll})
	require.NoError(t, err)

	// A report for a batch we never received still leaves its audit row,
	// just without a local batch link or an adjustment.
	snaps := repo.snapshotsFor("WMS-UNKNOWN")
	require.Len(t, snaps, 1)
	assert.Nil(t, snaps[0].BatchID)
	assert.Equal(t, 10, snaps[0].Orderable)
	assert.Equal(t, model.SyncDone, repo.requests[req.ID].Status)
	assert.Equal(t, 0, repo.requests[req.ID].AdjustedCount)
}

func TestRunSync_OutOfBoundsReportSkipsAdjustment(t *testing.T) {
	ctx := context.Background()

	repo := newFakeSyncRepo()
	repo.outOfBounds[11] = true

	invRepo := &fakeInvRepo{byExternal: map[string]*invmodel.Batch{
		"WMS-1": {ID: 11, TotalQuantity: 100, AvailableQuantity: 80},
	}}

	wmsClient := wms.NewMockClient()
	wmsClient.Seed("WMS-1", 500)

	svc := NewService(repo, invRepo, wmsClient, &fakeCommandPublisher{})

	req, err := svc.RequestSync(ctx, nil, "", "ops")
	require.NoError(t, err)

	err = svc.RunSync(ctx, model.ForceWmsSyncCommand{RequestID: req.ID, Scope: model.ScopeAll})
	require.NoError(t, err)

	assert.Len(t, repo.snapshots, 1)
	assert.Equal(t, model.SyncDone, repo.requests[req.ID].Status)
	assert.Equal(t, 0, repo.requests[req.ID].AdjustedCount)
}

func TestRunSync_TerminalRequestSkips(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSyncRepo()
	svc := NewService(repo, &fakeInvRepo{}, wms.NewMockClient(), &fakeCommandPublisher{})

	req, err := svc.RequestSync(ctx, nil, "", "ops")
	require.NoError(t, err)
	require.NoError(t, repo.MarkSyncDone(ctx, req.ID, 0))

	// Redelivered command must ack without a second run.
	err = svc.RunSync(ctx, model.ForceWmsSyncCommand{RequestID: req.ID})
	require.NoError(t, err)
	assert.Empty(t, repo.snapshots)
}

func TestRunSync_NonRetriableFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSyncRepo()
	svc := NewService(repo, &fakeInvRepo{}, &failingWmsClient{err: &wms.APIError{StatusCode: 401}}, &fakeCommandPublisher{})

	req, err := svc.RequestSync(ctx, nil, "", "ops")
	require.NoError(t, err)

	err = svc.RunSync(ctx, model.ForceWmsSyncCommand{RequestID: req.ID})
	require.Error(t, err)
	assert.Equal(t, model.SyncFailed, repo.requests[req.ID].Status)
	assert.NotNil(t, repo.requests[req.ID].CompletedAt)
}

func TestRunSync_RetriableFailureKeepsInProgress(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSyncRepo()
	svc := NewService(repo, &fakeInvRepo{}, &failingWmsClient{err: &wms.APIError{StatusCode: 503}}, &fakeCommandPublisher{})

	req, err := svc.RequestSync(ctx, nil, "", "ops")
	require.NoError(t, err)

	err = svc.RunSync(ctx, model.ForceWmsSyncCommand{RequestID: req.ID})
	require.Error(t, err)
	// Left claimable so the requeued command can resume.
	assert.Equal(t, model.SyncInProgress, repo.requests[req.ID].Status)
}
