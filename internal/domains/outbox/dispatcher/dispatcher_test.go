package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-service/internal/domains/outbox/model"
	"inventory-service/internal/domains/outbox/repository"
)

// fakeRepo feeds a fixed set of events through the publish callback the way
// DrainPending does, without a database.
type fakeRepo struct {
	events []model.OutboxEvent
	sent   []uuid.UUID
	failed []uuid.UUID
}

var _ repository.RepositoryInterface = (*fakeRepo)(nil)

func (f *fakeRepo) DrainPending(_ context.Context, limit int, publish func(model.OutboxEvent) error) (int, int, error) {
	var sent, failed int
	n := len(f.events)
	if n > limit {
		n = limit
	}
	for _, ev := range f.events[:n] {
		if err := publish(ev); err != nil {
			f.failed = append(f.failed, ev.ID)
			failed++
			continue
		}
		f.sent = append(f.sent, ev.ID)
		sent++
	}
	f.events = f.events[n:]
	return sent, failed, nil
}

func (f *fakeRepo) InsertTx(context.Context, pgx.Tx, string, interface{}) (uuid.UUID, error) {
	panic("not used")
}

func (f *fakeRepo) Retry(context.Context, uuid.UUID) error { panic("not used") }

func (f *fakeRepo) ListFailed(context.Context, int) ([]model.OutboxEvent, error) {
	panic("not used")
}

func (f *fakeRepo) GetByID(context.Context, uuid.UUID) (*model.OutboxEvent, error) {
	panic("not used")
}

type fakePublisher struct {
	published []string
	failTypes map[string]bool
}

func (f *fakePublisher) PublishEvent(_ context.Context, eventType, messageID string, _ []byte) error {
	if f.failTypes[eventType] {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, eventType+":"+messageID)
	return nil
}

func newEvent(eventType string) model.OutboxEvent {
	return model.OutboxEvent{
		ID:      uuid.New(),
		Type:    eventType,
		Payload: []byte(`{"orderId":"o-1"}`),
		Status:  model.StatusPending,
	}
}

func TestDrainOnce_PublishesPending(t *testing.T) {
	ev1 := newEvent("InventoryAllocated")
	ev2 := newEvent("InventoryReleased")
	repo := &fakeRepo{events: []model.OutboxEvent{ev1, ev2}}
	pub := &fakePublisher{}

	d := New(repo, pub, 10, time.Second)

	sent, failed, err := d.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 0, failed)

	// The outbox event id travels as the broker message id.
	assert.Equal(t, []string{
		"InventoryAllocated:" + ev1.ID.String(),
		"InventoryReleased:" + ev2.ID.String(),
	}, pub.published)
}

func TestDrainOnce_FailedPublishCounts(t *testing.T) {
	ev1 := newEvent("InventoryAllocated")
	ev2 := newEvent("InventoryAdjusted")
	repo := &fakeRepo{events: []model.OutboxEvent{ev1, ev2}}
	pub := &fakePublisher{failTypes: map[string]bool{"InventoryAdjusted": true}}

	d := New(repo, pub, 10, time.Second)

	sent, failed, err := d.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []uuid.UUID{ev1.ID}, repo.sent)
	assert.Equal(t, []uuid.UUID{ev2.ID}, repo.failed)
}

func TestDrainOnce_RespectsBatchSize(t *testing.T) {
	repo := &fakeRepo{events: []model.OutboxEvent{
		newEvent("InventoryAllocated"),
		newEvent("InventoryAllocated"),
		newEvent("InventoryAllocated"),
	}}
	pub := &fakePublisher{}

	d := New(repo, pub, 2, time.Second)

	sent, _, err := d.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, repo.events, 1)
}

func TestRun_StopsOnCancel(t *testing.T) {
	d := New(&fakeRepo{}, &fakePublisher{}, 10, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop on context cancel")
	}
}
