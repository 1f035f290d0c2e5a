package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

func orderEvent(orderID, eventType string) domain.OutboxMessage {
	return domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       []byte(`{"order_id":` + orderID + `}`),
	}
}

func TestOutboxRepository_PostgresLeaseAndSettle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)
	ctx := t.Context()

	created, err := repo.Enqueue(ctx, orderEvent("99999", "OrderCreated"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	fixed := orderEvent("99998", "OrderShipped")
	fixed.ID = "outbox-fixed-id"
	shipped, err := repo.Enqueue(ctx, fixed)
	require.NoError(t, err)
	assert.Equal(t, "outbox-fixed-id", shipped.ID)

	leased, err := repo.PullPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, leased, 2)
	assert.Equal(t, created.ID, leased[0].ID)
	assert.JSONEq(t, `{"order_id":99999}`, string(leased[0].Payload))

	again, err := repo.PullPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "leased messages must not be handed out twice")

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
	assert.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(ctx, created.ID))
	require.NoError(t, repo.MarkFailed(ctx, shipped.ID))
	require.ErrorIs(t, repo.MarkSent(ctx, created.ID), domain.ErrOutboxPublish, "settled twice")

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.IsZero())
}

func TestOutboxRepository_PostgresExpiredLeaseIsRetaken(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store).(*outboxRepository)
	ctx := t.Context()

	msg, err := repo.Enqueue(ctx, orderEvent("99999", "LineAdded"))
	require.NoError(t, err)

	first, err := repo.PullPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	repo.now = func() time.Time { return time.Now().UTC().Add(2 * outboxLease) }
	retaken, err := repo.PullPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, retaken, 1)
	assert.Equal(t, msg.ID, retaken[0].ID)
}

func TestOutboxRepository_PostgresMissingRows(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)
	ctx := t.Context()

	require.ErrorIs(t, repo.MarkSent(ctx, "missing-outbox"), domain.ErrOutboxPublish)
	require.ErrorIs(t, repo.MarkFailed(ctx, "missing-outbox"), domain.ErrOutboxPublish)
}
