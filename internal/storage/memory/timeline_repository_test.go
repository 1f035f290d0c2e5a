package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

func TestTimelineRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewTimelineRepository()

	created, err := repo.Append(ctx, domain.TimelineEvent{OrderID: 1, Type: domain.TimelineOrderCreated})
	require.NoError(t, err)
	_, err = repo.Append(ctx, domain.TimelineEvent{OrderID: 2, Type: domain.TimelineOrderCreated})
	require.NoError(t, err)
	added, err := repo.Append(ctx, domain.TimelineEvent{OrderID: 1, Type: domain.TimelineLineAdded, ProductRef: 98, Quantity: 3})
	require.NoError(t, err)

	events, err := repo.List(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, created, events[0].Seq)
	assert.Equal(t, added, events[1].Seq)
	assert.True(t, events[1].AboutLine())
	assert.False(t, events[0].Occurred.IsZero())

	tail, err := repo.List(ctx, 1, created)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, domain.TimelineLineAdded, tail[0].Type)

	none, err := repo.List(ctx, 1, added)
	require.NoError(t, err)
	assert.Empty(t, none)

	tail[0].Type = "mutated"
	again, err := repo.List(ctx, 1, created)
	require.NoError(t, err)
	assert.Equal(t, domain.TimelineLineAdded, again[0].Type)
}
