package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// TimelineRepository: журнал событий заказов в памяти. События каждого
// заказа хранятся в порядке записи.
type TimelineRepository struct {
	mu      sync.RWMutex
	lastSeq int64
	byOrder map[int64][]domain.TimelineEvent
}

func NewTimelineRepository() *TimelineRepository {
	return &TimelineRepository{byOrder: make(map[int64][]domain.TimelineEvent)}
}

func (r *TimelineRepository) Append(_ context.Context, event domain.TimelineEvent) (int64, error) {
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastSeq++
	event.Seq = r.lastSeq
	r.byOrder[event.OrderID] = append(r.byOrder[event.OrderID], event)
	return event.Seq, nil
}

func (r *TimelineRepository) List(_ context.Context, orderID, afterSeq int64) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.byOrder[orderID]
	from, _ := slices.BinarySearchFunc(events, afterSeq, func(e domain.TimelineEvent, seq int64) int {
		if e.Seq <= seq {
			return -1
		}
		return 1
	})
	return slices.Clone(events[from:]), nil
}

var _ domain.TimelineRepository = (*TimelineRepository)(nil)
