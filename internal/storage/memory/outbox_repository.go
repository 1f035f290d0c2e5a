package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

type outboxState uint8

const (
	outboxPending outboxState = iota
	outboxSent
	outboxFailed
)

type outboxEntry struct {
	msg      domain.OutboxMessage
	state    outboxState
	enqueued time.Time
}

// OutboxRepository: outbox в памяти: журнал в порядке Enqueue и индекс по ID.
type OutboxRepository struct {
	mu   sync.RWMutex
	log  []*outboxEntry
	byID map[string]*outboxEntry
	now  func() time.Time
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		byID: make(map[string]*outboxEntry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *OutboxRepository) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Payload = append([]byte(nil), msg.Payload...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byID[msg.ID]; dup {
		return domain.OutboxMessage{}, domain.ErrIntegrityViolation
	}
	entry := &outboxEntry{msg: msg, enqueued: r.now()}
	r.log = append(r.log, entry)
	r.byID[msg.ID] = entry
	return msg, nil
}

// PullPending возвращает до limit ожидающих сообщений в порядке записи.
func (r *OutboxRepository) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	pending := r.pending()
	return pending[:min(limit, len(pending))], nil
}

func (r *OutboxRepository) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, e := range r.log {
		if e.state != outboxPending {
			continue
		}
		if stats.PendingCount == 0 {
			stats.OldestPendingAt = e.enqueued
		}
		stats.PendingCount++
	}
	return stats, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, id string) error {
	return r.settle(id, outboxSent)
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id string) error {
	return r.settle(id, outboxFailed)
}

// AllPending: снимок ожидающих сообщений для тестов.
func (r *OutboxRepository) AllPending() []domain.OutboxMessage {
	return r.pending()
}

func (r *OutboxRepository) settle(id string, state outboxState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok || entry.state != outboxPending {
		return domain.ErrOutboxPublish
	}
	entry.state = state
	return nil
}

func (r *OutboxRepository) pending() []domain.OutboxMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(r.log, func(e *outboxEntry, _ int) (domain.OutboxMessage, bool) {
		return e.msg, e.state == outboxPending
	})
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
