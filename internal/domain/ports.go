package domain

import (
	"context"
	"time"
)

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	// Append записывает событие и возвращает назначенный ему Seq.
	Append(ctx context.Context, event TimelineEvent) (int64, error)
	// List возвращает события заказа с Seq > afterSeq в порядке записи.
	List(ctx context.Context, orderID, afterSeq int64) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит заявки мутаций с idempotency-key.
type IdempotencyRepository interface {
	// Claim регистрирует новую заявку в статусе in_flight. Если заявка уже есть,
	// возвращает её вместе с ErrIdempotencyReplay или, при другом хэше тела,
	// с ErrIdempotencyPayloadMismatch.
	Claim(ctx context.Context, scope IdempotencyScope, requestHash string, expiresAt time.Time) (IdempotencyRecord, error)
	Find(ctx context.Context, scope IdempotencyScope) (IdempotencyRecord, error)
	// Resolve фиксирует исход заявки; status должен быть финальным.
	Resolve(ctx context.Context, scope IdempotencyScope, status IdempotencyStatus, outcome IdempotencyOutcome) error
	// PurgeExpired удаляет до limit заявок с ExpiresAt <= before; limit <= 0: без ограничения.
	PurgeExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
