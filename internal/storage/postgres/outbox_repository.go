package postgres

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// outboxLease: время, на которое PullPending закрепляет выбранные сообщения
// за вызывающим. Пока аренда не истекла, другие реплики их не получат.
const outboxLease = 30 * time.Second

const (
	enqueueOutboxSQL = `
		INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $6)`
	leaseOutboxSQL = `
		UPDATE outbox_messages AS m
		SET leased_until = $2
		FROM (
			SELECT id FROM outbox_messages
			WHERE status = 'pending' AND (leased_until IS NULL OR leased_until <= $3)
			ORDER BY created_at, id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		) AS picked
		WHERE m.id = picked.id
		RETURNING m.id, m.aggregate_type, m.aggregate_id, m.event_type, m.payload, m.created_at`
	outboxStatsSQL = `
		SELECT COUNT(*), MIN(created_at) FROM outbox_messages WHERE status = 'pending'`
	settleOutboxSQL = `
		UPDATE outbox_messages
		SET status = $2, attempt_count = attempt_count + 1, leased_until = NULL, updated_at = $3
		WHERE id = $1 AND status = 'pending'`
)

type outboxRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{db: store.DB(), now: func() time.Time { return time.Now().UTC() }}
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, enqueueOutboxSQL,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, r.now())
	if err != nil {
		return domain.OutboxMessage{}, errors.Wrapf(err, "enqueue %s for %s", msg.EventType, msg.AggregateID)
	}
	return msg, nil
}

// PullPending арендует до limit ожидающих сообщений, старые первыми.
func (r *outboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	now := r.now()
	rows, err := r.db.QueryContext(ctx, leaseOutboxSQL, limit, now.Add(outboxLease), now)
	if err != nil {
		return nil, errors.Wrap(err, "lease pending outbox messages")
	}
	defer func() { _ = rows.Close() }()

	type leased struct {
		msg       domain.OutboxMessage
		createdAt time.Time
	}
	var batch []leased
	for rows.Next() {
		var l leased
		if err := rows.Scan(&l.msg.ID, &l.msg.AggregateType, &l.msg.AggregateID, &l.msg.EventType, &l.msg.Payload, &l.createdAt); err != nil {
			return nil, errors.Wrap(err, "scan outbox message")
		}
		batch = append(batch, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate outbox messages")
	}

	// RETURNING не сохраняет порядок подзапроса.
	slices.SortStableFunc(batch, func(a, b leased) int {
		if c := a.createdAt.Compare(b.createdAt); c != 0 {
			return c
		}
		return strings.Compare(a.msg.ID, b.msg.ID)
	})
	return lo.Map(batch, func(l leased, _ int) domain.OutboxMessage { return l.msg }), nil
}

func (r *outboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, outboxStatsSQL).Scan(&stats.PendingCount, &oldest); err != nil {
		return domain.OutboxStats{}, errors.Wrap(err, "outbox stats")
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.settle(ctx, id, "sent")
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.settle(ctx, id, "failed")
}

// settle переводит ожидающее сообщение в финальный статус и снимает аренду.
func (r *outboxRepository) settle(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, settleOutboxSQL, id, status, r.now())
	if err != nil {
		return errors.Wrapf(err, "mark outbox %s as %s", id, status)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrOutboxPublish, "outbox %s is not pending", id)
	}
	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
