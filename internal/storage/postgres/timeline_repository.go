package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

const (
	appendTimelineSQL = `
		INSERT INTO timeline_events (order_id, type, product_ref, quantity, reason, occurred)
		VALUES ($1, $2, NULLIF($3::bigint, 0), NULLIF($4::integer, 0), $5, $6)
		RETURNING seq`
	listTimelineSQL = `
		SELECT seq, order_id, type, COALESCE(product_ref, 0), COALESCE(quantity, 0), reason, occurred
		FROM timeline_events
		WHERE order_id = $1 AND seq > $2
		ORDER BY seq`
)

// timelineRepository: журнал событий в таблице timeline_events.
// seq берётся из последовательности и задаёт порядок чтения.
type timelineRepository struct {
	db *sql.DB
}

func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{db: store.DB()}
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	var seq int64
	err := r.db.QueryRowContext(ctx, appendTimelineSQL,
		event.OrderID, event.Type, event.ProductRef, event.Quantity, event.Reason, event.Occurred,
	).Scan(&seq)
	if err != nil {
		return 0, errors.Wrapf(err, "append %s for order %d", event.Type, event.OrderID)
	}
	return seq, nil
}

func (r *timelineRepository) List(ctx context.Context, orderID, afterSeq int64) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, listTimelineSQL, orderID, afterSeq)
	if err != nil {
		return nil, errors.Wrapf(err, "timeline of order %d", orderID)
	}
	defer func() { _ = rows.Close() }()

	var events []domain.TimelineEvent
	for rows.Next() {
		var e domain.TimelineEvent
		if err := rows.Scan(&e.Seq, &e.OrderID, &e.Type, &e.ProductRef, &e.Quantity, &e.Reason, &e.Occurred); err != nil {
			return nil, errors.Wrap(err, "scan timeline event")
		}
		e.Occurred = e.Occurred.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate timeline events")
	}
	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
