package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// queryer: общее подмножество *sql.DB и *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, customer_code, entry_date, discount, freight, shipped_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	lines, err := loadLines(ctx, r.db, order.ID, false)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

// Save сохраняет заголовок заказа и сверяет строки в одной транзакции.
// Порядок операций: удаление, обновление, вставка, чтобы повторно добавленный
// товар не конфликтовал с ещё не удалённой строкой.
func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return errors.Join(errs...)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	saved, err := inTx(ctx, r.db, func(tx *sql.Tx) (domain.Order, error) {
		return r.saveTx(ctx, tx, *order)
	})
	if err != nil {
		return err
	}

	order.ID = saved.ID
	order.EntryDate = saved.EntryDate
	order.Lines = saved.Lines
	return nil
}

func (r *orderRepository) saveTx(ctx context.Context, tx *sql.Tx, order domain.Order) (domain.Order, error) {
	entryDate := order.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now()
	}
	entryDate = domain.CalendarDay(entryDate)

	var stored []domain.Line
	if order.ID == 0 {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (customer_code, entry_date, discount, freight, shipped_at)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`,
			order.CustomerCode, entryDate, order.Discount, order.Freight, nullableTime(order.ShippedAt),
		).Scan(&order.ID); err != nil {
			return domain.Order{}, fmt.Errorf("insert order: %w", mapOrderWriteError(err))
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET customer_code = $1,
			    entry_date = $2,
			    discount = $3,
			    freight = $4,
			    shipped_at = $5
			WHERE id = $6
		`,
			order.CustomerCode, entryDate, order.Discount, order.Freight, nullableTime(order.ShippedAt), order.ID,
		)
		if err != nil {
			return domain.Order{}, fmt.Errorf("update order: %w", mapOrderWriteError(err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return domain.Order{}, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return domain.Order{}, domain.ErrOrderNotFound
		}

		stored, err = loadLines(ctx, tx, order.ID, true)
		if err != nil {
			return domain.Order{}, err
		}
	}

	changes, err := domain.DiffLines(order.ID, stored, order.Lines)
	if err != nil {
		return domain.Order{}, err
	}

	for _, line := range changes.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lines WHERE id = $1`, line.ID); err != nil {
			return domain.Order{}, fmt.Errorf("delete line %d: %w", line.ID, err)
		}
	}
	for _, line := range changes.Update {
		if _, err := tx.ExecContext(ctx, `
			UPDATE lines SET quantity = $1 WHERE id = $2 AND order_id = $3
		`, line.Quantity, line.ID, order.ID); err != nil {
			return domain.Order{}, fmt.Errorf("update line %d: %w", line.ID, mapLineWriteError(err, line))
		}
	}

	insertedIDs := make(map[int64]int64, len(changes.Insert))
	for _, line := range changes.Insert {
		var id int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO lines (order_id, product_ref, quantity)
			VALUES ($1,$2,$3)
			RETURNING id
		`, order.ID, line.ProductRef, line.Quantity).Scan(&id); err != nil {
			return domain.Order{}, fmt.Errorf("insert line: %w", mapLineWriteError(err, line))
		}
		insertedIDs[line.ProductRef] = id
	}

	saved := order.Clone()
	saved.EntryDate = entryDate
	for i := range saved.Lines {
		saved.Lines[i].OrderID = order.ID
		if saved.Lines[i].ID == 0 {
			saved.Lines[i].ID = insertedIDs[saved.Lines[i].ProductRef]
		}
	}
	return saved, nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerCode string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, customer_code, entry_date, discount, freight, shipped_at
		FROM orders
		WHERE customer_code = $1
		ORDER BY entry_date DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", customerCode, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, customerCode)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	_ = rows.Close()

	for i := range orders {
		lines, err := loadLines(ctx, r.db, orders[i].ID, false)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}

func (r *orderRepository) CountLines(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lines`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count lines: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order   domain.Order
		shipped sql.NullTime
	)
	if err := row.Scan(
		&order.ID, &order.CustomerCode, &order.EntryDate,
		&order.Discount, &order.Freight, &shipped,
	); err != nil {
		return domain.Order{}, err
	}
	order.EntryDate = order.EntryDate.UTC()
	if shipped.Valid {
		at := shipped.Time.UTC()
		order.ShippedAt = &at
	}
	return order, nil
}

func loadLines(ctx context.Context, q queryer, orderID int64, forUpdate bool) ([]domain.Line, error) {
	query := `
		SELECT id, order_id, product_ref, quantity
		FROM lines
		WHERE order_id = $1
		ORDER BY id ASC
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.Line, 0)
	for rows.Next() {
		var line domain.Line
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductRef, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ domain.OrderRepository = (*orderRepository)(nil)
