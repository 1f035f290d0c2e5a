package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
)

// SeedReport: сколько записей набора было вставлено (существующие пропускаются).
type SeedReport struct {
	Categories int
	Products   int
	Customers  int
	Orders     int
	Lines      int
}

// Seed загружает набор данных с сохранением идентификаторов. Повторный запуск
// ничего не меняет: конфликтующие записи пропускаются. Последовательности
// identity сдвигаются за максимальные загруженные id.
func (s *Store) Seed(ctx context.Context, ds fixtures.Dataset) (SeedReport, error) {
	if s == nil || s.db == nil {
		return SeedReport{}, fmt.Errorf("postgres store is not initialized")
	}

	return inTx(ctx, s.db, func(tx *sql.Tx) (SeedReport, error) {
		var report SeedReport

		for _, c := range ds.Categories {
			n, err := execCount(ctx, tx, `
				INSERT INTO categories (code, label, description)
				VALUES ($1,$2,$3)
				ON CONFLICT (code) DO NOTHING
			`, c.Code, c.Label, c.Description)
			if err != nil {
				return SeedReport{}, fmt.Errorf("seed category %d: %w", c.Code, err)
			}
			report.Categories += n
		}

		for _, c := range ds.Customers {
			n, err := execCount(ctx, tx, `
				INSERT INTO customers (code, company_name, contact_name)
				VALUES ($1,$2,$3)
				ON CONFLICT (code) DO NOTHING
			`, c.Code, c.CompanyName, c.ContactName)
			if err != nil {
				return SeedReport{}, fmt.Errorf("seed customer %s: %w", c.Code, err)
			}
			report.Customers += n
		}

		for _, p := range ds.Products {
			n, err := execCount(ctx, tx, `
				INSERT INTO products (
					reference, name, category_code, quantity_per_unit, unit_price,
					units_in_stock, units_on_order, discontinued
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
				ON CONFLICT (reference) DO NOTHING
			`,
				p.Reference, p.Name, p.CategoryCode, p.QuantityPerUnit, p.UnitPrice,
				p.UnitsInStock, p.UnitsOnOrder, p.Discontinued,
			)
			if err != nil {
				return SeedReport{}, fmt.Errorf("seed product %d: %w", p.Reference, err)
			}
			report.Products += n
		}

		for _, o := range ds.Orders {
			n, err := execCount(ctx, tx, `
				INSERT INTO orders (id, customer_code, entry_date, discount, freight, shipped_at)
				VALUES ($1,$2,$3,$4,$5,$6)
				ON CONFLICT (id) DO NOTHING
			`, o.ID, o.CustomerCode, o.EntryDate, o.Discount, o.Freight, nullableTime(o.ShippedAt))
			if err != nil {
				return SeedReport{}, fmt.Errorf("seed order %d: %w", o.ID, err)
			}
			report.Orders += n

			for _, line := range o.Lines {
				n, err := execCount(ctx, tx, `
					INSERT INTO lines (id, order_id, product_ref, quantity)
					VALUES ($1,$2,$3,$4)
					ON CONFLICT DO NOTHING
				`, line.ID, o.ID, line.ProductRef, line.Quantity)
				if err != nil {
					return SeedReport{}, fmt.Errorf("seed line %d: %w", line.ID, err)
				}
				report.Lines += n
			}
		}

		for _, table := range []string{"orders", "lines"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
				SELECT setval(
					pg_get_serial_sequence('%[1]s', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 0) FROM %[1]s), 1)
				)
			`, table)); err != nil {
				return SeedReport{}, fmt.Errorf("advance %s identity: %w", table, err)
			}
		}

		return report, nil
	})
}

func execCount(ctx context.Context, tx *sql.Tx, query string, args ...any) (int, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
