package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// Запросы каталога. Продажи считаются через INNER JOIN: товары без строк
// заказов в результат не попадают.
const (
	queryProductsByCategoryLabel = `
		SELECT p.reference, p.name, p.category_code, p.quantity_per_unit, p.unit_price,
		       p.units_in_stock, p.units_on_order, p.discontinued
		FROM products p
		JOIN categories c ON c.code = p.category_code
		WHERE c.label = $1
		ORDER BY p.reference`

	queryUnitsSoldByCategory = `
		SELECT p.name, SUM(l.quantity) AS units
		FROM products p
		JOIN lines l ON l.product_ref = p.reference
		WHERE p.category_code = $1
		GROUP BY p.name
		ORDER BY p.name`
)

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию запросов каталога на сыром SQL.
func NewCatalogRepository(store *Store) domain.CatalogRepository {
	return &catalogRepository{db: store.DB()}
}

func (r *catalogRepository) GetProduct(ctx context.Context, ref int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	product, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT reference, name, category_code, quantity_per_unit, unit_price,
		       units_in_stock, units_on_order, discontinued
		FROM products
		WHERE reference = $1
	`, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *catalogRepository) GetCategory(ctx context.Context, code int64) (domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var category domain.Category
	err := r.db.QueryRowContext(ctx, `
		SELECT code, label, description FROM categories WHERE code = $1
	`, code).Scan(&category.Code, &category.Label, &category.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("select category: %w", err)
	}
	return category, nil
}

func (r *catalogRepository) ProductsByCategoryLabel(ctx context.Context, label string) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, queryProductsByCategoryLabel, label)
	if err != nil {
		return nil, fmt.Errorf("products by category label: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (r *catalogRepository) UnitsSoldByCategory(ctx context.Context, categoryCode int64) ([]domain.UnitsSold, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, queryUnitsSoldByCategory, categoryCode)
	if err != nil {
		return nil, fmt.Errorf("units sold by category: %w", err)
	}
	defer rows.Close()

	result := make([]domain.UnitsSold, 0)
	for rows.Next() {
		var sold domain.UnitsSold
		if err := rows.Scan(&sold.Name, &sold.Units); err != nil {
			return nil, fmt.Errorf("scan units sold: %w", err)
		}
		result = append(result, sold)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units sold: %w", err)
	}
	return result, nil
}

// UnitsSoldTuples: позиционная форма того же отчёта: каждая строка: (название, количество).
func (r *catalogRepository) UnitsSoldTuples(ctx context.Context, categoryCode int64) ([][]any, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, queryUnitsSoldByCategory, categoryCode)
	if err != nil {
		return nil, fmt.Errorf("units sold tuples: %w", err)
	}
	defer rows.Close()

	result := make([][]any, 0)
	for rows.Next() {
		var (
			name  string
			units int64
		)
		if err := rows.Scan(&name, &units); err != nil {
			return nil, fmt.Errorf("scan units sold tuple: %w", err)
		}
		result = append(result, []any{name, units})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units sold tuples: %w", err)
	}
	return result, nil
}

func (r *catalogRepository) ListProductSummaries(ctx context.Context) ([]domain.ProductSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT reference, name, unit_price FROM products ORDER BY reference
	`)
	if err != nil {
		return nil, fmt.Errorf("list product summaries: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ProductSummary, 0)
	for rows.Next() {
		var summary domain.ProductSummary
		if err := rows.Scan(&summary.Reference, &summary.Name, &summary.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan product summary: %w", err)
		}
		result = append(result, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product summaries: %w", err)
	}
	return result, nil
}

func (r *catalogRepository) LinesForProduct(ctx context.Context, ref int64) ([]domain.Line, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_ref, quantity
		FROM lines
		WHERE product_ref = $1
		ORDER BY id
	`, ref)
	if err != nil {
		return nil, fmt.Errorf("lines for product: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.Line, 0)
	for rows.Next() {
		var line domain.Line
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductRef, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return lines, nil
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.Reference, &p.Name, &p.CategoryCode, &p.QuantityPerUnit, &p.UnitPrice,
		&p.UnitsInStock, &p.UnitsOnOrder, &p.Discontinued,
	)
	return p, err
}

var _ domain.CatalogRepository = (*catalogRepository)(nil)
