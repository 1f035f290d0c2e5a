package orm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

const opTimeout = 5 * time.Second

// CatalogRepository: декларативная форма запросов каталога. Результаты
// совпадают с SQL-реализацией из пакета postgres.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository создаёт репозиторий каталога поверх GORM.
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetProduct(ctx context.Context, ref int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var model productModel
	if err := r.db.WithContext(ctx).First(&model, "reference = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return model.toDomain(), nil
}

func (r *CatalogRepository) GetCategory(ctx context.Context, code int64) (domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var model categoryModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}
	return domain.Category{Code: model.Code, Label: model.Label, Description: model.Description}, nil
}

func (r *CatalogRepository) ProductsByCategoryLabel(ctx context.Context, label string) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var models []productModel
	err := r.db.WithContext(ctx).
		Joins("JOIN categories ON categories.code = products.category_code").
		Where("categories.label = ?", label).
		Order("products.reference").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("products by category label: %w", err)
	}

	return lo.Map(models, func(m productModel, _ int) domain.Product { return m.toDomain() }), nil
}

func (r *CatalogRepository) unitsSoldQuery(ctx context.Context, categoryCode int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&productModel{}).
		Select("products.name AS name, SUM(lines.quantity) AS units").
		Joins("JOIN lines ON lines.product_ref = products.reference").
		Where("products.category_code = ?", categoryCode).
		Group("products.name").
		Order("products.name")
}

func (r *CatalogRepository) UnitsSoldByCategory(ctx context.Context, categoryCode int64) ([]domain.UnitsSold, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var rows []unitsSoldRow
	if err := r.unitsSoldQuery(ctx, categoryCode).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("units sold by category: %w", err)
	}

	return lo.Map(rows, func(row unitsSoldRow, _ int) domain.UnitsSold {
		return domain.UnitsSold{Name: row.Name, Units: row.Units}
	}), nil
}

// UnitsSoldTuples возвращает тот же отчёт в позиционной форме: (название, количество).
func (r *CatalogRepository) UnitsSoldTuples(ctx context.Context, categoryCode int64) ([][]any, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.unitsSoldQuery(ctx, categoryCode).Rows()
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

func (r *CatalogRepository) ListProductSummaries(ctx context.Context) ([]domain.ProductSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var models []productModel
	err := r.db.WithContext(ctx).
		Select("reference", "name", "unit_price").
		Order("reference").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list product summaries: %w", err)
	}

	return lo.Map(models, func(m productModel, _ int) domain.ProductSummary {
		return domain.ProductSummary{Reference: m.Reference, Name: m.Name, UnitPrice: m.UnitPrice}
	}), nil
}

func (r *CatalogRepository) LinesForProduct(ctx context.Context, ref int64) ([]domain.Line, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var models []lineModel
	if err := r.db.WithContext(ctx).Where("product_ref = ?", ref).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("lines for product: %w", err)
	}
	return lo.Map(models, func(m lineModel, _ int) domain.Line { return m.toDomain() }), nil
}

var _ domain.CatalogRepository = (*CatalogRepository)(nil)
