package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

type catalogRepositoryInMemory struct {
	db *Database
}

// NewCatalogRepository создаёт in-memory реализацию запросов каталога.
func NewCatalogRepository(db *Database) domain.CatalogRepository {
	return &catalogRepositoryInMemory{db: db}
}

func (r *catalogRepositoryInMemory) GetProduct(_ context.Context, ref int64) (domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	product, ok := r.db.products[ref]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *catalogRepositoryInMemory) GetCategory(_ context.Context, code int64) (domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	category, ok := r.db.categories[code]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

func (r *catalogRepositoryInMemory) ProductsByCategoryLabel(_ context.Context, label string) ([]domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := make([]domain.Product, 0)
	for _, product := range r.db.products {
		category, ok := r.db.categories[product.CategoryCode]
		if !ok || category.Label != label {
			continue
		}
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Reference < result[j].Reference })
	return result, nil
}

// UnitsSoldByCategory группирует строки по названию товара; товары без строк не попадают в результат.
func (r *catalogRepositoryInMemory) UnitsSoldByCategory(_ context.Context, categoryCode int64) ([]domain.UnitsSold, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	totals := make(map[string]int64)
	for _, order := range r.db.orders {
		for _, line := range order.Lines {
			product, ok := r.db.products[line.ProductRef]
			if !ok || product.CategoryCode != categoryCode {
				continue
			}
			totals[product.Name] += int64(line.Quantity)
		}
	}

	result := make([]domain.UnitsSold, 0, len(totals))
	for name, units := range totals {
		result = append(result, domain.UnitsSold{Name: name, Units: units})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *catalogRepositoryInMemory) ListProductSummaries(_ context.Context) ([]domain.ProductSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := make([]domain.ProductSummary, 0, len(r.db.products))
	for _, product := range r.db.products {
		result = append(result, domain.ProductSummary{
			Reference: product.Reference,
			Name:      product.Name,
			UnitPrice: product.UnitPrice,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Reference < result[j].Reference })
	return result, nil
}

func (r *catalogRepositoryInMemory) LinesForProduct(_ context.Context, ref int64) ([]domain.Line, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := make([]domain.Line, 0)
	for _, order := range r.db.orders {
		for _, line := range order.Lines {
			if line.ProductRef == ref {
				result = append(result, line)
			}
		}
	}
	sortLines(result)
	return result, nil
}

var _ domain.CatalogRepository = (*catalogRepositoryInMemory)(nil)
