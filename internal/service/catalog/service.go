// Package catalog выполняет запросы отчётности по товарам и продажам.
package catalog

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// Service проверяет аргументы и делегирует запросы репозиторию каталога.
type Service struct {
	repo   domain.CatalogRepository
	logger *log.Entry
}

func NewService(repo domain.CatalogRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{repo: repo, logger: logger}
}

// ProductsByCategoryLabel возвращает товары категории. Название сравнивается
// точно, окружающие пробелы отбрасываются.
func (s *Service) ProductsByCategoryLabel(ctx context.Context, label string) ([]domain.Product, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, domain.ErrCategoryLabelRequired
	}
	products, err := s.repo.ProductsByCategoryLabel(ctx, label)
	if err != nil {
		s.logger.WithError(err).WithField("label", label).Error("products by category failed")
		return nil, err
	}
	return products, nil
}

// UnitsSoldByCategory возвращает продажи по товарам категории. Несуществующая
// категория даёт пустой результат, а не ошибку.
func (s *Service) UnitsSoldByCategory(ctx context.Context, categoryCode int64) ([]domain.UnitsSold, error) {
	if categoryCode <= 0 {
		return nil, domain.ErrCategoryCodeInvalid
	}
	sold, err := s.repo.UnitsSoldByCategory(ctx, categoryCode)
	if err != nil {
		s.logger.WithError(err).WithField("category_code", categoryCode).Error("units sold query failed")
		return nil, err
	}
	return sold, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.ProductSummary, error) {
	return s.repo.ListProductSummaries(ctx)
}

func (s *Service) GetProduct(ctx context.Context, ref int64) (domain.Product, error) {
	if ref <= 0 {
		return domain.Product{}, domain.ErrProductRequired
	}
	return s.repo.GetProduct(ctx, ref)
}
