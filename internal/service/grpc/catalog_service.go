package grpcsvc

import (
	"context"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "github.com/vladislavdragonenkov/comptoirs/api/comptoirs/v1"
	"github.com/vladislavdragonenkov/comptoirs/internal/dto"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/catalog"
)

// CatalogService реализует v1.CatalogServiceServer.
type CatalogService struct {
	catalog *catalog.Service
	logger  *log.Entry
}

func NewCatalogService(svc *catalog.Service, logger *log.Entry) *CatalogService {
	if logger == nil {
		logger = log.New().WithField("component", "catalog-service")
	}
	return &CatalogService{catalog: svc, logger: logger}
}

func (s *CatalogService) ProductsByCategory(ctx context.Context, req *v1.ProductsByCategoryRequest) (*v1.ProductsByCategoryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	products, err := s.catalog.ProductsByCategoryLabel(ctx, req.Label)
	if err != nil {
		return nil, toStatus(s.logger, "ProductsByCategory", err)
	}
	return &v1.ProductsByCategoryResponse{Products: dto.Products(products)}, nil
}

func (s *CatalogService) UnitsSold(ctx context.Context, req *v1.UnitsSoldRequest) (*v1.UnitsSoldResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	rows, err := s.catalog.UnitsSoldByCategory(ctx, req.CategoryCode)
	if err != nil {
		return nil, toStatus(s.logger, "UnitsSold", err)
	}
	return &v1.UnitsSoldResponse{Rows: dto.UnitsSold(rows)}, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, _ *v1.ListProductsRequest) (*v1.ListProductsResponse, error) {
	summaries, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, toStatus(s.logger, "ListProducts", err)
	}
	return &v1.ListProductsResponse{Products: dto.ProductSummaries(summaries)}, nil
}

var _ v1.CatalogServiceServer = (*CatalogService)(nil)
