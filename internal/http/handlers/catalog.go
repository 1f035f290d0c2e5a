package handlers

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/vladislavdragonenkov/comptoirs/api/comptoirs/v1"
	"github.com/vladislavdragonenkov/comptoirs/internal/dto"
	"github.com/vladislavdragonenkov/comptoirs/internal/http/response"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/catalog"
)

// CatalogHandler обслуживает справочные запросы по товарам и продажам.
type CatalogHandler struct {
	catalog *catalog.Service
}

func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalog: svc}
}

// ProductsByCategory GET /products?category=<label>
func (h *CatalogHandler) ProductsByCategory(c *gin.Context) {
	products, err := h.catalog.ProductsByCategoryLabel(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, v1.ProductsByCategoryResponse{Products: dto.Products(products)})
}

// ProductSummaries GET /products/summary
func (h *CatalogHandler) ProductSummaries(c *gin.Context) {
	summaries, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, v1.ListProductsResponse{Products: dto.ProductSummaries(summaries)})
}

// UnitsSold GET /categories/:code/units-sold
func (h *CatalogHandler) UnitsSold(c *gin.Context) {
	code, err := positiveInt64(c.Param("code"), "code")
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	rows, err := h.catalog.UnitsSoldByCategory(c.Request.Context(), code)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, v1.UnitsSoldResponse{Rows: dto.UnitsSold(rows)})
}
