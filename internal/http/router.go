// Package http собирает gin-роутер REST API и HTTP-сервер.
package http

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	httpH "github.com/vladislavdragonenkov/comptoirs/internal/http/handlers"
	httpMW "github.com/vladislavdragonenkov/comptoirs/internal/http/middleware"
	"github.com/vladislavdragonenkov/comptoirs/internal/metrics"
)

type RouterConfig struct {
	OrderHandler   *httpH.OrderHandler
	CatalogHandler *httpH.CatalogHandler
	Metrics        *metrics.HTTPMetrics
	Logger         *log.Entry
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Logger))
	r.Use(httpMW.Metrics(cfg.Metrics))

	api := r.Group("/api/v1")

	// Orders
	if cfg.OrderHandler != nil {
		api.POST("/orders/for/:customerCode", cfg.OrderHandler.CreateOrder)
		api.POST("/orders/lines", cfg.OrderHandler.AddLine)
		api.GET("/orders/:orderID", cfg.OrderHandler.GetOrder)
		api.DELETE("/orders/:orderID", cfg.OrderHandler.DeleteOrder)
		api.POST("/orders/:orderID/ship", cfg.OrderHandler.RecordShipment)
		api.PATCH("/orders/:orderID/lines/:productRef", cfg.OrderHandler.UpdateLine)
		api.DELETE("/orders/:orderID/lines/:productRef", cfg.OrderHandler.RemoveLine)
		api.GET("/customers/:customerCode/orders", cfg.OrderHandler.ListOrders)
	}

	// Catalog
	if cfg.CatalogHandler != nil {
		api.GET("/products", cfg.CatalogHandler.ProductsByCategory)
		api.GET("/products/summary", cfg.CatalogHandler.ProductSummaries)
		api.GET("/categories/:code/units-sold", cfg.CatalogHandler.UnitsSold)
	}

	return r
}
