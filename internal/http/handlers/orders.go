// Package handlers содержит gin-обработчики REST API заказов и каталога.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	v1 "github.com/vladislavdragonenkov/comptoirs/api/comptoirs/v1"
	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/dto"
	"github.com/vladislavdragonenkov/comptoirs/internal/http/response"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/orders"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// OrderHandler обслуживает маршруты /orders и /customers.
type OrderHandler struct {
	orders *orders.Service
	logger *log.Entry
}

func NewOrderHandler(svc *orders.Service, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &OrderHandler{orders: svc, logger: logger.WithField("component", "order-handler")}
}

// CreateOrder POST /orders/for/:customerCode
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	order, err := h.orders.CreateOrder(c.Request.Context(), c.Param("customerCode"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, h.view(c.Request.Context(), order))
}

// AddLine POST /orders/lines?order=&product=&quantity=
func (h *OrderHandler) AddLine(c *gin.Context) {
	orderID, err := positiveInt64(c.Query("order"), "order")
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	productRef, err := positiveInt64(c.Query("product"), "product")
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	quantity, err := parseQuantity(c.Query("quantity"))
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	line, err := h.orders.AddLine(c.Request.Context(), orderID, productRef, quantity)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, dto.Line(line))
}

// UpdateLine PATCH /orders/:orderID/lines/:productRef?quantity=
func (h *OrderHandler) UpdateLine(c *gin.Context) {
	orderID, productRef, ok := h.lineParams(c)
	if !ok {
		return
	}
	quantity, err := parseQuantity(c.Query("quantity"))
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	line, err := h.orders.UpdateLineQuantity(c.Request.Context(), orderID, productRef, quantity)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, dto.Line(line))
}

// RemoveLine DELETE /orders/:orderID/lines/:productRef
func (h *OrderHandler) RemoveLine(c *gin.Context) {
	orderID, productRef, ok := h.lineParams(c)
	if !ok {
		return
	}

	order, err := h.orders.RemoveLine(c.Request.Context(), orderID, productRef)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, h.view(c.Request.Context(), order))
}

// RecordShipment POST /orders/:orderID/ship
func (h *OrderHandler) RecordShipment(c *gin.Context) {
	orderID, err := positiveInt64(c.Param("orderID"), "orderID")
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	order, err := h.orders.RecordShipment(c.Request.Context(), orderID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, h.view(c.Request.Context(), order))
}

// GetOrder GET /orders/:orderID
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := positiveInt64(c.Param("orderID"), "orderID")
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	events, err := h.orders.Timeline(c.Request.Context(), orderID)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", orderID).Warn("failed to list timeline events")
	}

	response.OK(c, v1.GetOrderResponse{
		Order:    h.view(c.Request.Context(), order),
		Timeline: dto.Timeline(events),
	})
}

// DeleteOrder DELETE /orders/:orderID
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	orderID, err := positiveInt64(c.Param("orderID"), "orderID")
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		response.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListOrders GET /customers/:customerCode/orders?limit=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(c, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(parsed, maxListLimit)
	}

	code := c.Param("customerCode")
	list, err := h.orders.ListOrders(c.Request.Context(), code, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	customer, err := h.orders.Customer(c.Request.Context(), code)
	if err != nil {
		customer = domain.Customer{Code: code}
	}

	out := make([]v1.Order, 0, len(list))
	for _, order := range list {
		out = append(out, dto.Order(order, customer))
	}
	response.OK(c, v1.ListOrdersResponse{Orders: out})
}

func (h *OrderHandler) lineParams(c *gin.Context) (int64, int64, bool) {
	orderID, err := positiveInt64(c.Param("orderID"), "orderID")
	if err != nil {
		response.BadRequest(c, err)
		return 0, 0, false
	}
	productRef, err := positiveInt64(c.Param("productRef"), "productRef")
	if err != nil {
		response.BadRequest(c, err)
		return 0, 0, false
	}
	return orderID, productRef, true
}

func (h *OrderHandler) view(ctx context.Context, order domain.Order) v1.Order {
	customer, err := h.orders.Customer(ctx, order.CustomerCode)
	if err != nil {
		h.logger.WithError(err).WithField("customer_code", order.CustomerCode).Debug("customer lookup failed")
	}
	return dto.Order(order, customer)
}
