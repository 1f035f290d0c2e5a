// Package grpcsvc реализует gRPC-серверы comptoirs.v1 поверх доменных сервисов.
package grpcsvc

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "github.com/vladislavdragonenkov/comptoirs/api/comptoirs/v1"
	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/dto"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/orders"
)

const (
	defaultListOrdersLimit = 100
	maxListOrdersLimit     = 1000
)

// OrderService реализует v1.OrderServiceServer.
type OrderService struct {
	orders *orders.Service
	idem   *idempotent
	logger *log.Entry
}

// NewOrderService конструирует сервис. idemRepo == nil отключает проверку
// idempotency-key.
func NewOrderService(svc *orders.Service, idemRepo domain.IdempotencyRepository, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	var idem *idempotent
	if idemRepo != nil {
		idem = &idempotent{
			repo:   idemRepo,
			logger: logger,
			now:    func() time.Time { return time.Now().UTC() },
		}
	}
	return &OrderService{orders: svc, idem: idem, logger: logger}
}

// CreateOrder создаёт пустой заказ клиента. Требует idempotency-key.
func (s *OrderService) CreateOrder(ctx context.Context, req *v1.CreateOrderRequest) (*v1.CreateOrderResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.CustomerCode == "" {
		return nil, status.Error(codes.InvalidArgument, "customer_code is required")
	}

	return withIdempotency(ctx, s.idem, v1.OrderServiceCreateOrderMethod, req,
		func(ctx context.Context) (*v1.CreateOrderResponse, error) {
			order, err := s.orders.CreateOrder(ctx, req.CustomerCode)
			if err != nil {
				return nil, toStatus(s.logger, "CreateOrder", err)
			}
			return &v1.CreateOrderResponse{Order: s.view(ctx, order)}, nil
		})
}

// AddLine добавляет строку в заказ. Требует idempotency-key.
func (s *OrderService) AddLine(ctx context.Context, req *v1.AddLineRequest) (*v1.AddLineResponse, error) {
	if req == nil || req.OrderID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	if req.ProductRef <= 0 {
		return nil, status.Error(codes.InvalidArgument, "product_ref is required")
	}

	return withIdempotency(ctx, s.idem, v1.OrderServiceAddLineMethod, req,
		func(ctx context.Context) (*v1.AddLineResponse, error) {
			line, err := s.orders.AddLine(ctx, req.OrderID, req.ProductRef, req.Quantity)
			if err != nil {
				return nil, toStatus(s.logger, "AddLine", err)
			}
			return &v1.AddLineResponse{Line: dto.Line(line)}, nil
		})
}

func (s *OrderService) UpdateLine(ctx context.Context, req *v1.UpdateLineRequest) (*v1.UpdateLineResponse, error) {
	if req == nil || req.OrderID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	line, err := s.orders.UpdateLineQuantity(ctx, req.OrderID, req.ProductRef, req.Quantity)
	if err != nil {
		return nil, toStatus(s.logger, "UpdateLine", err)
	}
	return &v1.UpdateLineResponse{Line: dto.Line(line)}, nil
}

func (s *OrderService) RemoveLine(ctx context.Context, req *v1.RemoveLineRequest) (*v1.RemoveLineResponse, error) {
	if req == nil || req.OrderID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	order, err := s.orders.RemoveLine(ctx, req.OrderID, req.ProductRef)
	if err != nil {
		return nil, toStatus(s.logger, "RemoveLine", err)
	}
	return &v1.RemoveLineResponse{Order: s.view(ctx, order)}, nil
}

// RecordShipment регистрирует отправку. Повторный вызов даёт FailedPrecondition.
func (s *OrderService) RecordShipment(ctx context.Context, req *v1.RecordShipmentRequest) (*v1.RecordShipmentResponse, error) {
	if req == nil || req.OrderID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	order, err := s.orders.RecordShipment(ctx, req.OrderID)
	if err != nil {
		return nil, toStatus(s.logger, "RecordShipment", err)
	}
	return &v1.RecordShipmentResponse{Order: s.view(ctx, order)}, nil
}

// GetOrder возвращает заказ вместе с историей событий.
func (s *OrderService) GetOrder(ctx context.Context, req *v1.GetOrderRequest) (*v1.GetOrderResponse, error) {
	if req == nil || req.OrderID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, toStatus(s.logger, "GetOrder", err)
	}

	events, err := s.orders.Timeline(ctx, order.ID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to list timeline events")
	}

	return &v1.GetOrderResponse{
		Order:    s.view(ctx, order),
		Timeline: dto.Timeline(events),
	}, nil
}

func (s *OrderService) ListOrders(ctx context.Context, req *v1.ListOrdersRequest) (*v1.ListOrdersResponse, error) {
	if req == nil || req.CustomerCode == "" {
		return nil, status.Error(codes.InvalidArgument, "customer_code is required")
	}

	limit := int(req.PageSize)
	if limit <= 0 {
		limit = defaultListOrdersLimit
	}
	if limit > maxListOrdersLimit {
		limit = maxListOrdersLimit
	}

	list, err := s.orders.ListOrders(ctx, req.CustomerCode, limit)
	if err != nil {
		return nil, toStatus(s.logger, "ListOrders", err)
	}

	customer, err := s.orders.Customer(ctx, req.CustomerCode)
	if err != nil {
		customer = domain.Customer{Code: req.CustomerCode}
	}

	resp := &v1.ListOrdersResponse{Orders: make([]v1.Order, 0, len(list))}
	for _, order := range list {
		resp.Orders = append(resp.Orders, dto.Order(order, customer))
	}
	return resp, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, req *v1.DeleteOrderRequest) (*v1.DeleteOrderResponse, error) {
	if req == nil || req.OrderID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	if err := s.orders.DeleteOrder(ctx, req.OrderID); err != nil {
		return nil, toStatus(s.logger, "DeleteOrder", err)
	}
	return &v1.DeleteOrderResponse{}, nil
}

// view дополняет заказ названием клиента; сбой справочника не ломает ответ.
func (s *OrderService) view(ctx context.Context, order domain.Order) v1.Order {
	customer, err := s.orders.Customer(ctx, order.CustomerCode)
	if err != nil {
		s.logger.WithError(err).WithField("customer_code", order.CustomerCode).Debug("customer lookup failed")
	}
	return dto.Order(order, customer)
}

var _ v1.OrderServiceServer = (*OrderService)(nil)
