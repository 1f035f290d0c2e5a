// Package orders реализует сценарии работы с заказами: создание, добавление
// и изменение строк, регистрацию отправки и удаление.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/comptoirs/internal/metrics"
)

// Названия операций для метрик.
const (
	opCreateOrder    = "create_order"
	opAddLine        = "add_line"
	opUpdateLine     = "update_line"
	opRemoveLine     = "remove_line"
	opRecordShipment = "record_shipment"
	opDeleteOrder    = "delete_order"
)

// SalesInvalidator сбрасывает кэшированные агрегаты продаж после изменения строк.
type SalesInvalidator interface {
	InvalidateSales(ctx context.Context) error
}

// Dependencies: зависимости сервиса. Timeline, Outbox, Metrics и Sales опциональны.
type Dependencies struct {
	Orders    domain.OrderRepository
	Catalog   domain.CatalogRepository
	Customers domain.CustomerRepository
	Timeline  domain.TimelineRepository
	Outbox    domain.OutboxRepository
	Metrics   *metrics.OrderMetrics
	Sales     SalesInvalidator
}

// Service: доменный сервис заказов.
type Service struct {
	orders    domain.OrderRepository
	catalog   domain.CatalogRepository
	customers domain.CustomerRepository
	timeline  domain.TimelineRepository
	outbox    domain.OutboxRepository
	metrics   *metrics.OrderMetrics
	sales     SalesInvalidator
	logger    *log.Entry
	now       func() time.Time
}

// NewService собирает сервис. Orders, Catalog и Customers обязательны.
func NewService(deps Dependencies, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &Service{
		orders:    deps.Orders,
		catalog:   deps.Catalog,
		customers: deps.Customers,
		timeline:  deps.Timeline,
		outbox:    deps.Outbox,
		metrics:   deps.Metrics,
		sales:     deps.Sales,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder создаёт пустой заказ клиента с текущей датой приёма.
func (s *Service) CreateOrder(ctx context.Context, customerCode string) (domain.Order, error) {
	defer s.track(opCreateOrder)()

	if customerCode == "" {
		return domain.Order{}, s.fail(opCreateOrder, domain.ErrCustomerRequired)
	}
	if _, err := s.customers.Get(ctx, customerCode); err != nil {
		return domain.Order{}, s.fail(opCreateOrder, err)
	}

	order := domain.NewOrder(customerCode, domain.CalendarDay(s.now()))
	if err := s.orders.Save(ctx, &order); err != nil {
		return domain.Order{}, s.fail(opCreateOrder, fmt.Errorf("save order: %w", err))
	}

	s.logger.WithFields(log.Fields{
		"order_id":      order.ID,
		"customer_code": customerCode,
	}).Info("order created")

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.emit(ctx, &order, domain.TimelineOrderCreated, kafka.NewOrderEvent(kafka.EventTypeOrderCreated, order.ID, order.CustomerCode), "")

	return order, nil
}

// AddLine добавляет в заказ строку с товаром. Повторный товар в том же заказе
// отклоняется хранилищем как нарушение целостности.
func (s *Service) AddLine(ctx context.Context, orderID, productRef int64, quantity int32) (domain.Line, error) {
	defer s.track(opAddLine)()

	if quantity <= 0 {
		return domain.Line{}, s.fail(opAddLine, domain.ErrLineQuantityInvalid)
	}
	if productRef <= 0 {
		return domain.Line{}, s.fail(opAddLine, domain.ErrProductRequired)
	}

	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return domain.Line{}, s.fail(opAddLine, err)
	}

	product, err := s.catalog.GetProduct(ctx, productRef)
	if err != nil {
		return domain.Line{}, s.fail(opAddLine, err)
	}
	if product.Discontinued {
		return domain.Line{}, s.fail(opAddLine, domain.ErrProductDiscontinued)
	}

	order.AddLine(productRef, quantity)
	if err := s.orders.Save(ctx, &order); err != nil {
		return domain.Line{}, s.fail(opAddLine, fmt.Errorf("save order %d: %w", orderID, err))
	}

	line := order.Lines[order.LineFor(productRef)]
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"line_id":     line.ID,
		"product_ref": productRef,
		"quantity":    quantity,
	}).Info("line added")

	if s.metrics != nil {
		s.metrics.RecordLineAdded()
	}
	event := kafka.NewOrderEvent(kafka.EventTypeLineAdded, order.ID, order.CustomerCode).
		WithLine(line.ID, line.ProductRef, line.Quantity)
	s.emit(ctx, &order, domain.TimelineLineAdded, event, product.Name)
	s.invalidateSales(ctx)

	return line, nil
}

// UpdateLineQuantity меняет количество в строке заказа с указанным товаром.
func (s *Service) UpdateLineQuantity(ctx context.Context, orderID, productRef int64, quantity int32) (domain.Line, error) {
	defer s.track(opUpdateLine)()

	if quantity <= 0 {
		return domain.Line{}, s.fail(opUpdateLine, domain.ErrLineQuantityInvalid)
	}

	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return domain.Line{}, s.fail(opUpdateLine, err)
	}

	idx := order.LineFor(productRef)
	if idx < 0 {
		return domain.Line{}, s.fail(opUpdateLine, domain.ErrLineNotFound)
	}
	if order.Lines[idx].Quantity == quantity {
		return order.Lines[idx], nil
	}

	order.Lines[idx].Quantity = quantity
	if err := s.orders.Save(ctx, &order); err != nil {
		return domain.Line{}, s.fail(opUpdateLine, fmt.Errorf("save order %d: %w", orderID, err))
	}

	line := order.Lines[idx]
	if s.metrics != nil {
		s.metrics.RecordLineUpdated()
	}
	event := kafka.NewOrderEvent(kafka.EventTypeLineUpdated, order.ID, order.CustomerCode).
		WithLine(line.ID, line.ProductRef, line.Quantity)
	s.emit(ctx, &order, domain.TimelineLineUpdated, event, "")
	s.invalidateSales(ctx)

	return line, nil
}

// RemoveLine убирает строку с товаром из заказа; строка удаляется из хранилища при Save.
func (s *Service) RemoveLine(ctx context.Context, orderID, productRef int64) (domain.Order, error) {
	defer s.track(opRemoveLine)()

	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.fail(opRemoveLine, err)
	}

	idx := order.LineFor(productRef)
	if idx < 0 {
		return domain.Order{}, s.fail(opRemoveLine, domain.ErrLineNotFound)
	}
	removed := order.Lines[idx]
	order.RemoveLine(productRef)

	if err := s.orders.Save(ctx, &order); err != nil {
		return domain.Order{}, s.fail(opRemoveLine, fmt.Errorf("save order %d: %w", orderID, err))
	}

	if s.metrics != nil {
		s.metrics.RecordLineRemoved()
	}
	event := kafka.NewOrderEvent(kafka.EventTypeLineRemoved, order.ID, order.CustomerCode).
		WithLine(removed.ID, removed.ProductRef, removed.Quantity)
	s.emit(ctx, &order, domain.TimelineLineRemoved, event, "")
	s.invalidateSales(ctx)

	return order, nil
}

// RecordShipment отмечает заказ отправленным сегодняшней датой.
func (s *Service) RecordShipment(ctx context.Context, orderID int64) (domain.Order, error) {
	defer s.track(opRecordShipment)()

	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.fail(opRecordShipment, err)
	}

	shippedAt := domain.CalendarDay(s.now())
	order.ShippedAt = &shippedAt
	if err := s.orders.Save(ctx, &order); err != nil {
		return domain.Order{}, s.fail(opRecordShipment, fmt.Errorf("save order %d: %w", orderID, err))
	}

	s.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"shipped_at": shippedAt.Format(time.DateOnly),
	}).Info("shipment recorded")

	if s.metrics != nil {
		s.metrics.RecordOrderShipped()
	}
	event := kafka.NewOrderEvent(kafka.EventTypeOrderShipped, order.ID, order.CustomerCode)
	event.ShippedAt = &shippedAt
	s.emit(ctx, &order, domain.TimelineOrderShipped, event, "")

	return order, nil
}

// DeleteOrder удаляет заказ вместе со строками.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) error {
	defer s.track(opDeleteOrder)()

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return s.fail(opDeleteOrder, err)
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return s.fail(opDeleteOrder, fmt.Errorf("delete order %d: %w", orderID, err))
	}

	s.logger.WithField("order_id", orderID).Info("order deleted")

	if s.metrics != nil {
		s.metrics.RecordOrderDeleted()
	}
	s.emit(ctx, &order, domain.TimelineOrderDeleted, kafka.NewOrderEvent(kafka.EventTypeOrderDeleted, order.ID, order.CustomerCode), "")
	if len(order.Lines) > 0 {
		s.invalidateSales(ctx)
	}

	return nil
}

// GetOrder возвращает заказ со строками.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	return s.orders.Get(ctx, orderID)
}

// ListOrders возвращает заказы клиента, новые первыми.
func (s *Service) ListOrders(ctx context.Context, customerCode string, limit int) ([]domain.Order, error) {
	if customerCode == "" {
		return nil, domain.ErrCustomerRequired
	}
	if _, err := s.customers.Get(ctx, customerCode); err != nil {
		return nil, err
	}
	return s.orders.ListByCustomer(ctx, customerCode, limit)
}

// Customer возвращает карточку клиента.
func (s *Service) Customer(ctx context.Context, code string) (domain.Customer, error) {
	return s.customers.Get(ctx, code)
}

// Timeline возвращает историю событий заказа.
func (s *Service) Timeline(ctx context.Context, orderID int64) ([]domain.TimelineEvent, error) {
	if s.timeline == nil {
		return nil, nil
	}
	return s.timeline.List(ctx, orderID, 0)
}

// mutableOrder загружает заказ, который ещё можно менять.
func (s *Service) mutableOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Shipped() {
		return domain.Order{}, domain.ErrOrderAlreadyShipped
	}
	return order, nil
}

func (s *Service) emit(ctx context.Context, order *domain.Order, timelineType string, event *kafka.OrderEvent, reason string) {
	fields := log.Fields{
		"order_id": order.ID,
		"event":    event.EventType,
	}

	if s.outbox != nil {
		s.enqueue(ctx, event, fields)
	}

	if s.timeline == nil {
		return
	}
	entry := domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     timelineType,
		Reason:   reason,
		Occurred: s.now(),
	}
	if event.Line != nil {
		entry.ProductRef = event.Line.ProductRef
		entry.Quantity = event.Line.Quantity
	}
	seq, err := s.timeline.Append(ctx, entry)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Warn("append timeline event failed")
		return
	}
	s.logger.WithFields(fields).WithField("seq", seq).Debug("timeline event appended")
	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

func (s *Service) enqueue(ctx context.Context, event *kafka.OrderEvent, fields log.Fields) {
	event.Timestamp = s.now()
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: kafka.AggregateOrder,
		AggregateID:   event.AggregateID(),
		EventType:     string(event.EventType),
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(ctx, msg); err != nil {
		s.logger.WithError(err).WithFields(fields).Error("enqueue event failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *Service) invalidateSales(ctx context.Context) {
	if s.sales == nil {
		return
	}
	if err := s.sales.InvalidateSales(ctx); err != nil {
		s.logger.WithError(err).Warn("invalidate sales cache failed")
	}
}

func (s *Service) track(operation string) func() {
	if s.metrics == nil {
		return func() {}
	}
	return s.metrics.StartOperation(operation)
}

// fail учитывает ошибку в метриках и возвращает её без изменений.
func (s *Service) fail(operation string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordFailure(operation, reason(err))
	}
	return err
}

func reason(err error) string {
	switch {
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsValidation(err):
		return "invalid"
	case domain.IsStateConflict(err):
		return "state_conflict"
	case domain.IsIntegrityViolation(err):
		return "integrity"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
