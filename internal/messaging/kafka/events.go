package kafka

import (
	"strconv"
	"time"
)

// EventType определяет тип события заказа.
type EventType string

const (
	EventTypeOrderCreated EventType = "order.created"
	EventTypeOrderShipped EventType = "order.shipped"
	EventTypeOrderDeleted EventType = "order.deleted"
	EventTypeLineAdded    EventType = "order.line_added"
	EventTypeLineUpdated  EventType = "order.line_updated"
	EventTypeLineRemoved  EventType = "order.line_removed"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "comptoirs.order.events"
	TopicDeadLetterQueue = "comptoirs.order.dlq"
)

// AggregateOrder: тип агрегата в outbox-сообщениях заказов.
const AggregateOrder = "order"

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType    EventType  `json:"event_type"`
	OrderID      int64      `json:"order_id"`
	CustomerCode string     `json:"customer_code"`
	Timestamp    time.Time  `json:"timestamp"`
	Line         *LineEvent `json:"line,omitempty"`
	ShippedAt    *time.Time `json:"shipped_at,omitempty"`
}

// LineEvent описывает затронутую строку заказа.
type LineEvent struct {
	LineID     int64 `json:"line_id"`
	ProductRef int64 `json:"product_ref"`
	Quantity   int32 `json:"quantity"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID int64, customerCode string) *OrderEvent {
	return &OrderEvent{
		EventType:    eventType,
		OrderID:      orderID,
		CustomerCode: customerCode,
		Timestamp:    time.Now().UTC(),
	}
}

// WithLine прикладывает к событию данные строки.
func (e *OrderEvent) WithLine(lineID, productRef int64, quantity int32) *OrderEvent {
	e.Line = &LineEvent{LineID: lineID, ProductRef: productRef, Quantity: quantity}
	return e
}

// AggregateID возвращает ключ сообщения: номер заказа строкой.
func (e *OrderEvent) AggregateID() string {
	return strconv.FormatInt(e.OrderID, 10)
}
