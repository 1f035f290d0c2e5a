package domain

import "time"

// Типы событий жизненного цикла заказа.
const (
	TimelineOrderCreated = "OrderCreated"
	TimelineLineAdded    = "LineAdded"
	TimelineLineUpdated  = "LineUpdated"
	TimelineLineRemoved  = "LineRemoved"
	TimelineOrderShipped = "OrderShipped"
	TimelineOrderDeleted = "OrderDeleted"
)

// TimelineEvent: запись журнала заказа. Журнал не ссылается на orders
// внешним ключом и переживает удаление заказа.
type TimelineEvent struct {
	// Seq назначается журналом при записи и возрастает монотонно.
	Seq     int64
	OrderID int64
	Type    string
	// ProductRef заполнен только для событий по строкам.
	ProductRef int64
	Quantity   int32
	Reason     string
	Occurred   time.Time
}

// AboutLine сообщает, относится ли событие к строке заказа.
func (e TimelineEvent) AboutLine() bool {
	return e.ProductRef != 0
}
