package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line представляет одну позицию заказа: товар и количество.
type Line struct {
	// ID: суррогатный ключ строки; 0 означает, что строка ещё не сохранена.
	ID int64
	// OrderID: заказ-владелец. После сохранения не меняется.
	OrderID int64
	// ProductRef: ссылка на товар. После сохранения не меняется.
	ProductRef int64
	// Quantity: количество единиц товара, строго больше нуля.
	Quantity int32
}

// Order агрегирует заказ клиента и принадлежащие ему строки.
type Order struct {
	// ID назначается хранилищем при первом Save; 0: заказ ещё не сохранён.
	ID           int64
	CustomerCode string
	EntryDate    time.Time
	Discount     decimal.Decimal
	Freight      decimal.Decimal
	// ShippedAt == nil означает, что заказ ещё не отправлен.
	ShippedAt *time.Time
	Lines     []Line
}

// CalendarDay приводит момент времени к началу суток по UTC, как его хранит колонка DATE.
func CalendarDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// NewOrder создаёт пустой заказ клиента с нулевой скидкой.
func NewOrder(customerCode string, entryDate time.Time) Order {
	return Order{
		CustomerCode: customerCode,
		EntryDate:    entryDate,
		Discount:     decimal.Zero,
		Freight:      decimal.Zero,
		Lines:        make([]Line, 0),
	}
}

// Shipped сообщает, зарегистрирована ли отправка заказа.
func (o *Order) Shipped() bool {
	return o.ShippedAt != nil
}

// AddLine добавляет новую строку в коллекцию заказа. Проверка уникальности
// товара выполняется хранилищем при Save.
func (o *Order) AddLine(productRef int64, quantity int32) {
	o.Lines = append(o.Lines, Line{
		OrderID:    o.ID,
		ProductRef: productRef,
		Quantity:   quantity,
	})
}

// LineFor возвращает индекс строки с указанным товаром или -1.
func (o *Order) LineFor(productRef int64) int {
	for i, line := range o.Lines {
		if line.ProductRef == productRef {
			return i
		}
	}
	return -1
}

// RemoveLine убирает строку из коллекции. Удаление из хранилища произойдёт
// при следующем Save (orphan removal).
func (o *Order) RemoveLine(productRef int64) bool {
	idx := o.LineFor(productRef)
	if idx < 0 {
		return false
	}
	o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
	return true
}

// Clone возвращает глубокую копию заказа, чтобы хранилища не делили слайсы с вызывающим кодом.
func (o Order) Clone() Order {
	dst := o
	dst.Lines = append(make([]Line, 0, len(o.Lines)), o.Lines...)
	if o.ShippedAt != nil {
		shipped := *o.ShippedAt
		dst.ShippedAt = &shipped
	}
	return dst
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
// Уникальность товара сюда не входит: это нарушение целостности, а не ошибка ввода.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerCode == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Discount.IsNegative() {
		errs = append(errs, ErrDiscountNegative)
	}

	for _, line := range o.Lines {
		if line.ProductRef <= 0 {
			errs = append(errs, ErrProductRequired)
		}
		if line.Quantity <= 0 {
			errs = append(errs, ErrLineQuantityInvalid)
		}
		if line.OrderID != 0 && line.OrderID != o.ID {
			errs = append(errs, ErrLineOwnerMismatch)
		}
	}

	return errs
}
