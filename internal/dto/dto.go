// Package dto отображает доменные типы в сообщения API comptoirs.v1.
package dto

import (
	"time"

	"github.com/samber/lo"

	v1 "github.com/vladislavdragonenkov/comptoirs/api/comptoirs/v1"
	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// Order собирает представление заказа. Если название клиента неизвестно,
// передаётся пустое значение customer, и заполняется только код.
func Order(order domain.Order, customer domain.Customer) v1.Order {
	if customer.Code == "" {
		customer.Code = order.CustomerCode
	}

	var shipped *string
	if order.ShippedAt != nil {
		shipped = lo.ToPtr(formatDate(*order.ShippedAt))
	}

	return v1.Order{
		Number: order.ID,
		Customer: v1.CustomerRef{
			Code:        customer.Code,
			CompanyName: customer.CompanyName,
		},
		EntryDate: formatDate(order.EntryDate),
		ShippedAt: shipped,
		Discount:  order.Discount.String(),
		Freight:   order.Freight.String(),
		Lines:     Lines(order.Lines),
	}
}

func Line(line domain.Line) v1.Line {
	return v1.Line{
		ID:          line.ID,
		OrderNumber: line.OrderID,
		ProductRef:  line.ProductRef,
		Quantity:    line.Quantity,
	}
}

// Lines никогда не возвращает nil, чтобы в JSON был пустой массив.
func Lines(lines []domain.Line) []v1.Line {
	return lo.Map(lines, func(l domain.Line, _ int) v1.Line { return Line(l) })
}

func Product(p domain.Product) v1.Product {
	return v1.Product{
		Reference:       p.Reference,
		Name:            p.Name,
		CategoryCode:    p.CategoryCode,
		QuantityPerUnit: p.QuantityPerUnit,
		UnitPrice:       p.UnitPrice.StringFixed(2),
		UnitsInStock:    p.UnitsInStock,
		UnitsOnOrder:    p.UnitsOnOrder,
		Discontinued:    p.Discontinued,
	}
}

func Products(products []domain.Product) []v1.Product {
	return lo.Map(products, func(p domain.Product, _ int) v1.Product { return Product(p) })
}

func ProductSummaries(summaries []domain.ProductSummary) []v1.ProductSummary {
	return lo.Map(summaries, func(s domain.ProductSummary, _ int) v1.ProductSummary {
		return v1.ProductSummary{
			Reference: s.Reference,
			Name:      s.Name,
			UnitPrice: s.UnitPrice.StringFixed(2),
		}
	})
}

func UnitsSold(rows []domain.UnitsSold) []v1.UnitsSold {
	return lo.Map(rows, func(r domain.UnitsSold, _ int) v1.UnitsSold {
		return v1.UnitsSold{Name: r.Name, Units: r.Units}
	})
}

func Timeline(events []domain.TimelineEvent) []v1.TimelineEvent {
	return lo.Map(events, func(e domain.TimelineEvent, _ int) v1.TimelineEvent {
		return v1.TimelineEvent{
			Seq:        e.Seq,
			Type:       e.Type,
			ProductRef: e.ProductRef,
			Quantity:   e.Quantity,
			Reason:     e.Reason,
			Occurred:   e.Occurred.UTC(),
		}
	})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
