// Package fixtures содержит небольшой детерминированный набор данных для
// локального запуска и тестов хранилищ.
package fixtures

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// Ссылки на записи набора, на которые опираются тесты.
const (
	CategoryBeverages  int64 = 1
	CategoryCondiments int64 = 2

	ProductChai      int64 = 98
	ProductChang     int64 = 99
	ProductAniseed   int64 = 97
	ProductIkura     int64 = 96
	ProductGuarana   int64 = 95
	ProductChartreus int64 = 94

	CustomerComptoir = "0COM"
	CustomerAlfreds  = "ALFKI"

	OrderAlfreds  int64 = 99998
	OrderComptoir int64 = 99999
)

// Dataset: полный набор справочных данных и заказов.
type Dataset struct {
	Categories []domain.Category
	Products   []domain.Product
	Customers  []domain.Customer
	Orders     []domain.Order
}

// LineCount возвращает общее число строк во всех заказах набора.
func (d Dataset) LineCount() int {
	total := 0
	for _, order := range d.Orders {
		total += len(order.Lines)
	}
	return total
}

// SmallData возвращает новый экземпляр набора: два заказа и три строки.
// Заказ 99999 содержит две строки, товар 98 упомянут в двух строках, товар 99 в одной.
func SmallData() Dataset {
	entry := time.Date(1994, time.August, 4, 0, 0, 0, 0, time.UTC)
	shipped := time.Date(1994, time.August, 16, 0, 0, 0, 0, time.UTC)

	return Dataset{
		Categories: []domain.Category{
			{Code: CategoryBeverages, Label: "Boissons", Description: "Boissons, cafés, thés, bières"},
			{Code: CategoryCondiments, Label: "Condiments", Description: "Sauces, assaisonnements et épices"},
		},
		Products: []domain.Product{
			{
				Reference: ProductChai, Name: "Chai", CategoryCode: CategoryBeverages,
				QuantityPerUnit: "10 boîtes x 20 sacs", UnitPrice: decimal.RequireFromString("90.00"),
				UnitsInStock: 39, UnitsOnOrder: 0,
			},
			{
				Reference: ProductChang, Name: "Chang", CategoryCode: CategoryBeverages,
				QuantityPerUnit: "24 bouteilles (1 litre)", UnitPrice: decimal.RequireFromString("95.00"),
				UnitsInStock: 17, UnitsOnOrder: 40,
			},
			{
				Reference: ProductIkura, Name: "Ikura", CategoryCode: CategoryBeverages,
				QuantityPerUnit: "12 pots (200 g)", UnitPrice: decimal.RequireFromString("155.00"),
				UnitsInStock: 31,
			},
			{
				Reference: ProductChartreus, Name: "Chartreuse verte", CategoryCode: CategoryBeverages,
				QuantityPerUnit: "750 cc par bouteille", UnitPrice: decimal.RequireFromString("90.00"),
				UnitsInStock: 69, Discontinued: true,
			},
			{
				Reference: ProductAniseed, Name: "Aniseed Syrup", CategoryCode: CategoryCondiments,
				QuantityPerUnit: "12 bouteilles (550 ml)", UnitPrice: decimal.RequireFromString("50.00"),
				UnitsInStock: 13, UnitsOnOrder: 70,
			},
			{
				Reference: ProductGuarana, Name: "Guaraná Fantástica", CategoryCode: CategoryCondiments,
				QuantityPerUnit: "12 canettes (355 ml)", UnitPrice: decimal.RequireFromString("22.50"),
				UnitsInStock: 20,
			},
		},
		Customers: []domain.Customer{
			{Code: CustomerComptoir, CompanyName: "Comptoir Test", ContactName: "Bastide"},
			{Code: CustomerAlfreds, CompanyName: "Alfreds Futterkiste", ContactName: "Maria Anders"},
		},
		Orders: []domain.Order{
			{
				ID:           OrderAlfreds,
				CustomerCode: CustomerAlfreds,
				EntryDate:    entry,
				Discount:     decimal.Zero,
				Freight:      decimal.RequireFromString("32.38"),
				ShippedAt:    &shipped,
				Lines: []domain.Line{
					{ID: 1, OrderID: OrderAlfreds, ProductRef: ProductChai, Quantity: 10},
				},
			},
			{
				ID:           OrderComptoir,
				CustomerCode: CustomerComptoir,
				EntryDate:    entry,
				Discount:     decimal.RequireFromString("0.05"),
				Freight:      decimal.Zero,
				Lines: []domain.Line{
					{ID: 2, OrderID: OrderComptoir, ProductRef: ProductChai, Quantity: 20},
					{ID: 3, OrderID: OrderComptoir, ProductRef: ProductChang, Quantity: 5},
				},
			},
		},
	}
}
