package domain

import "github.com/shopspring/decimal"

// Category группирует товары; идентифицируется числовым кодом.
type Category struct {
	Code        int64
	Label       string
	Description string
}

// Product: справочная запись товара. Строки заказов ссылаются на неё по Reference.
type Product struct {
	Reference       int64
	Name            string
	CategoryCode    int64
	QuantityPerUnit string
	UnitPrice       decimal.Decimal
	UnitsInStock    int32
	UnitsOnOrder    int32
	Discontinued    bool
}

// Customer: справочная запись клиента.
type Customer struct {
	Code        string
	CompanyName string
	ContactName string
}

// ProductSummary: облегчённая проекция товара для списков.
type ProductSummary struct {
	Reference int64
	Name      string
	UnitPrice decimal.Decimal
}

// UnitsSold: сумма проданных единиц товара в рамках категории.
type UnitsSold struct {
	Name  string
	Units int64
}
