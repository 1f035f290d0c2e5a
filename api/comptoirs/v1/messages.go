// Package comptoirsv1 описывает wire-контракт API заказов: сообщения,
// JSON-кодек gRPC и дескрипторы сервисов OrderService и CatalogService.
// Те же сообщения отдаёт REST-слой.
package comptoirsv1

import "time"

// CustomerRef: клиент заказа в ответах API.
type CustomerRef struct {
	Code        string `json:"code"`
	CompanyName string `json:"company_name"`
}

// Order: представление заказа. Даты передаются как YYYY-MM-DD,
// денежные значения строками с десятичной точкой.
type Order struct {
	Number    int64       `json:"number"`
	Customer  CustomerRef `json:"customer"`
	EntryDate string      `json:"entry_date"`
	ShippedAt *string     `json:"shipped_at"`
	Discount  string      `json:"discount"`
	Freight   string      `json:"freight"`
	Lines     []Line      `json:"lines"`
}

type Line struct {
	ID          int64 `json:"id"`
	OrderNumber int64 `json:"order_number"`
	ProductRef  int64 `json:"product_ref"`
	Quantity    int32 `json:"quantity"`
}

type Product struct {
	Reference       int64  `json:"reference"`
	Name            string `json:"name"`
	CategoryCode    int64  `json:"category_code"`
	QuantityPerUnit string `json:"quantity_per_unit"`
	UnitPrice       string `json:"unit_price"`
	UnitsInStock    int32  `json:"units_in_stock"`
	UnitsOnOrder    int32  `json:"units_on_order"`
	Discontinued    bool   `json:"discontinued"`
}

type ProductSummary struct {
	Reference int64  `json:"reference"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
}

type UnitsSold struct {
	Name  string `json:"name"`
	Units int64  `json:"units"`
}

type TimelineEvent struct {
	Seq        int64     `json:"seq"`
	Type       string    `json:"type"`
	ProductRef int64     `json:"product_ref,omitempty"`
	Quantity   int32     `json:"quantity,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Occurred   time.Time `json:"occurred"`
}

// OrderService

type CreateOrderRequest struct {
	CustomerCode string `json:"customer_code"`
}

type CreateOrderResponse struct {
	Order Order `json:"order"`
}

type AddLineRequest struct {
	OrderID    int64 `json:"order_id"`
	ProductRef int64 `json:"product_ref"`
	Quantity   int32 `json:"quantity"`
}

type AddLineResponse struct {
	Line Line `json:"line"`
}

type UpdateLineRequest struct {
	OrderID    int64 `json:"order_id"`
	ProductRef int64 `json:"product_ref"`
	Quantity   int32 `json:"quantity"`
}

type UpdateLineResponse struct {
	Line Line `json:"line"`
}

type RemoveLineRequest struct {
	OrderID    int64 `json:"order_id"`
	ProductRef int64 `json:"product_ref"`
}

type RemoveLineResponse struct {
	Order Order `json:"order"`
}

type RecordShipmentRequest struct {
	OrderID int64 `json:"order_id"`
}

type RecordShipmentResponse struct {
	Order Order `json:"order"`
}

type GetOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type GetOrderResponse struct {
	Order    Order           `json:"order"`
	Timeline []TimelineEvent `json:"timeline,omitempty"`
}

type ListOrdersRequest struct {
	CustomerCode string `json:"customer_code"`
	PageSize     int32  `json:"page_size"`
}

type ListOrdersResponse struct {
	Orders []Order `json:"orders"`
}

type DeleteOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type DeleteOrderResponse struct{}

// CatalogService

type ProductsByCategoryRequest struct {
	Label string `json:"label"`
}

type ProductsByCategoryResponse struct {
	Products []Product `json:"products"`
}

type UnitsSoldRequest struct {
	CategoryCode int64 `json:"category_code"`
}

type UnitsSoldResponse struct {
	Rows []UnitsSold `json:"rows"`
}

type ListProductsRequest struct{}

type ListProductsResponse struct {
	Products []ProductSummary `json:"products"`
}
