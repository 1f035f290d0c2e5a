package orm

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// Модели повторяют схему из SQL-миграций и служат только для чтения каталога.

type categoryModel struct {
	Code        int64  `gorm:"column:code;primaryKey;autoIncrement:false"`
	Label       string `gorm:"column:label;not null;uniqueIndex"`
	Description string `gorm:"column:description;not null;default:''"`
}

func (categoryModel) TableName() string { return "categories" }

type customerModel struct {
	Code        string `gorm:"column:code;primaryKey;size:5"`
	CompanyName string `gorm:"column:company_name;not null"`
	ContactName string `gorm:"column:contact_name;not null;default:''"`
}

func (customerModel) TableName() string { return "customers" }

type productModel struct {
	Reference       int64           `gorm:"column:reference;primaryKey;autoIncrement:false"`
	Name            string          `gorm:"column:name;not null;uniqueIndex"`
	CategoryCode    int64           `gorm:"column:category_code;not null;index"`
	QuantityPerUnit string          `gorm:"column:quantity_per_unit;not null;default:''"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	UnitsInStock    int32           `gorm:"column:units_in_stock;not null"`
	UnitsOnOrder    int32           `gorm:"column:units_on_order;not null"`
	Discontinued    bool            `gorm:"column:discontinued;not null"`

	Category categoryModel `gorm:"foreignKey:CategoryCode;references:Code"`
}

func (productModel) TableName() string { return "products" }

type orderModel struct {
	ID           int64           `gorm:"column:id;primaryKey"`
	CustomerCode string          `gorm:"column:customer_code;size:5;not null"`
	EntryDate    time.Time       `gorm:"column:entry_date;not null"`
	Discount     decimal.Decimal `gorm:"column:discount;type:numeric(6,4);not null"`
	Freight      decimal.Decimal `gorm:"column:freight;type:numeric(12,2);not null"`
	ShippedAt    *time.Time      `gorm:"column:shipped_at"`

	Customer customerModel `gorm:"foreignKey:CustomerCode;references:Code"`
	Lines    []lineModel   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderModel) TableName() string { return "orders" }

type lineModel struct {
	ID         int64 `gorm:"column:id;primaryKey"`
	OrderID    int64 `gorm:"column:order_id;not null;uniqueIndex:lines_order_product_key"`
	ProductRef int64 `gorm:"column:product_ref;not null;index;uniqueIndex:lines_order_product_key"`
	Quantity   int32 `gorm:"column:quantity;not null;check:lines_quantity_check,quantity > 0"`

	Product productModel `gorm:"foreignKey:ProductRef;references:Reference"`
}

func (lineModel) TableName() string { return "lines" }

type unitsSoldRow struct {
	Name  string
	Units int64
}

func (m productModel) toDomain() domain.Product {
	return domain.Product{
		Reference:       m.Reference,
		Name:            m.Name,
		CategoryCode:    m.CategoryCode,
		QuantityPerUnit: m.QuantityPerUnit,
		UnitPrice:       m.UnitPrice,
		UnitsInStock:    m.UnitsInStock,
		UnitsOnOrder:    m.UnitsOnOrder,
		Discontinued:    m.Discontinued,
	}
}

func (m lineModel) toDomain() domain.Line {
	return domain.Line{ID: m.ID, OrderID: m.OrderID, ProductRef: m.ProductRef, Quantity: m.Quantity}
}
