package orm

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
)

// Seed записывает набор данных через модели GORM в одной транзакции.
// Существующие записи пропускаются.
func Seed(ctx context.Context, db *gorm.DB, ds fixtures.Dataset) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := lo.Map(ds.Categories, func(c domain.Category, _ int) categoryModel {
			return categoryModel{Code: c.Code, Label: c.Label, Description: c.Description}
		})
		customers := lo.Map(ds.Customers, func(c domain.Customer, _ int) customerModel {
			return customerModel{Code: c.Code, CompanyName: c.CompanyName, ContactName: c.ContactName}
		})
		products := lo.Map(ds.Products, func(p domain.Product, _ int) productModel {
			return productModel{
				Reference:       p.Reference,
				Name:            p.Name,
				CategoryCode:    p.CategoryCode,
				QuantityPerUnit: p.QuantityPerUnit,
				UnitPrice:       p.UnitPrice,
				UnitsInStock:    p.UnitsInStock,
				UnitsOnOrder:    p.UnitsOnOrder,
				Discontinued:    p.Discontinued,
			}
		})

		if len(categories) > 0 {
			if err := insertMissing(tx, &categories); err != nil {
				return fmt.Errorf("seed categories: %w", err)
			}
		}
		if len(customers) > 0 {
			if err := insertMissing(tx, &customers); err != nil {
				return fmt.Errorf("seed customers: %w", err)
			}
		}
		if len(products) > 0 {
			if err := insertMissing(tx, &products); err != nil {
				return fmt.Errorf("seed products: %w", err)
			}
		}

		for _, o := range ds.Orders {
			order := orderModel{
				ID:           o.ID,
				CustomerCode: o.CustomerCode,
				EntryDate:    o.EntryDate,
				Discount:     o.Discount,
				Freight:      o.Freight,
				ShippedAt:    o.ShippedAt,
			}
			if err := insertMissing(tx, &order); err != nil {
				return fmt.Errorf("seed order %d: %w", o.ID, err)
			}
			if len(o.Lines) == 0 {
				continue
			}
			lines := lo.Map(o.Lines, func(l domain.Line, _ int) lineModel {
				return lineModel{ID: l.ID, OrderID: o.ID, ProductRef: l.ProductRef, Quantity: l.Quantity}
			})
			if err := insertMissing(tx, &lines); err != nil {
				return fmt.Errorf("seed lines of order %d: %w", o.ID, err)
			}
		}
		return nil
	})
}

// insertMissing вставляет записи, пропуская конфликтующие по ключу. Цепочка
// строится заново на каждый вызов: Statement цепочки GORM хранит модель и
// таблицу предыдущего Create.
func insertMissing(tx *gorm.DB, value any) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(value).Error
}
