package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
)

// Database: общий in-memory набор таблиц. Репозитории заказов, каталога и
// клиентов работают поверх одного мьютекса, поэтому Save атомарен и отчёты
// по продажам видят согласованные строки.
type Database struct {
	mu sync.RWMutex

	categories map[int64]domain.Category
	products   map[int64]domain.Product
	customers  map[string]domain.Customer
	orders     map[int64]domain.Order

	nextOrderID int64
	nextLineID  int64
}

// NewDatabase создаёт пустую in-memory базу.
func NewDatabase() *Database {
	return &Database{
		categories:  make(map[int64]domain.Category),
		products:    make(map[int64]domain.Product),
		customers:   make(map[string]domain.Customer),
		orders:      make(map[int64]domain.Order),
		nextOrderID: 1,
		nextLineID:  1,
	}
}

// NewDatabaseWithDataset создаёт базу и загружает в неё набор данных.
func NewDatabaseWithDataset(ds fixtures.Dataset) *Database {
	db := NewDatabase()
	db.Load(ds)
	return db
}

// Load добавляет записи набора, сохраняя их идентификаторы.
func (db *Database) Load(ds fixtures.Dataset) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, c := range ds.Categories {
		db.categories[c.Code] = c
	}
	for _, p := range ds.Products {
		db.products[p.Reference] = p
	}
	for _, c := range ds.Customers {
		db.customers[c.Code] = c
	}
	for _, o := range ds.Orders {
		db.orders[o.ID] = o.Clone()
		if o.ID >= db.nextOrderID {
			db.nextOrderID = o.ID + 1
		}
		for _, line := range o.Lines {
			if line.ID >= db.nextLineID {
				db.nextLineID = line.ID + 1
			}
		}
	}
}
