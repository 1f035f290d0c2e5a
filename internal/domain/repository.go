package domain

import "context"

// OrderRepository описывает требования к хранилищу агрегата заказа.
type OrderRepository interface {
	// Get возвращает заказ со строками или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id int64) (Order, error)
	// Save сохраняет заказ и сверяет его строки с хранилищем в одной транзакции:
	// новые строки вставляются, изменённые обновляются, исчезнувшие удаляются.
	// При успехе ID заказа и новых строк записываются обратно в order.
	Save(ctx context.Context, order *Order) error
	// Delete удаляет заказ вместе со всеми строками.
	Delete(ctx context.Context, id int64) error
	// ListByCustomer возвращает заказы клиента, новые первыми; limit <= 0: без ограничения.
	ListByCustomer(ctx context.Context, customerCode string, limit int) ([]Order, error)
	// CountLines возвращает общее число строк во всех заказах.
	CountLines(ctx context.Context) (int64, error)
}

// CatalogRepository: запросы на чтение по товарам, категориям и продажам.
type CatalogRepository interface {
	GetProduct(ctx context.Context, ref int64) (Product, error)
	GetCategory(ctx context.Context, code int64) (Category, error)
	// ProductsByCategoryLabel возвращает товары категории с точно таким названием.
	ProductsByCategoryLabel(ctx context.Context, label string) ([]Product, error)
	// UnitsSoldByCategory суммирует количество по строкам для каждого товара категории.
	// Товары без строк в результат не попадают.
	UnitsSoldByCategory(ctx context.Context, categoryCode int64) ([]UnitsSold, error)
	ListProductSummaries(ctx context.Context) ([]ProductSummary, error)
	// LinesForProduct возвращает все строки заказов, ссылающиеся на товар.
	LinesForProduct(ctx context.Context, ref int64) ([]Line, error)
}

// CustomerRepository: доступ к справочнику клиентов.
type CustomerRepository interface {
	Get(ctx context.Context, code string) (Customer, error)
}
