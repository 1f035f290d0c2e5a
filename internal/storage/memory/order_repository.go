package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// orderRepositoryInMemory: in-memory реализация OrderRepository поверх Database.
type orderRepositoryInMemory struct {
	db *Database
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository(db *Database) domain.OrderRepository {
	return &orderRepositoryInMemory{db: db}
}

// Get возвращает копию заказа или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id int64) (domain.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	order, ok := r.db.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// Save вставляет или обновляет заказ и сверяет его строки. Все проверки
// выполняются до первой записи, поэтому неудачный Save ничего не меняет.
func (r *orderRepositoryInMemory) Save(_ context.Context, order *domain.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.customers[order.CustomerCode]; !ok {
		return domain.ErrCustomerNotFound
	}

	orderID := order.ID
	var stored []domain.Line
	if orderID != 0 {
		current, ok := r.db.orders[orderID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		stored = current.Lines
	} else {
		orderID = r.db.nextOrderID
	}

	changes, err := domain.DiffLines(orderID, stored, order.Lines)
	if err != nil {
		return err
	}
	for _, line := range changes.Insert {
		if _, ok := r.db.products[line.ProductRef]; !ok {
			return domain.ErrProductNotFound
		}
	}

	// Дальше ошибок быть не может: фиксируем изменения.
	if order.ID == 0 {
		r.db.nextOrderID++
	}
	saved := order.Clone()
	saved.ID = orderID
	if saved.EntryDate.IsZero() {
		saved.EntryDate = time.Now()
	}
	saved.EntryDate = domain.CalendarDay(saved.EntryDate)
	for i := range saved.Lines {
		saved.Lines[i].OrderID = orderID
		if saved.Lines[i].ID == 0 {
			saved.Lines[i].ID = r.db.nextLineID
			r.db.nextLineID++
		}
	}
	sortLines(saved.Lines)
	r.db.orders[orderID] = saved

	order.ID = orderID
	order.EntryDate = saved.EntryDate
	order.Lines = saved.Clone().Lines
	return nil
}

// Delete удаляет заказ; строки удаляются вместе с ним.
func (r *orderRepositoryInMemory) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.db.orders, id)
	return nil
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(_ context.Context, customerCode string, limit int) ([]domain.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.db.orders {
		if order.CustomerCode != customerCode {
			continue
		}
		result = append(result, order.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EntryDate.Equal(result[j].EntryDate) {
			return result[i].EntryDate.After(result[j].EntryDate)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// CountLines считает строки во всех заказах.
func (r *orderRepositoryInMemory) CountLines(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var total int64
	for _, order := range r.db.orders {
		total += int64(len(order.Lines))
	}
	return total, nil
}

func sortLines(lines []domain.Line) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
