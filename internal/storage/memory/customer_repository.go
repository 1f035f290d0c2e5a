package memory

import (
	"context"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

type customerRepositoryInMemory struct {
	db *Database
}

// NewCustomerRepository создаёт in-memory справочник клиентов.
func NewCustomerRepository(db *Database) domain.CustomerRepository {
	return &customerRepositoryInMemory{db: db}
}

func (r *customerRepositoryInMemory) Get(_ context.Context, code string) (domain.Customer, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	customer, ok := r.db.customers[code]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
