package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"

	constraintLineOrderProduct = "lines_order_product_key"
	constraintLineProduct      = "lines_product_ref_fkey"
	constraintLineOrder        = "lines_order_id_fkey"
	constraintOrderCustomer    = "orders_customer_code_fkey"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == sqlStateUniqueViolation
}

// mapLineWriteError переводит ошибку записи строки заказа в доменную.
func mapLineWriteError(err error, line domain.Line) error {
	pgErr, ok := pgError(err)
	if !ok {
		return err
	}

	switch {
	case pgErr.Code == sqlStateUniqueViolation && pgErr.ConstraintName == constraintLineOrderProduct:
		return &domain.DuplicateLineError{OrderID: line.OrderID, ProductRef: line.ProductRef}
	case pgErr.Code == sqlStateForeignKeyViolation && pgErr.ConstraintName == constraintLineProduct:
		return domain.ErrProductNotFound
	case pgErr.Code == sqlStateForeignKeyViolation && pgErr.ConstraintName == constraintLineOrder:
		return domain.ErrOrderNotFound
	case pgErr.Code == sqlStateCheckViolation:
		return domain.ErrLineQuantityInvalid
	case pgErr.Code == sqlStateUniqueViolation || pgErr.Code == sqlStateForeignKeyViolation:
		return errors.Join(domain.ErrIntegrityViolation, err)
	}
	return err
}

// mapOrderWriteError переводит ошибку записи заголовка заказа в доменную.
func mapOrderWriteError(err error) error {
	pgErr, ok := pgError(err)
	if !ok {
		return err
	}

	switch {
	case pgErr.Code == sqlStateForeignKeyViolation && pgErr.ConstraintName == constraintOrderCustomer:
		return domain.ErrCustomerNotFound
	case pgErr.Code == sqlStateCheckViolation:
		return domain.ErrDiscountNegative
	case pgErr.Code == sqlStateUniqueViolation || pgErr.Code == sqlStateForeignKeyViolation:
		return errors.Join(domain.ErrIntegrityViolation, err)
	}
	return err
}
