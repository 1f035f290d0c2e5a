package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего кода клиента.
	ErrCustomerRequired = errors.New("customer code is required")
	// Ошибка отсутствующей ссылки на товар в строке заказа.
	ErrProductRequired = errors.New("product reference is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrLineQuantityInvalid = errors.New("line quantity must be greater than zero")
	// Ошибка отрицательной скидки.
	ErrDiscountNegative = errors.New("discount must be non-negative")
	// ErrLineOwnerMismatch: строка принадлежит другому заказу.
	ErrLineOwnerMismatch = errors.New("line belongs to another order")
	// ErrLineImmutable: у сохранённой строки попытались сменить товар.
	ErrLineImmutable = errors.New("line product cannot be changed")
	// ErrCategoryLabelRequired: пустое название категории в запросе каталога.
	ErrCategoryLabelRequired = errors.New("category label is required")
	// ErrCategoryCodeInvalid: код категории должен быть положительным.
	ErrCategoryCodeInvalid = errors.New("category code must be positive")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrLineNotFound: строка не найдена в заказе.
	ErrLineNotFound = errors.New("line not found")
	// ErrProductNotFound: товар с такой ссылкой отсутствует.
	ErrProductNotFound = errors.New("product not found")
	// ErrCustomerNotFound: клиент с таким кодом отсутствует.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrCategoryNotFound: категория с таким кодом отсутствует.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrIntegrityViolation сигнализирует о нарушении ограничения целостности при сохранении.
	ErrIntegrityViolation = errors.New("data integrity violation")

	// ErrOrderAlreadyShipped: заказ уже отправлен и не может меняться.
	ErrOrderAlreadyShipped = errors.New("order already shipped")
	// ErrProductDiscontinued: товар снят с продажи.
	ErrProductDiscontinued = errors.New("product is discontinued")

	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки хранилища заявок идемпотентности.
	ErrIdempotencyMethodRequired  = errors.New("idempotency method is required")
	ErrIdempotencyKeyRequired     = errors.New("idempotency key is required")
	ErrIdempotencyHashRequired    = errors.New("idempotency request hash is required")
	ErrIdempotencyStatusInvalid   = errors.New("idempotency outcome status must be final")
	ErrIdempotencyReplay          = errors.New("idempotency key already claimed")
	ErrIdempotencyPayloadMismatch = errors.New("idempotency key reused with different request")
	ErrIdempotencyUnknownKey      = errors.New("idempotency key not found")
)

// DuplicateLineError: попытка сохранить две строки одного товара в одном заказе.
type DuplicateLineError struct {
	OrderID    int64
	ProductRef int64
}

func (e *DuplicateLineError) Error() string {
	return fmt.Sprintf("order %d already has a line for product %d", e.OrderID, e.ProductRef)
}

// Is позволяет сравнивать ошибку с ErrIntegrityViolation через errors.Is.
func (e *DuplicateLineError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

// IsIntegrityViolation проверяет, является ли ошибка нарушением целостности.
func IsIntegrityViolation(err error) bool {
	return errors.Is(err, ErrIntegrityViolation)
}

// IsNotFound проверяет, относится ли ошибка к отсутствующей записи.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrLineNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrCategoryNotFound)
}

// IsValidation проверяет, является ли ошибка ошибкой входных данных.
func IsValidation(err error) bool {
	return errors.Is(err, ErrCustomerRequired) ||
		errors.Is(err, ErrProductRequired) ||
		errors.Is(err, ErrLineQuantityInvalid) ||
		errors.Is(err, ErrDiscountNegative) ||
		errors.Is(err, ErrLineOwnerMismatch) ||
		errors.Is(err, ErrLineImmutable) ||
		errors.Is(err, ErrCategoryLabelRequired) ||
		errors.Is(err, ErrCategoryCodeInvalid)
}

// IsStateConflict проверяет, запрещено ли действие текущим состоянием заказа или товара.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrOrderAlreadyShipped) || errors.Is(err, ErrProductDiscontinued)
}

// IsIdempotencyConflict проверяет, что ключ уже занят, с тем же телом или с другим.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyReplay) || errors.Is(err, ErrIdempotencyPayloadMismatch)
}
