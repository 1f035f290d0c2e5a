package domain

import (
	"strings"
	"time"
)

// IdempotencyStatus: состояние заявки на выполнение мутации.
type IdempotencyStatus string

const (
	// IdempotencyInFlight: заявка принята, мутация ещё выполняется.
	IdempotencyInFlight IdempotencyStatus = "in_flight"
	// IdempotencySucceeded: мутация выполнена, Outcome содержит ответ.
	IdempotencySucceeded IdempotencyStatus = "succeeded"
	// IdempotencyRejected: мутация отклонена, Outcome содержит код и текст ошибки.
	IdempotencyRejected IdempotencyStatus = "rejected"
)

// Valid сообщает, известен ли статус.
func (s IdempotencyStatus) Valid() bool {
	return s == IdempotencyInFlight || s == IdempotencySucceeded || s == IdempotencyRejected
}

// Final сообщает, что заявка завершена и её исход можно воспроизвести.
func (s IdempotencyStatus) Final() bool {
	return s == IdempotencySucceeded || s == IdempotencyRejected
}

// IdempotencyScope: ключ клиента в пределах одного метода API.
// Один и тот же ключ для CreateOrder и AddLine: две независимые заявки.
type IdempotencyScope struct {
	Method string
	Key    string
}

// NewIdempotencyScope нормализует пробелы и проверяет обе части.
func NewIdempotencyScope(method, key string) (IdempotencyScope, error) {
	scope := IdempotencyScope{Method: strings.TrimSpace(method), Key: strings.TrimSpace(key)}
	if scope.Method == "" {
		return IdempotencyScope{}, ErrIdempotencyMethodRequired
	}
	if scope.Key == "" {
		return IdempotencyScope{}, ErrIdempotencyKeyRequired
	}
	return scope, nil
}

func (s IdempotencyScope) String() string {
	return s.Method + "#" + s.Key
}

// IdempotencyOutcome: сохранённый результат мутации: gRPC-код и тело ответа или ошибки.
type IdempotencyOutcome struct {
	Code int
	Body []byte
}

// IdempotencyRecord: заявка на выполнение мутации с ключом идемпотентности.
type IdempotencyRecord struct {
	Scope       IdempotencyScope
	RequestHash string
	Status      IdempotencyStatus
	Outcome     IdempotencyOutcome
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired сообщает, истёк ли срок хранения заявки к моменту now.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
