package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

const defaultIdempotencyRetention = 24 * time.Hour

// IdempotencyRepository хранит заявки мутаций в памяти процесса.
type IdempotencyRepository struct {
	mu     sync.Mutex
	claims map[domain.IdempotencyScope]domain.IdempotencyRecord
	now    func() time.Time
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{
		claims: make(map[domain.IdempotencyScope]domain.IdempotencyRecord),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *IdempotencyRepository) Claim(_ context.Context, scope domain.IdempotencyScope, requestHash string, expiresAt time.Time) (domain.IdempotencyRecord, error) {
	scope, err := domain.NewIdempotencyScope(scope.Method, scope.Key)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}
	if requestHash == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyHashRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.claims[scope]; ok {
		if existing.RequestHash != requestHash {
			return copyRecord(existing), domain.ErrIdempotencyPayloadMismatch
		}
		return copyRecord(existing), domain.ErrIdempotencyReplay
	}

	now := r.now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(defaultIdempotencyRetention)
	}
	record := domain.IdempotencyRecord{
		Scope:       scope,
		RequestHash: requestHash,
		Status:      domain.IdempotencyInFlight,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.claims[scope] = record
	return copyRecord(record), nil
}

func (r *IdempotencyRepository) Find(_ context.Context, scope domain.IdempotencyScope) (domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.claims[scope]
	if !ok {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyUnknownKey
	}
	return copyRecord(record), nil
}

func (r *IdempotencyRepository) Resolve(_ context.Context, scope domain.IdempotencyScope, status domain.IdempotencyStatus, outcome domain.IdempotencyOutcome) error {
	if !status.Final() {
		return domain.ErrIdempotencyStatusInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.claims[scope]
	if !ok {
		return domain.ErrIdempotencyUnknownKey
	}
	record.Status = status
	record.Outcome = domain.IdempotencyOutcome{Code: outcome.Code, Body: slices.Clone(outcome.Body)}
	record.UpdatedAt = r.now()
	r.claims[scope] = record
	return nil
}

// PurgeExpired удаляет просроченные заявки, начиная с самых старых.
func (r *IdempotencyRepository) PurgeExpired(_ context.Context, before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if before.IsZero() {
		before = r.now()
	}
	expired := lo.Filter(lo.Values(r.claims), func(rec domain.IdempotencyRecord, _ int) bool {
		return rec.Expired(before)
	})
	slices.SortFunc(expired, func(a, b domain.IdempotencyRecord) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	for _, rec := range expired {
		delete(r.claims, rec.Scope)
	}
	return len(expired), nil
}

func copyRecord(src domain.IdempotencyRecord) domain.IdempotencyRecord {
	dst := src
	dst.Outcome.Body = slices.Clone(src.Outcome.Body)
	return dst
}

var _ domain.IdempotencyRepository = (*IdempotencyRepository)(nil)
