package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

const defaultClaimRetention = 24 * time.Hour

const selectClaimSQL = `
	SELECT method, key, request_hash, status, outcome_code, outcome_body, expires_at, created_at, updated_at
	FROM idempotency_claims
	WHERE method = $1 AND key = $2`

type idempotencyRepository struct {
	db *sql.DB
}

// NewIdempotencyRepository создаёт PostgreSQL-реализацию IdempotencyRepository.
func NewIdempotencyRepository(store *Store) domain.IdempotencyRepository {
	return &idempotencyRepository{db: store.DB()}
}

// Claim вставляет заявку через ON CONFLICT DO NOTHING: гонка двух одинаковых
// запросов разрешается базой, проигравший читает запись победителя.
func (r *idempotencyRepository) Claim(ctx context.Context, scope domain.IdempotencyScope, requestHash string, expiresAt time.Time) (domain.IdempotencyRecord, error) {
	scope, err := domain.NewIdempotencyScope(scope.Method, scope.Key)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}
	if requestHash == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyHashRequired
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().UTC().Add(defaultClaimRetention)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO idempotency_claims (method, key, request_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (method, key) DO NOTHING
		RETURNING method, key, request_hash, status, outcome_code, outcome_body, expires_at, created_at, updated_at
	`, scope.Method, scope.Key, requestHash, expiresAt)

	record, err := scanClaim(row)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, domain.ErrIdempotencyUnknownKey) {
		return domain.IdempotencyRecord{}, fmt.Errorf("claim %s: %w", scope, err)
	}

	existing, err := scanClaim(r.db.QueryRowContext(ctx, selectClaimSQL, scope.Method, scope.Key))
	if err != nil {
		return domain.IdempotencyRecord{}, fmt.Errorf("load existing claim %s: %w", scope, err)
	}
	if existing.RequestHash != requestHash {
		return existing, domain.ErrIdempotencyPayloadMismatch
	}
	return existing, domain.ErrIdempotencyReplay
}

func (r *idempotencyRepository) Find(ctx context.Context, scope domain.IdempotencyScope) (domain.IdempotencyRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	record, err := scanClaim(r.db.QueryRowContext(ctx, selectClaimSQL, scope.Method, scope.Key))
	if err != nil && !errors.Is(err, domain.ErrIdempotencyUnknownKey) {
		return domain.IdempotencyRecord{}, fmt.Errorf("find claim %s: %w", scope, err)
	}
	return record, err
}

func (r *idempotencyRepository) Resolve(ctx context.Context, scope domain.IdempotencyScope, status domain.IdempotencyStatus, outcome domain.IdempotencyOutcome) error {
	if !status.Final() {
		return domain.ErrIdempotencyStatusInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE idempotency_claims
		SET status = $3, outcome_code = $4, outcome_body = $5, updated_at = now()
		WHERE method = $1 AND key = $2
	`, scope.Method, scope.Key, string(status), outcome.Code, outcome.Body)
	if err != nil {
		return fmt.Errorf("resolve claim %s: %w", scope, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve claim %s: rows affected: %w", scope, err)
	}
	if affected == 0 {
		return domain.ErrIdempotencyUnknownKey
	}
	return nil
}

// PurgeExpired удаляет самые старые просроченные заявки. Без лимита удаляются все.
func (r *idempotencyRepository) PurgeExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM idempotency_claims c
		USING (
			SELECT method, key
			FROM idempotency_claims
			WHERE expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
		) expired
		WHERE c.method = expired.method AND c.key = expired.key
	`, before, limitArg)
	if err != nil {
		return 0, fmt.Errorf("purge expired claims: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired claims: rows affected: %w", err)
	}
	return int(affected), nil
}

func scanClaim(row *sql.Row) (domain.IdempotencyRecord, error) {
	var (
		record domain.IdempotencyRecord
		status string
		code   sql.NullInt64
		body   []byte
	)
	err := row.Scan(
		&record.Scope.Method, &record.Scope.Key, &record.RequestHash, &status,
		&code, &body, &record.ExpiresAt, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyUnknownKey
	}
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}

	record.Status = domain.IdempotencyStatus(status)
	if !record.Status.Valid() {
		return domain.IdempotencyRecord{}, fmt.Errorf("claim %s has unknown status %q", record.Scope, status)
	}
	record.Outcome.Body = body
	if code.Valid {
		record.Outcome.Code = int(code.Int64)
	}
	return record, nil
}

var _ domain.IdempotencyRepository = (*idempotencyRepository)(nil)
