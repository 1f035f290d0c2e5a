// Package postgres реализует хранилище заказов и каталога поверх database/sql и драйвера pgx.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// opTimeout ограничивает одиночный запрос репозитория.
const opTimeout = 5 * time.Second

var errStoreNotInitialized = errors.New("postgres store is not initialized")

type options struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
	pingTimeout time.Duration
}

// Option настраивает Open.
type Option func(*options)

// WithPool задаёт размер пула и время жизни соединений. Нулевые значения
// оставляют умолчания.
func WithPool(maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) Option {
	return func(o *options) {
		if maxOpen > 0 {
			o.maxOpen = maxOpen
		}
		if maxIdle > 0 {
			o.maxIdle = maxIdle
		}
		if maxLifetime > 0 {
			o.maxLifetime = maxLifetime
		}
		if maxIdleTime > 0 {
			o.maxIdleTime = maxIdleTime
		}
	}
}

func WithPingTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pingTimeout = d
		}
	}
}

// Store владеет пулом соединений; репозитории получают его через DB().
type Store struct {
	db          *sql.DB
	pingTimeout time.Duration
}

// Open подключается по dsn и проверяет соединение ping-ом.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	o := options{
		maxOpen:     25,
		maxIdle:     25,
		maxLifetime: 30 * time.Minute,
		maxIdleTime: 5 * time.Minute,
		pingTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open pgx")
	}
	db.SetMaxOpenConns(o.maxOpen)
	db.SetMaxIdleConns(min(o.maxIdle, o.maxOpen))
	db.SetConnMaxLifetime(o.maxLifetime)
	db.SetConnMaxIdleTime(o.maxIdleTime)

	store := &Store{db: db, pingTimeout: o.pingTimeout}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping используется проверкой готовности.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping postgres")
	}
	return nil
}

// EnsureSchema доводит схему до последней встроенной миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// inTx выполняет fn в транзакции. Ошибка fn или паника откатывают её.
func inTx[T any](ctx context.Context, db *sql.DB, fn func(*sql.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, errors.Wrap(err, "begin tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		return zero, errors.Wrap(err, "commit tx")
	}
	committed = true
	return result, nil
}
