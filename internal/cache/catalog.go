// Package cache содержит кэширующий декоратор каталога поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

const (
	defaultTTL       = 5 * time.Minute
	defaultKeyPrefix = "comptoirs:catalog"
)

// Options задаёт параметры кэша каталога.
type Options struct {
	TTL       time.Duration
	KeyPrefix string
}

// Catalog кэширует справочные запросы каталога. Отчёты по продажам
// кэшируются под номером поколения, который сдвигается InvalidateSales.
// Ошибки Redis не пробрасываются: запрос уходит в нижележащий репозиторий.
type Catalog struct {
	next   domain.CatalogRepository
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *log.Entry
}

// NewCatalog оборачивает репозиторий каталога кэшем.
func NewCatalog(next domain.CatalogRepository, rdb redis.UniversalClient, opts Options, logger *log.Entry) *Catalog {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Catalog{
		next:   next,
		rdb:    rdb,
		ttl:    opts.TTL,
		prefix: opts.KeyPrefix,
		logger: logger.WithField("component", "catalog-cache"),
	}
}

// NewClient создаёт клиента Redis и проверяет соединение.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (c *Catalog) GetProduct(ctx context.Context, ref int64) (domain.Product, error) {
	return cached(ctx, c, c.key("product", strconv.FormatInt(ref, 10)), func() (domain.Product, error) {
		return c.next.GetProduct(ctx, ref)
	})
}

func (c *Catalog) GetCategory(ctx context.Context, code int64) (domain.Category, error) {
	return cached(ctx, c, c.key("category", strconv.FormatInt(code, 10)), func() (domain.Category, error) {
		return c.next.GetCategory(ctx, code)
	})
}

func (c *Catalog) ProductsByCategoryLabel(ctx context.Context, label string) ([]domain.Product, error) {
	return cached(ctx, c, c.key("products-by-label", label), func() ([]domain.Product, error) {
		return c.next.ProductsByCategoryLabel(ctx, label)
	})
}

func (c *Catalog) ListProductSummaries(ctx context.Context) ([]domain.ProductSummary, error) {
	return cached(ctx, c, c.key("summaries"), func() ([]domain.ProductSummary, error) {
		return c.next.ListProductSummaries(ctx)
	})
}

func (c *Catalog) UnitsSoldByCategory(ctx context.Context, categoryCode int64) ([]domain.UnitsSold, error) {
	gen := c.salesGeneration(ctx)
	key := c.key("units-sold", gen, strconv.FormatInt(categoryCode, 10))
	return cached(ctx, c, key, func() ([]domain.UnitsSold, error) {
		return c.next.UnitsSoldByCategory(ctx, categoryCode)
	})
}

// LinesForProduct не кэшируется: строки меняются с каждым заказом.
func (c *Catalog) LinesForProduct(ctx context.Context, ref int64) ([]domain.Line, error) {
	return c.next.LinesForProduct(ctx, ref)
}

// InvalidateSales сдвигает поколение отчётов по продажам; старые ключи истекут по TTL.
func (c *Catalog) InvalidateSales(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, c.key("sales-generation")).Err(); err != nil {
		return fmt.Errorf("invalidate sales cache: %w", err)
	}
	return nil
}

func (c *Catalog) salesGeneration(ctx context.Context) string {
	gen, err := c.rdb.Get(ctx, c.key("sales-generation")).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Debug("read sales generation failed")
		}
		return "0"
	}
	return gen
}

func (c *Catalog) key(parts ...string) string {
	key := c.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func cached[T any](ctx context.Context, c *Catalog, key string, load func() (T, error)) (T, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var value T
		jsonErr := json.Unmarshal(raw, &value)
		if jsonErr == nil {
			return value, nil
		}
		c.logger.WithError(jsonErr).WithField("key", key).Warn("drop undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).WithField("key", key).Debug("cache read failed")
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if payload, jsonErr := json.Marshal(value); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.WithError(setErr).WithField("key", key).Debug("cache write failed")
		}
	}
	return value, nil
}

var _ domain.CatalogRepository = (*Catalog)(nil)
