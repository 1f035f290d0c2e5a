package app

import (
	"context"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/comptoirs/internal/cache"
	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
	"github.com/vladislavdragonenkov/comptoirs/internal/health"
	"github.com/vladislavdragonenkov/comptoirs/internal/storage/memory"
	"github.com/vladislavdragonenkov/comptoirs/internal/storage/orm"
	"github.com/vladislavdragonenkov/comptoirs/internal/storage/postgres"
)

// runtimeDependencies: хранилища и их проверки здоровья.
type runtimeDependencies struct {
	orders      domain.OrderRepository
	catalog     domain.CatalogRepository
	customers   domain.CustomerRepository
	timeline    domain.TimelineRepository
	outbox      domain.OutboxRepository
	idempotency domain.IdempotencyRepository
	// sales сбрасывает кэш продаж; nil, если кэша нет.
	sales    *cache.Catalog
	checkers map[string]health.Checker
	closers  []func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.WithError(err).Warn("failed to close dependency")
		}
	}
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	var (
		deps *runtimeDependencies
		err  error
	)
	switch cfg.Storage.Driver {
	case StorageDriverMemory:
		deps, err = initMemory(cfg.Storage, logger)
	case StorageDriverPostgres:
		deps, err = initPostgres(ctx, cfg, logger)
	default:
		return nil, errors.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WithError(err).Warn("redis is unavailable, catalog cache disabled")
			return deps, nil
		}
		deps.sales = cache.NewCatalog(deps.catalog, rdb, cache.Options{TTL: cfg.Redis.TTL}, logger)
		deps.catalog = deps.sales
		deps.checkers["redis"] = health.NewRedisChecker(rdb)
		deps.closers = append(deps.closers, rdb.Close)
		logger.WithField("addr", cfg.Redis.Addr).Info("catalog cache enabled")
	}
	return deps, nil
}

func initMemory(cfg StorageConfig, logger *log.Entry) (*runtimeDependencies, error) {
	dataset := fixtures.SmallData()
	if cfg.Dataset != "" {
		loaded, err := fixtures.LoadYAMLFile(cfg.Dataset)
		if err != nil {
			return nil, errors.Wrap(err, "load memory dataset")
		}
		dataset = loaded
	}

	db := memory.NewDatabaseWithDataset(dataset)
	logger.WithFields(log.Fields{
		"orders":   len(dataset.Orders),
		"products": len(dataset.Products),
	}).Info("memory storage loaded")

	return &runtimeDependencies{
		orders:      memory.NewOrderRepository(db),
		catalog:     memory.NewCatalogRepository(db),
		customers:   memory.NewCustomerRepository(db),
		timeline:    memory.NewTimelineRepository(),
		outbox:      memory.NewOutboxRepository(),
		idempotency: memory.NewIdempotencyRepository(),
		checkers:    map[string]health.Checker{},
	}, nil
}

func initPostgres(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	store, err := postgres.Open(ctx, cfg.Postgres.DSN, postgres.WithPool(
		cfg.Postgres.MaxOpenConns,
		cfg.Postgres.MaxIdleConns,
		cfg.Postgres.ConnMaxLifetime,
		cfg.Postgres.ConnMaxIdleTime,
	))
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	if cfg.Postgres.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, errors.Wrap(err, "apply migrations")
		}
	}

	catalog := postgres.NewCatalogRepository(store)
	if cfg.Storage.Catalog == CatalogBackendORM {
		gdb, err := orm.OpenPostgres(store.DB(), logger)
		if err != nil {
			_ = store.Close()
			return nil, errors.Wrap(err, "open orm catalog")
		}
		catalog = orm.NewCatalogRepository(gdb)
	}
	logger.WithField("catalog_backend", cfg.Storage.Catalog).Info("postgres storage ready")

	return &runtimeDependencies{
		orders:      postgres.NewOrderRepository(store),
		catalog:     catalog,
		customers:   postgres.NewCustomerRepository(store),
		timeline:    postgres.NewTimelineRepository(store),
		outbox:      postgres.NewOutboxRepository(store),
		idempotency: postgres.NewIdempotencyRepository(store),
		checkers:    map[string]health.Checker{"postgres": health.NewPostgresChecker(store.DB())},
		closers:     []func() error{store.Close},
	}, nil
}
