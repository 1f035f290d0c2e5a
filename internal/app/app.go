// Package app собирает сервис: конфигурация, хранилища,
// gRPC, REST, метрики и фоновые воркеры.
package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/comptoirs/internal/health"
	resthttp "github.com/vladislavdragonenkov/comptoirs/internal/http"
	httpH "github.com/vladislavdragonenkov/comptoirs/internal/http/handlers"
	"github.com/vladislavdragonenkov/comptoirs/internal/metrics"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/catalog"
	grpcsvc "github.com/vladislavdragonenkov/comptoirs/internal/service/grpc"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/idempotency"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/orders"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/outbox"
	"github.com/vladislavdragonenkov/comptoirs/internal/version"
)

// Run поднимает сервис и блокируется до отмены ctx или ошибки одного из
// серверов. Штатная остановка возвращает nil.
func Run(ctx context.Context, cfg Config, logger *log.Entry) error {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	logger = logger.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.WithFields(version.Fields()).Info("запускаем comptoirs")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	pubs := initPublishers(cfg.Kafka, logger)
	defer pubs.close()

	orderSvc := orders.NewService(orders.Dependencies{
		Orders:    deps.orders,
		Catalog:   deps.catalog,
		Customers: deps.customers,
		Timeline:  deps.timeline,
		Outbox:    deps.outbox,
		Metrics:   metrics.NewOrderMetrics(),
		Sales:     salesInvalidator(deps),
	}, logger.WithField("component", "orders"))
	catalogSvc := catalog.NewService(deps.catalog, logger.WithField("component", "catalog"))

	grpcServer, grpcHealth := newGRPCServer(
		grpcsvc.NewOrderService(orderSvc, deps.idempotency, logger.WithField("layer", "grpc")),
		grpcsvc.NewCatalogService(catalogSvc, logger.WithField("layer", "grpc")),
		logger,
	)

	restServer := &http.Server{
		Handler: resthttp.NewRouter(resthttp.RouterConfig{
			OrderHandler:   httpH.NewOrderHandler(orderSvc, logger),
			CatalogHandler: httpH.NewCatalogHandler(catalogSvc),
			Metrics:        metrics.NewHTTPMetrics(nil),
			Logger:         logger.WithField("layer", "rest"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	healthHandler := health.NewHandler(version.Version())
	for name, checker := range deps.checkers {
		healthHandler.RegisterChecker(name, checker)
	}
	metricsServer := &http.Server{Handler: newMetricsHandler(healthHandler), ReadHeaderTimeout: 5 * time.Second}

	outboxWorker := outbox.NewWorker(deps.outbox, pubs.events, outbox.Config{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		RetryDelay:   cfg.Outbox.RetryDelay,
		DLQ:          pubs.dlq,
		Logger:       logger.WithField("component", "outbox-worker"),
		Metrics:      metrics.NewOutboxMetrics(nil),
	})
	purger := idempotency.NewPurger(deps.idempotency, idempotency.Config{
		Interval:  cfg.Idempotency.CleanupInterval,
		BatchSize: cfg.Idempotency.CleanupBatchSize,
		Logger:    logger.WithField("component", "idempotency-purger"),
		Metrics:   metrics.NewCleanupMetrics(nil),
	})

	listeners, err := listen(cfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveGRPC(gctx, grpcServer, grpcHealth, listeners.grpc, logger.WithField("server", "grpc"))
	})
	g.Go(func() error {
		return serveHTTP(gctx, restServer, listeners.rest, logger.WithField("server", "rest"))
	})
	g.Go(func() error {
		return serveHTTP(gctx, metricsServer, listeners.metrics, logger.WithField("server", "metrics"))
	})
	g.Go(func() error { return outboxWorker.Run(gctx) })
	g.Go(func() error { return purger.Run(gctx) })

	err = g.Wait()
	logger.Info("comptoirs остановлен")
	return err
}

type serviceListeners struct {
	grpc    net.Listener
	rest    net.Listener
	metrics net.Listener
}

func listen(cfg Config) (serviceListeners, error) {
	var (
		out    serviceListeners
		opened []net.Listener
	)
	for _, item := range []struct {
		addr string
		dst  *net.Listener
	}{
		{cfg.GRPCAddr, &out.grpc},
		{cfg.HTTPAddr, &out.rest},
		{cfg.MetricsAddr, &out.metrics},
	} {
		lis, err := net.Listen("tcp", item.addr)
		if err != nil {
			for _, l := range opened {
				_ = l.Close()
			}
			return serviceListeners{}, errors.Wrapf(err, "listen %s", item.addr)
		}
		opened = append(opened, lis)
		*item.dst = lis
	}
	return out, nil
}

// salesInvalidator возвращает nil-интерфейс, когда кэша нет.
func salesInvalidator(deps *runtimeDependencies) orders.SalesInvalidator {
	if deps.sales == nil {
		return nil
	}
	return deps.sales
}
