package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	v1 "github.com/vladislavdragonenkov/comptoirs/api/comptoirs/v1"
	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
	"github.com/vladislavdragonenkov/comptoirs/internal/health"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/catalog"
	grpcsvc "github.com/vladislavdragonenkov/comptoirs/internal/service/grpc"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/orders"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("test", "app")
}

func memoryConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig(missingFile(t))
	require.NoError(t, err)
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	return cfg
}

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := memoryConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, testLogger()) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Driver = "invalid-driver"

	err := Run(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

func TestRun_AddressInUse(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = busy.Close() })

	cfg := memoryConfig(t)
	cfg.HTTPAddr = busy.Addr().String()

	err = Run(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	cfg := memoryConfig(t)

	deps, err := initRuntimeDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	assert.NotNil(t, deps.orders)
	assert.NotNil(t, deps.catalog)
	assert.NotNil(t, deps.customers)
	assert.NotNil(t, deps.timeline)
	assert.NotNil(t, deps.outbox)
	assert.NotNil(t, deps.idempotency)
	assert.Nil(t, deps.sales)
	assert.Nil(t, salesInvalidator(deps))

	total, err := deps.orders.CountLines(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, fixtures.SmallData().LineCount(), total)
}

func TestInitRuntimeDependencies_MemoryDatasetFile(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Dataset = "../fixtures/testdata/small_data.yaml"

	deps, err := initRuntimeDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	product, err := deps.catalog.GetProduct(context.Background(), fixtures.ProductIkura)
	require.NoError(t, err)
	assert.Equal(t, "Ikura", product.Name)

	cfg.Storage.Dataset = "missing.yaml"
	_, err = initRuntimeDependencies(context.Background(), cfg, testLogger())
	require.Error(t, err)
}

func TestInitPublishers_WithoutKafka(t *testing.T) {
	pubs := initPublishers(KafkaConfig{}, testLogger())
	require.NotNil(t, pubs.events)
	assert.Nil(t, pubs.dlq)
	require.NoError(t, pubs.events.Publish(domain.OutboxMessage{ID: "1", EventType: "order.created"}))
	pubs.close()
	closeKafka(nil, testLogger())
}

func TestMetricsHandler_Endpoints(t *testing.T) {
	healthHandler := health.NewHandler("test")
	srv := httptest.NewServer(newMetricsHandler(healthHandler))
	t.Cleanup(srv.Close)

	for path, want := range map[string]int{
		"/metrics": http.StatusOK,
		"/healthz": http.StatusOK,
		"/livez":   http.StatusOK,
		"/readyz":  http.StatusOK,
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestGRPCServer_HealthAndCatalog(t *testing.T) {
	cfg := memoryConfig(t)
	deps, err := initRuntimeDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	orderSvc := orders.NewService(orders.Dependencies{
		Orders: deps.orders, Catalog: deps.catalog, Customers: deps.customers,
	}, testLogger())
	server, healthServer := newGRPCServer(
		grpcsvc.NewOrderService(orderSvc, deps.idempotency, testLogger()),
		grpcsvc.NewCatalogService(catalog.NewService(deps.catalog, testLogger()), testLogger()),
		testLogger(),
	)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveGRPC(ctx, server, healthServer, lis, testLogger()) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	status, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status.Status)

	sold, err := v1.NewCatalogServiceClient(conn).UnitsSold(context.Background(), &v1.UnitsSoldRequest{CategoryCode: fixtures.CategoryBeverages})
	require.NoError(t, err)
	assert.Len(t, sold.Rows, 2)

	cancel()
	require.NoError(t, <-done)
}
