package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/vladislavdragonenkov/comptoirs/api/comptoirs/v1"
	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
	resthttp "github.com/vladislavdragonenkov/comptoirs/internal/http"
	httpH "github.com/vladislavdragonenkov/comptoirs/internal/http/handlers"
	"github.com/vladislavdragonenkov/comptoirs/internal/http/response"
	"github.com/vladislavdragonenkov/comptoirs/internal/metrics"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/catalog"
	"github.com/vladislavdragonenkov/comptoirs/internal/service/orders"
	"github.com/vladislavdragonenkov/comptoirs/internal/storage/memory"
)

type harness struct {
	router *gin.Engine
	orders domain.OrderRepository
}

func newHarness(t *testing.T) harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := memory.NewDatabaseWithDataset(fixtures.SmallData())
	orderRepo := memory.NewOrderRepository(db)
	catalogRepo := memory.NewCatalogRepository(db)

	orderSvc := orders.NewService(orders.Dependencies{
		Orders:    orderRepo,
		Catalog:   catalogRepo,
		Customers: memory.NewCustomerRepository(db),
		Timeline:  memory.NewTimelineRepository(),
		Metrics:   metrics.NewOrderMetricsWithRegisterer(prometheus.NewRegistry()),
	}, nil)

	router := resthttp.NewRouter(resthttp.RouterConfig{
		OrderHandler:   httpH.NewOrderHandler(orderSvc, nil),
		CatalogHandler: httpH.NewCatalogHandler(catalog.NewService(catalogRepo, nil)),
		Metrics:        metrics.NewHTTPMetrics(prometheus.NewRegistry()),
	})
	return harness{router: router, orders: orderRepo}
}

func (h harness) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCreateOrder(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/orders/for/"+fixtures.CustomerComptoir)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	order := decode[v1.Order](t, rec)
	assert.NotZero(t, order.Number)
	assert.Equal(t, fixtures.CustomerComptoir, order.Customer.Code)
	assert.Equal(t, "Comptoir Test", order.Customer.CompanyName)
	assert.Nil(t, order.ShippedAt)
	assert.Equal(t, "0", order.Discount)
	assert.NotNil(t, order.Lines)

	rec = h.do(t, http.MethodPost, "/api/v1/orders/for/NOPE")
	require.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decode[response.ErrorEnvelope](t, rec)
	assert.Equal(t, response.CodeNotFound, envelope.Error.Code)
	assert.Equal(t, domain.ErrCustomerNotFound.Error(), envelope.Error.Message)
}

func TestAddLine(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/orders/lines?order=99999&product=96&quantity=4")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	line := decode[v1.Line](t, rec)
	assert.Equal(t, fixtures.OrderComptoir, line.OrderNumber)
	assert.Equal(t, fixtures.ProductIkura, line.ProductRef)
	assert.EqualValues(t, 4, line.Quantity)
	assert.NotZero(t, line.ID)
}

func TestAddLine_Errors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"duplicate product", "/api/v1/orders/lines?order=99999&product=98&quantity=1", http.StatusConflict, response.CodeIntegrityViolation},
		{"shipped order", "/api/v1/orders/lines?order=99998&product=96&quantity=1", http.StatusConflict, response.CodeStateConflict},
		{"discontinued product", "/api/v1/orders/lines?order=99999&product=94&quantity=1", http.StatusConflict, response.CodeStateConflict},
		{"zero quantity", "/api/v1/orders/lines?order=99999&product=96&quantity=0", http.StatusBadRequest, response.CodeInvalidArgument},
		{"unknown order", "/api/v1/orders/lines?order=5&product=96&quantity=1", http.StatusNotFound, response.CodeNotFound},
		{"unknown product", "/api/v1/orders/lines?order=99999&product=4242&quantity=1", http.StatusNotFound, response.CodeNotFound},
		{"missing order", "/api/v1/orders/lines?product=96&quantity=1", http.StatusBadRequest, response.CodeInvalidArgument},
		{"malformed quantity", "/api/v1/orders/lines?order=99999&product=96&quantity=lots", http.StatusBadRequest, response.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, tt.target)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[response.ErrorEnvelope](t, rec).Error.Code)
		})
	}

	total, err := h.orders.CountLines(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, fixtures.SmallData().LineCount(), total)
}

func TestShipGetAndDelete(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/orders/99999/ship")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shipped := decode[v1.Order](t, rec)
	require.NotNil(t, shipped.ShippedAt)

	rec = h.do(t, http.MethodPost, "/api/v1/orders/99999/ship")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/orders/99999")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[v1.GetOrderResponse](t, rec)
	assert.Equal(t, shipped.ShippedAt, got.Order.ShippedAt)
	assert.Len(t, got.Order.Lines, 2)
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, domain.TimelineOrderShipped, got.Timeline[0].Type)

	rec = h.do(t, http.MethodDelete, "/api/v1/orders/99999")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/orders/99999")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/orders/abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndRemoveLine(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPatch, "/api/v1/orders/99999/lines/99?quantity=12")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 12, decode[v1.Line](t, rec).Quantity)

	rec = h.do(t, http.MethodDelete, "/api/v1/orders/99999/lines/98")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	order := decode[v1.Order](t, rec)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, fixtures.ProductChang, order.Lines[0].ProductRef)
	assert.EqualValues(t, 12, order.Lines[0].Quantity)

	rec = h.do(t, http.MethodDelete, "/api/v1/orders/99999/lines/98")
	require.Equal(t, http.StatusNotFound, rec.Code)

	total, err := h.orders.CountLines(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestListOrders(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/customers/ALFKI/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[v1.ListOrdersResponse](t, rec)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, fixtures.OrderAlfreds, list.Orders[0].Number)
	assert.Equal(t, "Alfreds Futterkiste", list.Orders[0].Customer.CompanyName)

	rec = h.do(t, http.MethodGet, "/api/v1/customers/ALFKI/orders?limit=0")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/customers/NOPE/orders")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/categories/1/units-sold")
	require.Equal(t, http.StatusOK, rec.Code)
	sold := decode[v1.UnitsSoldResponse](t, rec)
	assert.Equal(t, []v1.UnitsSold{{Name: "Chai", Units: 30}, {Name: "Chang", Units: 5}}, sold.Rows)

	rec = h.do(t, http.MethodGet, "/api/v1/categories/0/units-sold")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/products?category=Condiments")
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[v1.ProductsByCategoryResponse](t, rec)
	require.Len(t, products.Products, 2)
	assert.Equal(t, "50.00", products.Products[1].UnitPrice)

	rec = h.do(t, http.MethodGet, "/api/v1/products")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeInvalidArgument, decode[response.ErrorEnvelope](t, rec).Error.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/products/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[v1.ListProductsResponse](t, rec).Products, len(fixtures.SmallData().Products))
}
