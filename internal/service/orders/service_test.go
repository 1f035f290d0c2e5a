package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/fixtures"
	"github.com/vladislavdragonenkov/comptoirs/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/comptoirs/internal/metrics"
	"github.com/vladislavdragonenkov/comptoirs/internal/storage/memory"
)

var fixedNow = time.Date(2026, time.April, 12, 15, 30, 0, 0, time.UTC)

type harness struct {
	svc      *Service
	orders   domain.OrderRepository
	catalog  domain.CatalogRepository
	timeline domain.TimelineRepository
	outbox   *memory.OutboxRepository
	sales    *countingInvalidator
}

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) InvalidateSales(context.Context) error {
	c.calls++
	return c.err
}

type failingTimeline struct{}

func (failingTimeline) Append(context.Context, domain.TimelineEvent) (int64, error) {
	return 0, errors.New("timeline unavailable")
}

func (failingTimeline) List(context.Context, int64, int64) ([]domain.TimelineEvent, error) {
	return nil, errors.New("timeline unavailable")
}

func newHarness(t *testing.T) harness {
	t.Helper()

	db := memory.NewDatabaseWithDataset(fixtures.SmallData())
	h := harness{
		orders:   memory.NewOrderRepository(db),
		catalog:  memory.NewCatalogRepository(db),
		timeline: memory.NewTimelineRepository(),
		outbox:   memory.NewOutboxRepository(),
		sales:    &countingInvalidator{},
	}

	logger := log.New()
	logger.SetLevel(log.PanicLevel)

	h.svc = NewService(Dependencies{
		Orders:    h.orders,
		Catalog:   h.catalog,
		Customers: memory.NewCustomerRepository(db),
		Timeline:  h.timeline,
		Outbox:    h.outbox,
		Metrics:   metrics.NewOrderMetricsWithRegisterer(prometheus.NewRegistry()),
		Sales:     h.sales,
	}, logger.WithField("component", "orders-test"))
	h.svc.now = func() time.Time { return fixedNow }

	return h
}

func (h harness) timelineTypes(t *testing.T, orderID int64) []string {
	t.Helper()
	events, err := h.timeline.List(context.Background(), orderID, 0)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func (h harness) outboxTypes() []string {
	pending := h.outbox.AllPending()
	types := make([]string, 0, len(pending))
	for _, msg := range pending {
		types = append(types, msg.EventType)
	}
	return types
}

func TestCreateOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order, err := h.svc.CreateOrder(ctx, fixtures.CustomerComptoir)
	require.NoError(t, err)

	assert.NotZero(t, order.ID)
	assert.Equal(t, fixtures.CustomerComptoir, order.CustomerCode)
	assert.Equal(t, domain.CalendarDay(fixedNow), order.EntryDate)
	assert.True(t, order.Discount.IsZero())
	assert.Nil(t, order.ShippedAt)
	assert.Empty(t, order.Lines)

	stored, err := h.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)
	assert.Equal(t, order.EntryDate, stored.EntryDate)

	assert.Equal(t, []string{domain.TimelineOrderCreated}, h.timelineTypes(t, order.ID))
	assert.Equal(t, []string{string(kafka.EventTypeOrderCreated)}, h.outboxTypes())

	var payload kafka.OrderEvent
	require.NoError(t, json.Unmarshal(h.outbox.AllPending()[0].Payload, &payload))
	assert.Equal(t, order.ID, payload.OrderID)
	assert.Equal(t, fixtures.CustomerComptoir, payload.CustomerCode)
}

func TestCreateOrder_UnknownCustomer(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateOrder(context.Background(), "XXXXX")
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = h.svc.CreateOrder(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrCustomerRequired)

	assert.Empty(t, h.outbox.AllPending())
}

func TestAddLine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	before, err := h.orders.CountLines(ctx)
	require.NoError(t, err)

	line, err := h.svc.AddLine(ctx, fixtures.OrderComptoir, fixtures.ProductIkura, 4)
	require.NoError(t, err)

	assert.NotZero(t, line.ID)
	assert.Equal(t, fixtures.OrderComptoir, line.OrderID)
	assert.Equal(t, fixtures.ProductIkura, line.ProductRef)
	assert.EqualValues(t, 4, line.Quantity)

	after, err := h.orders.CountLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	lines, err := h.catalog.LinesForProduct(ctx, fixtures.ProductIkura)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, line.ID, lines[0].ID)

	assert.Equal(t, []string{domain.TimelineLineAdded}, h.timelineTypes(t, fixtures.OrderComptoir))
	assert.Equal(t, []string{string(kafka.EventTypeLineAdded)}, h.outboxTypes())
	assert.Equal(t, 1, h.sales.calls)
}

func TestAddLine_DuplicateProduct(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	before, err := h.orders.CountLines(ctx)
	require.NoError(t, err)

	_, err = h.svc.AddLine(ctx, fixtures.OrderComptoir, fixtures.ProductChai, 1)
	require.Error(t, err)
	assert.True(t, domain.IsIntegrityViolation(err))

	var dup *domain.DuplicateLineError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, fixtures.ProductChai, dup.ProductRef)

	after, err := h.orders.CountLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, h.outbox.AllPending())
	assert.Zero(t, h.sales.calls)
}

func TestAddLine_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		orderID  int64
		product  int64
		quantity int32
		want     error
	}{
		{"zero quantity", fixtures.OrderComptoir, fixtures.ProductIkura, 0, domain.ErrLineQuantityInvalid},
		{"negative quantity", fixtures.OrderComptoir, fixtures.ProductIkura, -2, domain.ErrLineQuantityInvalid},
		{"missing product", fixtures.OrderComptoir, 0, 1, domain.ErrProductRequired},
		{"unknown order", 1, fixtures.ProductIkura, 1, domain.ErrOrderNotFound},
		{"unknown product", fixtures.OrderComptoir, 12345, 1, domain.ErrProductNotFound},
		{"shipped order", fixtures.OrderAlfreds, fixtures.ProductIkura, 1, domain.ErrOrderAlreadyShipped},
		{"discontinued product", fixtures.OrderComptoir, fixtures.ProductChartreus, 1, domain.ErrProductDiscontinued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.AddLine(context.Background(), tt.orderID, tt.product, tt.quantity)
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, h.outbox.AllPending())
		})
	}
}

func TestUpdateLineQuantity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	line, err := h.svc.UpdateLineQuantity(ctx, fixtures.OrderComptoir, fixtures.ProductChang, 12)
	require.NoError(t, err)
	assert.EqualValues(t, 12, line.Quantity)

	sold, err := h.catalog.UnitsSoldByCategory(ctx, fixtures.CategoryBeverages)
	require.NoError(t, err)
	assert.Contains(t, sold, domain.UnitsSold{Name: "Chang", Units: 12})

	// то же количество ничего не пишет
	_, err = h.svc.UpdateLineQuantity(ctx, fixtures.OrderComptoir, fixtures.ProductChang, 12)
	require.NoError(t, err)

	assert.Equal(t, []string{string(kafka.EventTypeLineUpdated)}, h.outboxTypes())
	assert.Equal(t, 1, h.sales.calls)

	_, err = h.svc.UpdateLineQuantity(ctx, fixtures.OrderComptoir, fixtures.ProductIkura, 3)
	require.ErrorIs(t, err, domain.ErrLineNotFound)

	_, err = h.svc.UpdateLineQuantity(ctx, fixtures.OrderComptoir, fixtures.ProductChang, 0)
	require.ErrorIs(t, err, domain.ErrLineQuantityInvalid)
}

func TestRemoveLine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order, err := h.svc.RemoveLine(ctx, fixtures.OrderComptoir, fixtures.ProductChai)
	require.NoError(t, err)
	assert.Equal(t, -1, order.LineFor(fixtures.ProductChai))
	assert.Len(t, order.Lines, 1)

	total, err := h.orders.CountLines(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	chai, err := h.catalog.LinesForProduct(ctx, fixtures.ProductChai)
	require.NoError(t, err)
	assert.Len(t, chai, 1)

	assert.Equal(t, []string{domain.TimelineLineRemoved}, h.timelineTypes(t, fixtures.OrderComptoir))

	_, err = h.svc.RemoveLine(ctx, fixtures.OrderComptoir, fixtures.ProductChai)
	require.ErrorIs(t, err, domain.ErrLineNotFound)

	_, err = h.svc.RemoveLine(ctx, fixtures.OrderAlfreds, fixtures.ProductChai)
	require.ErrorIs(t, err, domain.ErrOrderAlreadyShipped)
}

func TestRecordShipment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order, err := h.svc.RecordShipment(ctx, fixtures.OrderComptoir)
	require.NoError(t, err)
	require.NotNil(t, order.ShippedAt)

	wantDay := time.Date(2026, time.April, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, wantDay, *order.ShippedAt)

	stored, err := h.orders.Get(ctx, fixtures.OrderComptoir)
	require.NoError(t, err)
	require.True(t, stored.Shipped())
	assert.Equal(t, wantDay, *stored.ShippedAt)

	_, err = h.svc.RecordShipment(ctx, fixtures.OrderComptoir)
	require.ErrorIs(t, err, domain.ErrOrderAlreadyShipped)

	_, err = h.svc.AddLine(ctx, fixtures.OrderComptoir, fixtures.ProductIkura, 1)
	require.ErrorIs(t, err, domain.ErrOrderAlreadyShipped)

	_, err = h.svc.RecordShipment(ctx, 1)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	assert.Equal(t, []string{domain.TimelineOrderShipped}, h.timelineTypes(t, fixtures.OrderComptoir))
	assert.Equal(t, []string{string(kafka.EventTypeOrderShipped)}, h.outboxTypes())
}

func TestDeleteOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.DeleteOrder(ctx, fixtures.OrderComptoir))

	_, err := h.orders.Get(ctx, fixtures.OrderComptoir)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	total, err := h.orders.CountLines(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	assert.Equal(t, []string{domain.TimelineOrderDeleted}, h.timelineTypes(t, fixtures.OrderComptoir))
	assert.Equal(t, 1, h.sales.calls)

	require.ErrorIs(t, h.svc.DeleteOrder(ctx, fixtures.OrderComptoir), domain.ErrOrderNotFound)
}

func TestListOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.svc.CreateOrder(ctx, fixtures.CustomerComptoir)
	require.NoError(t, err)

	list, err := h.svc.ListOrders(ctx, fixtures.CustomerComptoir, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, fixtures.OrderComptoir, list[1].ID)

	limited, err := h.svc.ListOrders(ctx, fixtures.CustomerComptoir, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = h.svc.ListOrders(ctx, "NOPE", 0)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	got, err := h.svc.GetOrder(ctx, fixtures.OrderAlfreds)
	require.NoError(t, err)
	assert.Len(t, got.Lines, 1)
}

func TestSideChannelFailuresAreNotReturned(t *testing.T) {
	h := newHarness(t)
	h.svc.timeline = failingTimeline{}
	h.sales.err = errors.New("redis down")

	line, err := h.svc.AddLine(context.Background(), fixtures.OrderComptoir, fixtures.ProductIkura, 2)
	require.NoError(t, err)
	assert.NotZero(t, line.ID)
	assert.Equal(t, 1, h.sales.calls)

	events, err := h.svc.Timeline(context.Background(), fixtures.OrderComptoir)
	require.Error(t, err)
	assert.Nil(t, events)
}

func TestServiceWithoutOptionalDependencies(t *testing.T) {
	db := memory.NewDatabaseWithDataset(fixtures.SmallData())
	svc := NewService(Dependencies{
		Orders:    memory.NewOrderRepository(db),
		Catalog:   memory.NewCatalogRepository(db),
		Customers: memory.NewCustomerRepository(db),
	}, nil)

	order, err := svc.CreateOrder(context.Background(), fixtures.CustomerAlfreds)
	require.NoError(t, err)

	_, err = svc.AddLine(context.Background(), order.ID, fixtures.ProductChang, 1)
	require.NoError(t, err)

	events, err := svc.Timeline(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "not_found", reason(domain.ErrOrderNotFound))
	assert.Equal(t, "invalid", reason(domain.ErrLineQuantityInvalid))
	assert.Equal(t, "state_conflict", reason(domain.ErrOrderAlreadyShipped))
	assert.Equal(t, "integrity", reason(&domain.DuplicateLineError{}))
	assert.Equal(t, "canceled", reason(context.Canceled))
	assert.Equal(t, "internal", reason(errors.New("boom")))
}
