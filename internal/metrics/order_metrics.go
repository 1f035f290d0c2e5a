package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики сценариев работы с заказами.
type OrderMetrics struct {
	// Счётчики сценариев
	ordersCreated prometheus.Counter
	ordersShipped prometheus.Counter
	ordersDeleted prometheus.Counter
	linesAdded    prometheus.Counter
	linesUpdated  prometheus.Counter
	linesRemoved  prometheus.Counter

	// Отказы с разбивкой по операции и классу ошибки
	operationFailures *prometheus.CounterVec
	// Время выполнения операции сервиса
	operationDuration *prometheus.HistogramVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Операции, выполняющиеся прямо сейчас
	inFlight prometheus.Gauge
}

// NewOrderMetrics регистрирует метрики в реестре по умолчанию.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "comptoirs_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersShipped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "comptoirs_orders_shipped_total",
			Help: "Total number of shipments recorded",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "comptoirs_orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		linesAdded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "comptoirs_lines_added_total",
			Help: "Total number of order lines added",
		}),
		linesUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "comptoirs_lines_updated_total",
			Help: "Total number of order line quantity changes",
		}),
		linesRemoved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "comptoirs_lines_removed_total",
			Help: "Total number of order lines removed",
		}),
		operationFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "comptoirs_order_operation_failures_total",
			Help: "Total number of failed order operations by reason",
		}, []string{"operation", "reason"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "comptoirs_order_operation_duration_seconds",
			Help:    "Duration of order service operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "comptoirs_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "comptoirs_outbox_events_total",
			Help: "Total number of outbox messages enqueued",
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "comptoirs_order_operations_in_flight",
			Help: "Number of order operations currently executing",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

func (m *OrderMetrics) RecordOrderCreated() { m.ordersCreated.Inc() }
func (m *OrderMetrics) RecordOrderShipped() { m.ordersShipped.Inc() }
func (m *OrderMetrics) RecordOrderDeleted() { m.ordersDeleted.Inc() }
func (m *OrderMetrics) RecordLineAdded()    { m.linesAdded.Inc() }
func (m *OrderMetrics) RecordLineUpdated()  { m.linesUpdated.Inc() }
func (m *OrderMetrics) RecordLineRemoved()  { m.linesRemoved.Inc() }

// RecordFailure учитывает неудачную операцию; reason: короткий класс ошибки.
func (m *OrderMetrics) RecordFailure(operation, reason string) {
	m.operationFailures.WithLabelValues(operation, reason).Inc()
}

// StartOperation отмечает начало операции и возвращает функцию её завершения,
// которая записывает длительность.
func (m *OrderMetrics) StartOperation(operation string) func() {
	started := time.Now()
	m.inFlight.Inc()
	return func() {
		m.inFlight.Dec()
		m.operationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	}
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик сообщений outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
