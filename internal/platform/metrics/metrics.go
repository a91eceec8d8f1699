// Package metrics exposes the Prometheus collectors shared by both services.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeSuccess      = "success"
	OutcomeFailed       = "failed"
	OutcomeRejected     = "rejected"
	OutcomeInconclusive = "inconclusive"
	OutcomePending      = "pending"
	OutcomeUnavailable  = "unavailable"
	OutcomeError        = "error"
)

// Metrics holds the application collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer    prometheus.Gatherer
	settlements *prometheus.CounterVec
	gateway     *prometheus.CounterVec
	inventory   *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from gatherer
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,
		settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstore_settlements_total",
			Help: "Settlement attempts by transaction type and outcome",
		}, []string{"type", "outcome"}),
		gateway: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstore_gateway_calls_total",
			Help: "Payment gateway calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		inventory: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstore_inventory_operations_total",
			Help: "Borrow, return and buy operations by outcome",
		}, []string{"operation", "outcome"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookstore_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"method", "route", "status"}),
	}
}

// Settlement counts a settlement attempt
func (m *Metrics) Settlement(txType, outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(txType, outcome).Inc()
}

// GatewayCall counts a call to the payment gateway
func (m *Metrics) GatewayCall(operation, outcome string) {
	if m == nil {
		return
	}
	m.gateway.WithLabelValues(operation, outcome).Inc()
}

// InventoryOperation counts a borrow, return or buy
func (m *Metrics) InventoryOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.inventory.WithLabelValues(operation, outcome).Inc()
}

// ObserveHTTPRequest records the latency of one request
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registered collectors in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
