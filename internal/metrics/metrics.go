package metrics

import (
	"errors"

	"sweetshop/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Purchase outcomes recorded in the purchases_total counter.
const (
	ResultSuccess    = "success"
	ResultOutOfStock = "out_of_stock"
	ResultError      = "error"
)

// Metrics holds the application's instruments on a private registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	purchases *prometheus.CounterVec
	mutations *prometheus.CounterVec
	searches  prometheus.Counter
}

// New creates the instruments and registers them together with the Go runtime collectors.
func New() *Metrics {
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sweetshop",
		Name:      "purchases_total",
		Help:      "Purchase attempts by outcome.",
	}, []string{"result"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sweetshop",
		Name:      "item_mutations_total",
		Help:      "Admin catalog mutations by operation and outcome.",
	}, []string{"operation", "result"})
	searches := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sweetshop",
		Name:      "catalog_searches_total",
		Help:      "Catalog searches served.",
	})

	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		purchases: purchases,
		mutations: mutations,
		searches:  searches,
	}
	m.registry.MustRegister(
		m.purchases,
		m.mutations,
		m.searches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePurchase counts one purchase attempt.
func (m *Metrics) ObservePurchase(err error) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(purchaseResult(err)).Inc()
}

// ObserveMutation counts one create, update or delete.
func (m *Metrics) ObserveMutation(operation string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.mutations.WithLabelValues(operation, result).Inc()
}

// ObserveSearch counts one catalog search.
func (m *Metrics) ObserveSearch() {
	if m == nil {
		return
	}
	m.searches.Inc()
}

func purchaseResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, models.ErrOutOfStockOrNotFound):
		return ResultOutOfStock
	default:
		return ResultError
	}
}

// PurchaseCounter returns the counter for result, for tests and diagnostics.
func (m *Metrics) PurchaseCounter(result string) prometheus.Counter {
	return m.purchases.WithLabelValues(result)
}

// Searches returns the catalog search counter.
func (m *Metrics) Searches() prometheus.Counter {
	return m.searches
}
