// Package metrics holds the Prometheus collectors for the inventory core.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests and small tools.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "saresari"

// Metrics groups every collector the core reports.
type Metrics struct {
	InventoryChanges  *prometheus.CounterVec
	UnitsMoved        *prometheus.CounterVec
	SalesCompleted    prometheus.Counter
	SaleItems         prometheus.Counter
	OperationFailures *prometheus.CounterVec
	ReconnectAttempts *prometheus.CounterVec
	SettingsWriteWait prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// If reg is nil the collectors are created but not registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InventoryChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_changes_total",
			Help:      "Inventory history rows written, by reason.",
		}, []string{"reason"}),
		UnitsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_units_moved_total",
			Help:      "Absolute units moved by committed inventory changes, by direction.",
		}, []string{"direction"}),
		SalesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_completed_total",
			Help:      "Sales committed.",
		}),
		SaleItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_items_total",
			Help:      "Sale line items committed.",
		}),
		OperationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Failed ledger operations, by operation and error code.",
		}, []string{"operation", "code"}),
		ReconnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_reconnect_attempts_total",
			Help:      "Database reconnect attempts, by outcome.",
		}, []string{"outcome"}),
		SettingsWriteWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settings_write_wait_seconds",
			Help:      "Time a settings write waited for the single writer.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.InventoryChanges,
			m.UnitsMoved,
			m.SalesCompleted,
			m.SaleItems,
			m.OperationFailures,
			m.ReconnectAttempts,
			m.SettingsWriteWait,
		)
	}

	return m
}

// ObserveChanges counts committed inventory deltas keyed by reason.
func (m *Metrics) ObserveChanges(reasons []string, deltas []int) {
	if m == nil {
		return
	}
	for i, reason := range reasons {
		m.InventoryChanges.WithLabelValues(reason).Inc()
		d := deltas[i]
		switch {
		case d > 0:
			m.UnitsMoved.WithLabelValues("in").Add(float64(d))
		case d < 0:
			m.UnitsMoved.WithLabelValues("out").Add(float64(-d))
		}
	}
}

// ObserveSale counts a committed sale with n line items.
func (m *Metrics) ObserveSale(n int) {
	if m == nil {
		return
	}
	m.SalesCompleted.Inc()
	m.SaleItems.Add(float64(n))
}

// ObserveFailure counts a failed operation.
func (m *Metrics) ObserveFailure(operation, code string) {
	if m == nil {
		return
	}
	m.OperationFailures.WithLabelValues(operation, code).Inc()
}

// ObserveReconnect counts one reconnect attempt.
func (m *Metrics) ObserveReconnect(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.ReconnectAttempts.WithLabelValues(outcome).Inc()
}

// ObserveSettingsWait records how long a settings write waited for admission.
func (m *Metrics) ObserveSettingsWait(d time.Duration) {
	if m == nil {
		return
	}
	m.SettingsWriteWait.Observe(d.Seconds())
}
