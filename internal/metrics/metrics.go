// Package metrics exposes the Prometheus collectors used across the storefront.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// Checkout outcomes.
const (
	OutcomePlaced        = "placed"
	OutcomeOutOfStock    = "out_of_stock"
	OutcomeEmptyCart     = "empty_cart"
	OutcomeInvalid       = "invalid"
	OutcomePersistFailed = "persist_failed"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CheckoutsTotal        *prometheus.CounterVec
	DegradedWritesTotal   *prometheus.CounterVec
	RemoteRequestDuration *prometheus.HistogramVec
	OrdersArchivedTotal   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout attempts by outcome",
		}, []string{"outcome"}),
		DegradedWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "degraded_writes_total",
			Help:      "Best-effort remote writes that failed after the local write succeeded",
		}, []string{"operation"}),
		RemoteRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the remote catalogue API",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "method", "outcome"}),
		OrdersArchivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "orders_exported_total",
			Help:      "Orders written to archive files",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CheckoutsTotal,
			m.DegradedWritesTotal,
			m.RemoteRequestDuration,
			m.OrdersArchivedTotal,
		)
	}

	return m
}

// Checkout counts one checkout attempt with the given outcome.
func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutsTotal.WithLabelValues(outcome).Inc()
}

// DegradedWrite counts one failed best-effort remote write.
func (m *Metrics) DegradedWrite(operation string) {
	if m == nil {
		return
	}
	m.DegradedWritesTotal.WithLabelValues(operation).Inc()
}

// ObserveRemote records the latency of one remote call.
func (m *Metrics) ObserveRemote(resource, method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RemoteRequestDuration.WithLabelValues(resource, method, outcome).Observe(d.Seconds())
}

// Archived counts orders written to an archive.
func (m *Metrics) Archived(n int) {
	if m == nil {
		return
	}
	m.OrdersArchivedTotal.Add(float64(n))
}
