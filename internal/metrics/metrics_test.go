package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Checkout(OutcomePlaced)
	m.Checkout(OutcomePlaced)
	m.Checkout(OutcomeOutOfStock)
	m.DegradedWrite("order_mirror")
	m.ObserveRemote("products", "GET", "ok", 25*time.Millisecond)
	m.Archived(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CheckoutsTotal.WithLabelValues(OutcomePlaced)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutsTotal.WithLabelValues(OutcomeOutOfStock)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DegradedWritesTotal.WithLabelValues("order_mirror")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OrdersArchivedTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RemoteRequestDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Checkout(OutcomePlaced)
		m.DegradedWrite("stock_decrement")
		m.ObserveRemote("orders", "POST", "error", time.Second)
		m.Archived(1)
	})
}
