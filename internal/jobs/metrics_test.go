package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	require.NoError(t, metrics.Track("notify:low_stock").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, metrics.Track("notify:low_stock").End(boom), boom)
	metrics.AddLowStockAlerts(3)
	metrics.AddLowStockAlerts(0)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("notify:low_stock", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("notify:low_stock", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("notify:low_stock")))
	require.Equal(t, 3.0, testutil.ToFloat64(metrics.alerts))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	err := errors.New("x")
	require.Equal(t, err, metrics.Track("job").End(err))
	metrics.AddLowStockAlerts(2)
}
