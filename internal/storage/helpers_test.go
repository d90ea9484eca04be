package storage

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
)

func testutilValue(t *testing.T, pm *metrics.PrometheusMetrics, operation, table string) float64 {
	t.Helper()
	return testutil.ToFloat64(pm.DatabaseOperationsTotal.WithLabelValues(operation, table, "success"))
}
