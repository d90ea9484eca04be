package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dao_reconciler"

// PrometheusMetrics contains all Prometheus metrics for the reconciler
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Reconciliation metrics
	ReconciliationsTotal     *prometheus.CounterVec
	ReconciliationDuration   *prometheus.HistogramVec
	ReconciliationInProgress prometheus.Gauge
	ReconciliationsRejected  *prometheus.CounterVec
	LastSuccessfulRun        prometheus.Gauge
	ConflictsDetectedTotal   *prometheus.CounterVec
	ConflictsResolvedTotal   *prometheus.CounterVec
	DataRepairsTotal         *prometheus.CounterVec
	DetectionDuration        *prometheus.HistogramVec

	// Connection and error metrics
	ConnectionErrorsTotal *prometheus.CounterVec
	RPCRequestsTotal      *prometheus.CounterVec
	RPCRequestDuration    *prometheus.HistogramVec

	// Storage metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec

	// Audit metrics
	AuditEventsTotal      *prometheus.CounterVec
	AuditDeliveryFailures *prometheus.CounterVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates all metrics on a dedicated registry
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,

		ReconciliationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Total number of reconciliation passes by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),

		ReconciliationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconciliation_duration_seconds",
				Help:      "Duration of reconciliation passes",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),

		ReconciliationInProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reconciliation_in_progress",
				Help:      "1 while a reconciliation pass is running",
			},
		),

		ReconciliationsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_rejected_total",
				Help:      "Passes rejected because another pass held the run guard",
			},
			[]string{"trigger"},
		),

		LastSuccessfulRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_successful_reconciliation_timestamp_seconds",
				Help:      "Unix time of the last successful reconciliation pass",
			},
		),

		ConflictsDetectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conflicts_detected_total",
				Help:      "Conflicts found by the detectors",
			},
			[]string{"entity", "conflict_type"},
		),

		ConflictsResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conflicts_resolved_total",
				Help:      "Conflicts handled by the resolver",
			},
			[]string{"entity", "result"},
		),

		DataRepairsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "data_repairs_total",
				Help:      "Backend rows repaired from blockchain state",
			},
			[]string{"entity", "conflict_type"},
		),

		DetectionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "detection_duration_seconds",
				Help:      "Time spent detecting conflicts for one entity type",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"entity"},
		),

		ConnectionErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_errors_total",
				Help:      "Total number of connection errors to RPC endpoints",
			},
			[]string{"endpoint", "error_type"},
		),

		RPCRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_requests_total",
				Help:      "Total number of RPC requests",
			},
			[]string{"endpoint", "method", "status"},
		),

		RPCRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_request_duration_seconds",
				Help:      "Duration of RPC requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint", "method"},
		),

		DatabaseOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "database_operations_total",
				Help:      "Total number of database operations",
			},
			[]string{"operation", "table", "status"},
		),

		DatabaseOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "database_operation_duration_seconds",
				Help:      "Duration of database operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),

		AuditEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_events_total",
				Help:      "Audit events logged",
			},
			[]string{"event", "level"},
		),

		AuditDeliveryFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_delivery_failures_total",
				Help:      "Audit events a sink failed to record",
			},
			[]string{"sink"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ApplicationUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "uptime_seconds",
				Help:      "Application uptime in seconds",
			},
		),

		ComponentHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "component_health",
				Help:      "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage in bytes",
			},
		),

		GoroutineCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "goroutines",
				Help:      "Number of running goroutines",
			},
		),
	}
}

// Registry returns the registry the metrics are registered on
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordReconciliation records the outcome of one pass
func (m *PrometheusMetrics) RecordReconciliation(trigger, outcome string, duration time.Duration) {
	m.ReconciliationsTotal.WithLabelValues(trigger, outcome).Inc()
	m.ReconciliationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome == "success" {
		m.LastSuccessfulRun.Set(float64(time.Now().Unix()))
	}
}

// RecordReconciliationRejected records a pass turned away by the run guard
func (m *PrometheusMetrics) RecordReconciliationRejected(trigger string) {
	m.ReconciliationsRejected.WithLabelValues(trigger).Inc()
}

// SetReconciliationInProgress flips the in-progress gauge
func (m *PrometheusMetrics) SetReconciliationInProgress(running bool) {
	value := 0.0
	if running {
		value = 1.0
	}
	m.ReconciliationInProgress.Set(value)
}

func (m *PrometheusMetrics) RecordConflictDetected(entity, conflictType string) {
	m.ConflictsDetectedTotal.WithLabelValues(entity, conflictType).Inc()
}

func (m *PrometheusMetrics) RecordConflictResolved(entity, result string) {
	m.ConflictsResolvedTotal.WithLabelValues(entity, result).Inc()
}

func (m *PrometheusMetrics) RecordDataRepair(entity, conflictType string) {
	m.DataRepairsTotal.WithLabelValues(entity, conflictType).Inc()
}

// RecordDetectionDuration records how long one detector ran
func (m *PrometheusMetrics) RecordDetectionDuration(entity string, duration time.Duration) {
	m.DetectionDuration.WithLabelValues(entity).Observe(duration.Seconds())
}

// RecordConnectionError records a connection error
func (m *PrometheusMetrics) RecordConnectionError(endpoint, errorType string) {
	m.ConnectionErrorsTotal.WithLabelValues(endpoint, errorType).Inc()
}

// RecordRPCRequest records an RPC request
func (m *PrometheusMetrics) RecordRPCRequest(endpoint, method, status string, duration time.Duration) {
	m.RPCRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	m.RPCRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// RecordDatabaseOperation records a database operation
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, table, status string, duration time.Duration) {
	m.DatabaseOperationsTotal.WithLabelValues(operation, table, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordAuditEvent records a logged audit event
func (m *PrometheusMetrics) RecordAuditEvent(event, level string) {
	m.AuditEventsTotal.WithLabelValues(event, level).Inc()
}

// RecordAuditDeliveryFailure records a sink that failed to take an event
func (m *PrometheusMetrics) RecordAuditDeliveryFailure(sink string) {
	m.AuditDeliveryFailures.WithLabelValues(sink).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
