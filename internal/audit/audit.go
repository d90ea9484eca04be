package audit

import (
	"context"
	"errors"

	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/internal/models"
)

// Event names
const (
	EventReconciliationCompleted = "conflict_reconciliation_completed"
	EventReconciliationFailed    = "conflict_reconciliation_failed"
	EventConflictResolved        = "conflict_resolved"
)

// Payload carries the level, category and structured details of an event
type Payload struct {
	Level    string
	Category string
	Details  map[string]interface{}
}

// Logger is an append-only audit log
type Logger interface {
	LogAuditEvent(ctx context.Context, event string, payload Payload) error
}

// sink is a named Logger used by Multi for failure accounting
type sink struct {
	name   string
	logger Logger
}

// Multi fans an event out to every sink. A failing sink does not stop the
// others; all failures are returned joined.
type Multi struct {
	sinks          []sink
	metricsManager *metrics.Manager
}

// NewMulti creates an empty fan-out logger
func NewMulti(metricsManager *metrics.Manager) *Multi {
	return &Multi{metricsManager: metricsManager}
}

// Add registers a sink under name
func (m *Multi) Add(name string, logger Logger) *Multi {
	m.sinks = append(m.sinks, sink{name: name, logger: logger})
	return m
}

func (m *Multi) LogAuditEvent(ctx context.Context, event string, payload Payload) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.logger.LogAuditEvent(ctx, event, payload); err != nil {
			errs = append(errs, err)
			if m.metricsManager != nil {
				m.metricsManager.GetPrometheusMetrics().RecordAuditDeliveryFailure(s.name)
			}
		}
	}
	if m.metricsManager != nil {
		m.metricsManager.GetPrometheusMetrics().RecordAuditEvent(event, payload.Level)
	}
	return errors.Join(errs...)
}

// levelRank orders audit levels for threshold checks
func levelRank(level string) int {
	switch level {
	case models.LevelError:
		return 3
	case models.LevelWarn:
		return 2
	case models.LevelInfo:
		return 1
	default:
		return 0
	}
}
