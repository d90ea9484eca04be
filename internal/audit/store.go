package audit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/internal/models"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// EventStore persists audit events
type EventStore interface {
	SaveAuditEvent(ctx context.Context, event *models.AuditEvent) error
}

// StoreLogger writes audit events to the database and mirrors them to the log
type StoreLogger struct {
	store  EventStore
	logger *logrus.Entry
}

// NewStoreLogger creates an audit logger backed by store
func NewStoreLogger(store EventStore) *StoreLogger {
	return &StoreLogger{
		store:  store,
		logger: utils.ComponentLogger("audit"),
	}
}

func (l *StoreLogger) LogAuditEvent(ctx context.Context, event string, payload Payload) error {
	record := &models.AuditEvent{
		ID:        utils.GenerateID(),
		Event:     event,
		Level:     payload.Level,
		Category:  payload.Category,
		Details:   payload.Details,
		CreatedAt: time.Now().UTC(),
	}

	entry := l.logger.WithFields(logrus.Fields{
		"audit_id": record.ID,
		"event":    event,
		"category": payload.Category,
	}).WithFields(logrus.Fields(payload.Details))

	switch payload.Level {
	case models.LevelError:
		entry.Error("Audit event")
	case models.LevelWarn:
		entry.Warn("Audit event")
	default:
		entry.Info("Audit event")
	}

	if err := l.store.SaveAuditEvent(ctx, record); err != nil {
		l.logger.WithError(err).WithField("event", event).Warn("Failed to persist audit event")
		return err
	}
	return nil
}
