package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/internal/models"
	"github.com/smartdevs17/dao-reconciler/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLogger struct{ calls int }

func (f *failingLogger) LogAuditEvent(ctx context.Context, event string, payload Payload) error {
	f.calls++
	return errors.New("sink unavailable")
}

type recordingLogger struct{ events []string }

func (r *recordingLogger) LogAuditEvent(ctx context.Context, event string, payload Payload) error {
	r.events = append(r.events, event)
	return nil
}

func TestStoreLoggerPersistsEvents(t *testing.T) {
	store := storage.NewSQLiteStorage(&storage.StorageConfig{
		ConnectionString: filepath.Join(t.TempDir(), "audit.db"),
	})
	require.NoError(t, store.Connect())
	defer store.Close()
	require.NoError(t, store.Migrate())

	logger := NewStoreLogger(store)
	err := logger.LogAuditEvent(context.Background(), EventReconciliationCompleted, Payload{
		Level:    models.LevelInfo,
		Category: models.CategoryReconciliation,
		Details:  map[string]interface{}{"conflicts_found": 2},
	})
	require.NoError(t, err)

	events, err := store.GetAuditEvents(context.Background(), models.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventReconciliationCompleted, events[0].Event)
	assert.Equal(t, models.LevelInfo, events[0].Level)
	assert.Equal(t, models.CategoryReconciliation, events[0].Category)
	assert.Equal(t, 2.0, events[0].Details["conflicts_found"])
}

func TestWebhookForwarder(t *testing.T) {
	var received []WebhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Audit-Token"))
		var p WebhookPayload
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&p)) {
			received = append(received, p)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	forwarder := NewWebhookForwarder(&config.AuditConfig{
		WebhookURL:     ts.URL,
		WebhookHeaders: map[string]string{"X-Audit-Token": "secret"},
		MinLevel:       models.LevelError,
	}, "dao-reconciler")

	ctx := context.Background()
	require.NoError(t, forwarder.LogAuditEvent(ctx, EventReconciliationCompleted, Payload{Level: models.LevelInfo}))
	require.NoError(t, forwarder.LogAuditEvent(ctx, EventReconciliationFailed, Payload{
		Level:    models.LevelError,
		Category: models.CategoryReconciliation,
		Details:  map[string]interface{}{"error": "rpc down"},
	}))

	require.Len(t, received, 1, "events below the minimum level are not forwarded")
	assert.Equal(t, EventReconciliationFailed, received[0].Event)
	assert.Equal(t, "dao-reconciler", received[0].Source)
	assert.Equal(t, "rpc down", received[0].Details["error"])
}

func TestWebhookForwarderRetriesServerErrors(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	forwarder := NewWebhookForwarder(&config.AuditConfig{WebhookURL: ts.URL, RetryAttempts: 2}, "test")
	require.NoError(t, forwarder.LogAuditEvent(context.Background(), EventConflictResolved, Payload{Level: models.LevelInfo}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestWebhookForwarderReportsRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()

	forwarder := NewWebhookForwarder(&config.AuditConfig{WebhookURL: ts.URL}, "test")
	assert.Error(t, forwarder.LogAuditEvent(context.Background(), EventConflictResolved, Payload{Level: models.LevelInfo}))
}

func TestMultiContinuesPastFailingSink(t *testing.T) {
	manager := metrics.NewManager()
	failing := &failingLogger{}
	recording := &recordingLogger{}

	multi := NewMulti(manager).Add("webhook", failing).Add("store", recording)
	err := multi.LogAuditEvent(context.Background(), EventReconciliationFailed, Payload{Level: models.LevelError})

	require.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, []string{EventReconciliationFailed}, recording.events)

	pm := manager.GetPrometheusMetrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.AuditDeliveryFailures.WithLabelValues("webhook")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.AuditEventsTotal.WithLabelValues(EventReconciliationFailed, models.LevelError)))
}
