package reconciliation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/internal/audit"
	"github.com/smartdevs17/dao-reconciler/internal/blockchain"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/internal/models"
	"github.com/smartdevs17/dao-reconciler/internal/storage"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// Pass triggers
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Stats are the counters of one reconciler instance
type Stats struct {
	TotalReconciliations      int64         `json:"total_reconciliations"`
	SuccessfulReconciliations int64         `json:"successful_reconciliations"`
	FailedReconciliations     int64         `json:"failed_reconciliations"`
	ConflictsResolved         int64         `json:"conflicts_resolved"`
	DataRepairs               int64         `json:"data_repairs"`
	LastRunAt                 *time.Time    `json:"last_run_at,omitempty"`
	LastSuccessAt             *time.Time    `json:"last_success_at,omitempty"`
	LastError                 string        `json:"last_error,omitempty"`
	LastDuration              time.Duration `json:"last_duration"`
}

// Result describes one completed pass
type Result struct {
	RunID       string        `json:"run_id"`
	Trigger     string        `json:"trigger"`
	Conflicts   int           `json:"conflicts"`
	DataRepairs int           `json:"data_repairs"`
	Stale       int           `json:"stale"`
	Duration    time.Duration `json:"duration"`
	StartedAt   time.Time     `json:"started_at"`
}

// Options tunes a Reconciler
type Options struct {
	// CallTimeout bounds each blockchain call; zero disables it
	CallTimeout time.Duration
	// AuditRepairs logs conflict_resolved for every applied repair
	AuditRepairs bool
	// Guard defaults to a LocalGuard
	Guard   Guard
	Metrics *metrics.Manager
}

// Reconciler detects and resolves divergence between backend rows and the chain
type Reconciler struct {
	detector       *Detector
	resolver       *Resolver
	auditLogger    audit.Logger
	guard          Guard
	logger         *logrus.Entry
	metricsManager *metrics.Manager

	mu    sync.Mutex
	stats Stats
}

// NewReconciler wires a detector and resolver over the given collaborators
func NewReconciler(store storage.Store, chain blockchain.Service, auditLogger audit.Logger, opts Options) *Reconciler {
	guard := opts.Guard
	if guard == nil {
		guard = NewLocalGuard()
	}

	return &Reconciler{
		detector:       NewDetector(store, chain, opts.CallTimeout, opts.Metrics),
		resolver:       NewResolver(store, auditLogger, opts.AuditRepairs, opts.Metrics),
		auditLogger:    auditLogger,
		guard:          guard,
		logger:         utils.ComponentLogger("reconciler"),
		metricsManager: opts.Metrics,
	}
}

// DetectAndResolveConflicts runs one scheduled pass
func (r *Reconciler) DetectAndResolveConflicts(ctx context.Context) (*Result, error) {
	return r.run(ctx, TriggerScheduled)
}

// ForceReconciliation runs one pass on demand. It shares the guard and
// counters with scheduled passes.
func (r *Reconciler) ForceReconciliation(ctx context.Context) (*Result, error) {
	return r.run(ctx, TriggerManual)
}

// GetReconciliationStats returns a copy of the counters
func (r *Reconciler) GetReconciliationStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// GetConflictSummary runs every detector without resolving anything
func (r *Reconciler) GetConflictSummary(ctx context.Context) (*ConflictSummary, error) {
	conflicts, err := r.detector.DetectAll(ctx)
	if err != nil {
		return nil, err
	}
	return NewConflictSummary(conflicts), nil
}

// DetectConflicts runs the detector of one entity type without resolving
func (r *Reconciler) DetectConflicts(ctx context.Context, t EntityType) ([]*Conflict, error) {
	return r.detector.Detect(ctx, t)
}

// Detector exposes the per-entity detectors
func (r *Reconciler) Detector() *Detector {
	return r.detector
}

func (r *Reconciler) run(ctx context.Context, trigger string) (*Result, error) {
	release, err := r.guard.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrReconciliationInProgress) {
			r.logger.WithField("trigger", trigger).Warn("Reconciliation already in progress, skipping")
			if r.metricsManager != nil {
				r.metricsManager.GetPrometheusMetrics().RecordReconciliationRejected(trigger)
			}
		}
		return nil, err
	}
	defer release()

	if r.metricsManager != nil {
		pm := r.metricsManager.GetPrometheusMetrics()
		pm.SetReconciliationInProgress(true)
		defer pm.SetReconciliationInProgress(false)
	}

	start := time.Now().UTC()
	runID := utils.GenerateID()
	r.mu.Lock()
	r.stats.TotalReconciliations++
	r.stats.LastRunAt = &start
	r.mu.Unlock()

	log := r.logger.WithFields(logrus.Fields{"trigger": trigger, "run_id": runID})
	log.Info("Starting reconciliation")

	result, err := r.pass(ctx, trigger, start)
	duration := time.Since(start)
	if err != nil {
		r.fail(ctx, trigger, runID, err, duration)
		return nil, err
	}
	result.RunID = runID
	result.Duration = duration

	r.mu.Lock()
	r.stats.SuccessfulReconciliations++
	r.stats.ConflictsResolved += int64(result.Conflicts)
	r.stats.DataRepairs += int64(result.DataRepairs)
	r.stats.LastSuccessAt = &start
	r.stats.LastError = ""
	r.stats.LastDuration = duration
	r.mu.Unlock()

	if r.metricsManager != nil {
		r.metricsManager.GetPrometheusMetrics().RecordReconciliation(trigger, "success", duration)
	}

	log.WithFields(logrus.Fields{
		"conflicts":    result.Conflicts,
		"data_repairs": result.DataRepairs,
		"stale":        result.Stale,
		"duration":     duration,
	}).Info("Reconciliation completed")

	r.audit(ctx, audit.EventReconciliationCompleted, models.LevelInfo, map[string]interface{}{
		"trigger":            trigger,
		"run_id":             runID,
		"conflicts_detected": result.Conflicts,
		"conflicts_resolved": result.Conflicts,
		"data_repairs":       result.DataRepairs,
		"stale":              result.Stale,
		"duration_ms":        duration.Milliseconds(),
	})
	return result, nil
}

// pass detects every conflict then resolves them one by one; the first error abandons it
func (r *Reconciler) pass(ctx context.Context, trigger string, start time.Time) (*Result, error) {
	conflicts, err := r.detector.DetectAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Trigger: trigger, StartedAt: start, Conflicts: len(conflicts)}
	for _, c := range conflicts {
		res, err := r.resolver.ResolveConflict(ctx, c)
		if err != nil {
			return nil, err
		}
		if res.Stale {
			result.Stale++
			continue
		}
		result.DataRepairs++
	}
	return result, nil
}

func (r *Reconciler) fail(ctx context.Context, trigger, runID string, err error, duration time.Duration) {
	r.mu.Lock()
	r.stats.FailedReconciliations++
	r.stats.LastError = err.Error()
	r.stats.LastDuration = duration
	r.mu.Unlock()

	if r.metricsManager != nil {
		r.metricsManager.GetPrometheusMetrics().RecordReconciliation(trigger, "failure", duration)
	}

	r.logger.WithError(err).WithFields(logrus.Fields{
		"trigger":    trigger,
		"run_id":     runID,
		"error_code": utils.ErrorCode(err),
		"duration":   duration,
	}).Error("Reconciliation failed")

	details := map[string]interface{}{
		"trigger":     trigger,
		"run_id":      runID,
		"error":       err.Error(),
		"duration_ms": duration.Milliseconds(),
	}
	if code := utils.ErrorCode(err); code != "" {
		details["error_code"] = code
	}
	r.audit(ctx, audit.EventReconciliationFailed, models.LevelError, details)
}

// audit records a pass event; failures are logged and otherwise ignored
func (r *Reconciler) audit(ctx context.Context, event, level string, details map[string]interface{}) {
	if r.auditLogger == nil {
		return
	}

	// a cancelled pass still gets its audit record
	ctx = context.WithoutCancel(ctx)
	err := r.auditLogger.LogAuditEvent(ctx, event, audit.Payload{
		Level:    level,
		Category: models.CategoryReconciliation,
		Details:  details,
	})
	if err != nil {
		r.logger.WithError(err).WithField("event", event).Warn("Failed to record audit event")
	}
}
