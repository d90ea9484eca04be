package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/reconciliation"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// Runner runs one reconciliation pass
type Runner interface {
	DetectAndResolveConflicts(ctx context.Context) (*reconciliation.Result, error)
}

// Scheduler triggers reconciliation passes on a cron schedule
type Scheduler struct {
	cron       *cron.Cron
	runner     Runner
	spec       string
	runTimeout time.Duration
	runOnStart bool
	logger     *logrus.Entry

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. The schedule has a leading seconds field.
func New(cfg *config.ReconciliationConfig, runner Runner) (*Scheduler, error) {
	logger := utils.ComponentLogger("scheduler")
	cronLogger := &cronLogger{entry: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:     runner,
		spec:       cfg.Schedule,
		runTimeout: cfg.RunTimeout,
		runOnStart: cfg.RunOnStart,
		logger:     logger,
		ctx:        context.Background(),
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, utils.WrapError(utils.ErrCodeConfiguration, "Invalid reconciliation schedule", err)
	}
	return s, nil
}

// Start begins scheduling. Passes are cancelled when ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule":     s.spec,
		"run_timeout":  s.runTimeout,
		"run_on_start": s.runOnStart,
	}).Info("Reconciliation scheduler started")

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick()
		}()
	}
}

// Stop cancels running passes and waits for them to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("Reconciliation scheduler stopped")
}

// NextRun returns the next scheduled activation, zero before Start
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	// keep each run bounded
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	result, err := s.runner.DetectAndResolveConflicts(ctx)
	switch {
	case errors.Is(err, reconciliation.ErrReconciliationInProgress):
		s.logger.Debug("Skipping tick, reconciliation already running")
	case err != nil:
		s.logger.WithError(err).Warn("Scheduled reconciliation failed")
	default:
		s.logger.WithFields(logrus.Fields{
			"conflicts":    result.Conflicts,
			"data_repairs": result.DataRepairs,
			"duration":     result.Duration,
		}).Debug("Scheduled reconciliation finished")
	}
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	entry *logrus.Entry
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(pairs(keysAndValues)).Error(msg)
}

func pairs(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
