package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/internal/models"
)

// StorageWithMetrics wraps a storage implementation with metrics
type StorageWithMetrics struct {
	Store
	metricsManager *metrics.Manager
}

// NewStorageWithMetrics creates a storage wrapper with metrics
func NewStorageWithMetrics(store Store, metricsManager *metrics.Manager) *StorageWithMetrics {
	return &StorageWithMetrics{
		Store:          store,
		metricsManager: metricsManager,
	}
}

func (s *StorageWithMetrics) record(operation string, table Table, start time.Time, err error) {
	if s.metricsManager == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metricsManager.GetPrometheusMetrics().RecordDatabaseOperation(operation, string(table), status, time.Since(start))
}

// GetCommunities scans communities and records metrics
func (s *StorageWithMetrics) GetCommunities(ctx context.Context) ([]*models.Community, error) {
	start := time.Now()
	out, err := s.Store.GetCommunities(ctx)
	s.record("select", TableCommunities, start, err)
	return out, err
}

// GetMembers scans members and records metrics
func (s *StorageWithMetrics) GetMembers(ctx context.Context) ([]*models.Member, error) {
	start := time.Now()
	out, err := s.Store.GetMembers(ctx)
	s.record("select", TableMembers, start, err)
	return out, err
}

// GetQuestions scans voting questions and records metrics
func (s *StorageWithMetrics) GetQuestions(ctx context.Context) ([]*models.VotingQuestion, error) {
	start := time.Now()
	out, err := s.Store.GetQuestions(ctx)
	s.record("select", TableQuestions, start, err)
	return out, err
}

// GetVotes scans votes and records metrics
func (s *StorageWithMetrics) GetVotes(ctx context.Context) ([]*models.Vote, error) {
	start := time.Now()
	out, err := s.Store.GetVotes(ctx)
	s.record("select", TableVotes, start, err)
	return out, err
}

// GetUsers scans users and records metrics
func (s *StorageWithMetrics) GetUsers(ctx context.Context) ([]*models.User, error) {
	start := time.Now()
	out, err := s.Store.GetUsers(ctx)
	s.record("select", TableUsers, start, err)
	return out, err
}

// SaveAuditEvent saves an audit event and records metrics
func (s *StorageWithMetrics) SaveAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	start := time.Now()
	err := s.Store.SaveAuditEvent(ctx, event)
	s.record("insert", TableAuditEvents, start, err)
	return err
}

// BeginTx starts a transaction whose updates are recorded
func (s *StorageWithMetrics) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.Store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &txWithMetrics{Tx: tx, parent: s}, nil
}

type txWithMetrics struct {
	Tx
	parent *StorageWithMetrics
}

func (t *txWithMetrics) Update(ctx context.Context, table Table, fields Fields, where Fields) (int64, error) {
	start := time.Now()
	n, err := t.Tx.Update(ctx, table, fields, where)
	t.parent.record("update", table, start, err)
	return n, err
}
