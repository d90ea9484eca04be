package reconciliation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/internal/audit"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/internal/models"
	"github.com/smartdevs17/dao-reconciler/internal/storage"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// repairAuditTimeout bounds each conflict_resolved delivery so a slow sink
// cannot stretch a pass by its full retry budget per repair
const repairAuditTimeout = 5 * time.Second

// Resolver repairs backend rows so they agree with the chain. Rows are never deleted.
type Resolver struct {
	store          storage.Store
	auditLogger    audit.Logger
	auditRepairs   bool
	auditTimeout   time.Duration
	logger         *logrus.Entry
	metricsManager *metrics.Manager
}

// NewResolver creates a resolver. auditLogger may be nil.
func NewResolver(store storage.Store, auditLogger audit.Logger, auditRepairs bool, metricsManager *metrics.Manager) *Resolver {
	return &Resolver{
		store:          store,
		auditLogger:    auditLogger,
		auditRepairs:   auditRepairs,
		auditTimeout:   repairAuditTimeout,
		logger:         utils.ComponentLogger("resolver"),
		metricsManager: metricsManager,
	}
}

// ResolveConflict applies the repair policy for one conflict inside its own transaction
func (r *Resolver) ResolveConflict(ctx context.Context, conflict *Conflict) (res *Resolution, err error) {
	if conflict == nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Conflict is required")
	}

	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return nil, resolutionError(conflict, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.WithError(rbErr).Warn("Rollback failed")
			}
			r.recordResult(conflict, "error")
		}
	}()

	exists, err := rowExists(ctx, tx, conflict)
	if err != nil {
		return nil, resolutionError(conflict, err)
	}

	res = &Resolution{Conflict: conflict, Action: ActionNone}
	if !exists {
		if err = tx.Commit(); err != nil {
			return nil, resolutionError(conflict, err)
		}
		res.Stale = true
		r.recordResult(conflict, "stale")
		r.logger.WithFields(logrus.Fields{
			"entity":    conflict.Type,
			"entity_id": conflict.EntityID,
		}).Debug("Row vanished before resolution")
		return res, nil
	}

	now := time.Now().UTC()
	switch conflict.ConflictType {
	case ConflictMissingOnBlockchain:
		err = r.deactivate(ctx, tx, conflict, now, res)
	case ConflictDataMismatch:
		fields := RepairFields(fieldsFor(conflict.Type), conflict.BlockchainData)
		if len(fields) == 0 {
			err = utils.NewAppError(utils.ErrCodeValidation, "Nothing to repair", string(conflict.Type))
			break
		}
		fields["updated_at"] = now
		res.Action = ActionOverwritten
		res.Rows, err = tx.Update(ctx, conflict.Type.Table(), fields, storage.Fields{"id": conflict.EntityID})
	default:
		err = utils.NewAppError(utils.ErrCodeValidation, "Unknown conflict type", string(conflict.ConflictType))
	}
	if err != nil {
		return nil, resolutionError(conflict, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, resolutionError(conflict, err)
	}

	r.recordResult(conflict, "repaired")
	if r.metricsManager != nil {
		r.metricsManager.GetPrometheusMetrics().RecordDataRepair(string(conflict.Type), string(conflict.ConflictType))
	}
	r.logger.WithFields(logrus.Fields{
		"entity":        conflict.Type,
		"entity_id":     conflict.EntityID,
		"conflict_type": conflict.ConflictType,
		"action":        res.Action,
		"rows":          res.Rows,
		"cascaded":      res.Cascaded,
	}).Info("Conflict resolved")
	r.auditRepair(ctx, res)
	return res, nil
}

// deactivate marks a row with no on-chain record as inactive, or invalid for votes
func (r *Resolver) deactivate(ctx context.Context, tx storage.Tx, c *Conflict, now time.Time, res *Resolution) (err error) {
	byID := storage.Fields{"id": c.EntityID}
	res.Action = ActionDeactivated

	switch c.Type {
	case EntityCommunity:
		res.Rows, err = tx.Update(ctx, storage.TableCommunities, storage.Fields{
			"status":     models.CommunityStatusInactive,
			"is_active":  false,
			"updated_at": now,
		}, byID)
		if err != nil {
			return err
		}
		res.Cascaded, err = tx.Update(ctx, storage.TableMembers, storage.Fields{
			"status":     models.MemberStatusInactive,
			"updated_at": now,
		}, storage.Fields{"community_id": c.EntityID})
	case EntityMembership:
		res.Rows, err = tx.Update(ctx, storage.TableMembers, storage.Fields{
			"status":     models.MemberStatusInactive,
			"updated_at": now,
		}, byID)
	case EntityQuestion:
		res.Rows, err = tx.Update(ctx, storage.TableQuestions, storage.Fields{
			"status":     models.QuestionStatusInactive,
			"updated_at": now,
		}, byID)
	case EntityVote:
		res.Action = ActionQuarantined
		res.Rows, err = tx.Update(ctx, storage.TableVotes, storage.Fields{
			"status":     models.VoteStatusInvalid,
			"updated_at": now,
		}, byID)
	case EntityUser:
		res.Rows, err = tx.Update(ctx, storage.TableUsers, storage.Fields{
			"status":     models.UserStatusInactive,
			"is_active":  false,
			"updated_at": now,
		}, byID)
	default:
		err = utils.NewAppError(utils.ErrCodeValidation, "Unknown entity type", string(c.Type))
	}
	return err
}

// rowExists loads the conflicting row within tx
func rowExists(ctx context.Context, tx storage.Tx, c *Conflict) (bool, error) {
	switch c.Type {
	case EntityCommunity:
		row, err := tx.GetCommunity(ctx, c.EntityID)
		return row != nil, err
	case EntityMembership:
		row, err := tx.GetMember(ctx, c.EntityID)
		return row != nil, err
	case EntityQuestion:
		row, err := tx.GetQuestion(ctx, c.EntityID)
		return row != nil, err
	case EntityVote:
		row, err := tx.GetVote(ctx, c.EntityID)
		return row != nil, err
	case EntityUser:
		row, err := tx.GetUser(ctx, c.EntityID)
		return row != nil, err
	default:
		return false, utils.NewAppError(utils.ErrCodeValidation, "Unknown entity type", string(c.Type))
	}
}

func (r *Resolver) auditRepair(ctx context.Context, res *Resolution) {
	if !r.auditRepairs || r.auditLogger == nil {
		return
	}

	c := res.Conflict
	details := map[string]interface{}{
		"entity_type":   c.Type,
		"entity_id":     c.EntityID,
		"conflict_type": c.ConflictType,
		"action":        res.Action,
		"rows":          res.Rows,
	}
	if res.Cascaded > 0 {
		details["cascaded"] = res.Cascaded
	}
	if len(c.Fields) > 0 {
		details["fields"] = c.Fields
	}

	auditCtx, cancel := context.WithTimeout(ctx, r.auditTimeout)
	defer cancel()

	err := r.auditLogger.LogAuditEvent(auditCtx, audit.EventConflictResolved, audit.Payload{
		Level:    models.LevelInfo,
		Category: models.CategoryReconciliation,
		Details:  details,
	})
	if err != nil {
		r.logger.WithError(err).Warn("Failed to record repair audit event")
	}
}

func (r *Resolver) recordResult(c *Conflict, result string) {
	if r.metricsManager != nil {
		r.metricsManager.GetPrometheusMetrics().RecordConflictResolved(string(c.Type), result)
	}
}

func resolutionError(c *Conflict, err error) error {
	if utils.ErrorCode(err) != "" {
		return err
	}
	return utils.WrapError(utils.ErrCodeReconciliation,
		"Failed to resolve "+string(c.Type)+" conflict for "+c.EntityID, err)
}
