package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/internal/blockchain"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/internal/models"
	"github.com/smartdevs17/dao-reconciler/internal/storage"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// Detector compares backend rows with their on-chain records
type Detector struct {
	store          storage.Store
	chain          blockchain.Service
	callTimeout    time.Duration
	logger         *logrus.Entry
	metricsManager *metrics.Manager
}

// NewDetector creates a detector. A zero callTimeout leaves calls unbounded.
func NewDetector(store storage.Store, chain blockchain.Service, callTimeout time.Duration, metricsManager *metrics.Manager) *Detector {
	return &Detector{
		store:          store,
		chain:          chain,
		callTimeout:    callTimeout,
		logger:         utils.ComponentLogger("detector"),
		metricsManager: metricsManager,
	}
}

// DetectAll runs every detector in order and concatenates their conflicts
func (d *Detector) DetectAll(ctx context.Context) ([]*Conflict, error) {
	var all []*Conflict
	for _, t := range EntityTypes {
		conflicts, err := d.Detect(ctx, t)
		if err != nil {
			return nil, err
		}
		all = append(all, conflicts...)
	}
	return all, nil
}

// Detect runs the detector for one entity type
func (d *Detector) Detect(ctx context.Context, t EntityType) ([]*Conflict, error) {
	start := time.Now()

	var (
		conflicts []*Conflict
		err       error
	)
	switch t {
	case EntityCommunity:
		conflicts, err = d.DetectCommunityConflicts(ctx)
	case EntityMembership:
		conflicts, err = d.DetectMembershipConflicts(ctx)
	case EntityQuestion:
		conflicts, err = d.DetectQuestionConflicts(ctx)
	case EntityVote:
		conflicts, err = d.DetectVoteConflicts(ctx)
	case EntityUser:
		conflicts, err = d.DetectUserConflicts(ctx)
	default:
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Unknown entity type", string(t))
	}

	if d.metricsManager != nil {
		pm := d.metricsManager.GetPrometheusMetrics()
		pm.RecordDetectionDuration(string(t), time.Since(start))
		for _, c := range conflicts {
			pm.RecordConflictDetected(string(c.Type), string(c.ConflictType))
		}
	}
	if err != nil {
		return nil, err
	}

	d.logger.WithFields(logrus.Fields{
		"entity":    t,
		"conflicts": len(conflicts),
		"duration":  time.Since(start),
	}).Debug("Detection finished")
	return conflicts, nil
}

// DetectCommunityConflicts compares communities by on-chain id
func (d *Detector) DetectCommunityConflicts(ctx context.Context) ([]*Conflict, error) {
	rows, err := d.store.GetCommunities(ctx)
	if err != nil {
		return nil, detectionError(EntityCommunity, err)
	}

	contracts := d.chain.GetContractManager()
	var conflicts []*Conflict
	for _, row := range rows {
		if row.Deactivated() {
			continue
		}

		var data *blockchain.CommunityData
		err := d.withTimeout(ctx, func(callCtx context.Context) (err error) {
			data, err = contracts.GetCommunityData(callCtx, row.OnChainID)
			return err
		})
		if err != nil {
			return nil, detectionError(EntityCommunity, err)
		}

		base := &Conflict{Type: EntityCommunity, EntityID: row.ID, OnChainID: row.OnChainID}
		var chain Snapshot
		if data != nil {
			chain = communityChainSnapshot(data)
		}
		if c := classify(base, communitySnapshot(row), chain, data == nil); c != nil {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}

// DetectMembershipConflicts compares memberships by community on-chain id and wallet
func (d *Detector) DetectMembershipConflicts(ctx context.Context) ([]*Conflict, error) {
	rows, err := d.store.GetMembers(ctx)
	if err != nil {
		return nil, detectionError(EntityMembership, err)
	}

	contracts := d.chain.GetContractManager()
	var conflicts []*Conflict
	for _, row := range rows {
		if row.Deactivated() {
			continue
		}

		// a membership whose community or user cannot be keyed cannot exist on chain
		var data *blockchain.MembershipData
		if row.CommunityOnChainID != "" && row.WalletAddress != "" {
			err := d.withTimeout(ctx, func(callCtx context.Context) (err error) {
				data, err = contracts.GetMembershipData(callCtx, row.CommunityOnChainID, row.WalletAddress)
				return err
			})
			if err != nil {
				return nil, detectionError(EntityMembership, err)
			}
		}

		base := &Conflict{
			Type:        EntityMembership,
			EntityID:    row.ID,
			CommunityID: row.CommunityOnChainID,
			UserAddress: row.WalletAddress,
		}
		var chain Snapshot
		if data != nil {
			chain = membershipChainSnapshot(data)
		}
		if c := classify(base, memberSnapshot(row), chain, data == nil); c != nil {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}

// DetectQuestionConflicts compares voting questions by on-chain id
func (d *Detector) DetectQuestionConflicts(ctx context.Context) ([]*Conflict, error) {
	rows, err := d.store.GetQuestions(ctx)
	if err != nil {
		return nil, detectionError(EntityQuestion, err)
	}

	contracts := d.chain.GetContractManager()
	var conflicts []*Conflict
	for _, row := range rows {
		if row.Deactivated() {
			continue
		}

		var data *blockchain.QuestionData
		err := d.withTimeout(ctx, func(callCtx context.Context) (err error) {
			data, err = contracts.GetQuestionData(callCtx, row.OnChainID)
			return err
		})
		if err != nil {
			return nil, detectionError(EntityQuestion, err)
		}

		base := &Conflict{
			Type:        EntityQuestion,
			EntityID:    row.ID,
			OnChainID:   row.OnChainID,
			CommunityID: row.CommunityOnChainID,
		}
		var chain Snapshot
		if data != nil {
			chain = questionChainSnapshot(data)
		}
		if c := classify(base, questionSnapshot(row), chain, data == nil); c != nil {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}

// DetectVoteConflicts compares votes by question on-chain id and wallet
func (d *Detector) DetectVoteConflicts(ctx context.Context) ([]*Conflict, error) {
	rows, err := d.store.GetVotes(ctx)
	if err != nil {
		return nil, detectionError(EntityVote, err)
	}

	contracts := d.chain.GetContractManager()
	var conflicts []*Conflict
	for _, row := range rows {
		if row.Deactivated() {
			continue
		}

		var data *blockchain.VoteData
		if row.QuestionOnChainID != "" && row.WalletAddress != "" {
			err := d.withTimeout(ctx, func(callCtx context.Context) (err error) {
				data, err = contracts.GetVoteData(callCtx, row.QuestionOnChainID, row.WalletAddress)
				return err
			})
			if err != nil {
				return nil, detectionError(EntityVote, err)
			}
		}

		base := &Conflict{
			Type:        EntityVote,
			EntityID:    row.ID,
			QuestionID:  row.QuestionOnChainID,
			UserAddress: row.WalletAddress,
		}
		var chain Snapshot
		if data != nil {
			chain = voteChainSnapshot(data)
		}
		if c := classify(base, voteSnapshot(row), chain, data == nil); c != nil {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}

// DetectUserConflicts reports users whose wallet has no on-chain account.
// Users are never compared field by field.
func (d *Detector) DetectUserConflicts(ctx context.Context) ([]*Conflict, error) {
	rows, err := d.store.GetUsers(ctx)
	if err != nil {
		return nil, detectionError(EntityUser, err)
	}

	accounts := d.chain.GetAccountReader()
	var conflicts []*Conflict
	for _, row := range rows {
		if row.Deactivated() {
			continue
		}

		var info *blockchain.AccountInfo
		if utils.IsValidAddress(row.WalletAddress) {
			err := d.withTimeout(ctx, func(callCtx context.Context) (err error) {
				info, err = accounts.GetAccountInfo(callCtx, utils.NormalizeAddress(row.WalletAddress))
				return err
			})
			if err != nil {
				return nil, detectionError(EntityUser, err)
			}
		}

		if info == nil {
			conflicts = append(conflicts, &Conflict{
				Type:         EntityUser,
				EntityID:     row.ID,
				UserAddress:  row.WalletAddress,
				ConflictType: ConflictMissingOnBlockchain,
				BackendData:  userSnapshot(row),
				DetectedAt:   time.Now().UTC(),
			})
		}
	}
	return conflicts, nil
}

// withTimeout bounds one blockchain call by the per-call timeout
func (d *Detector) withTimeout(ctx context.Context, call func(context.Context) error) error {
	if d.callTimeout <= 0 {
		return call(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	err := call(callCtx)
	if err != nil && utils.ErrorCode(err) != utils.ErrCodeTimeout &&
		errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return utils.WrapError(utils.ErrCodeTimeout,
			"Blockchain call exceeded "+d.callTimeout.String(), err)
	}
	return err
}

// classify turns a row and its optional chain snapshot into a conflict, or nil
func classify(base *Conflict, backend, chain Snapshot, missing bool) *Conflict {
	base.BackendData = backend
	base.DetectedAt = time.Now().UTC()

	if missing {
		base.ConflictType = ConflictMissingOnBlockchain
		return base
	}

	fields := Diff(fieldsFor(base.Type), backend, chain)
	if len(fields) == 0 {
		return nil
	}
	base.ConflictType = ConflictDataMismatch
	base.BlockchainData = chain
	base.Fields = fields
	return base
}

// detectionError wraps a failure unless it already carries an application code
func detectionError(t EntityType, err error) error {
	if utils.ErrorCode(err) != "" {
		return err
	}
	return utils.WrapError(utils.ErrCodeReconciliation, "Failed to detect "+string(t)+" conflicts", err)
}

func communitySnapshot(c *models.Community) Snapshot {
	return Snapshot{
		"id":          c.ID,
		"on_chain_id": c.OnChainID,
		"name":        c.Name,
		"description": c.Description,
		"config":      c.Config,
		"is_active":   c.IsActive,
		"status":      c.Status,
	}
}

func communityChainSnapshot(d *blockchain.CommunityData) Snapshot {
	return Snapshot{
		"on_chain_id": d.OnChainID,
		"name":        d.Name,
		"description": d.Description,
		"config":      d.Config,
	}
}

func memberSnapshot(m *models.Member) Snapshot {
	return Snapshot{
		"id":                    m.ID,
		"user_id":               m.UserID,
		"community_id":          m.CommunityID,
		"community_on_chain_id": m.CommunityOnChainID,
		"wallet_address":        m.WalletAddress,
		"role":                  m.Role,
		"status":                m.Status,
	}
}

func membershipChainSnapshot(d *blockchain.MembershipData) Snapshot {
	return Snapshot{
		"community_on_chain_id": d.CommunityID,
		"wallet_address":        d.WalletAddress,
		"role":                  d.Role,
		"status":                d.Status,
	}
}

func questionSnapshot(q *models.VotingQuestion) Snapshot {
	return Snapshot{
		"id":                    q.ID,
		"on_chain_id":           q.OnChainID,
		"community_id":          q.CommunityID,
		"community_on_chain_id": q.CommunityOnChainID,
		"title":                 q.Title,
		"description":           q.Description,
		"options":               q.Options,
		"deadline":              q.Deadline,
		"status":                q.Status,
	}
}

func questionChainSnapshot(d *blockchain.QuestionData) Snapshot {
	return Snapshot{
		"on_chain_id":           d.OnChainID,
		"community_on_chain_id": d.CommunityID,
		"title":                 d.Title,
		"description":           d.Description,
		"options":               d.Options,
		"deadline":              d.Deadline,
		"status":                d.Status,
	}
}

func voteSnapshot(v *models.Vote) Snapshot {
	return Snapshot{
		"id":                   v.ID,
		"question_id":          v.QuestionID,
		"user_id":              v.UserID,
		"question_on_chain_id": v.QuestionOnChainID,
		"wallet_address":       v.WalletAddress,
		"vote_data":            v.VoteData,
		"signature":            v.Signature,
		"status":               v.Status,
	}
}

func voteChainSnapshot(d *blockchain.VoteData) Snapshot {
	return Snapshot{
		"question_on_chain_id": d.QuestionID,
		"wallet_address":       d.WalletAddress,
		"vote_data":            d.VoteData,
		"signature":            d.Signature,
	}
}

func userSnapshot(u *models.User) Snapshot {
	return Snapshot{
		"id":             u.ID,
		"wallet_address": u.WalletAddress,
		"username":       u.Username,
		"is_active":      u.IsActive,
		"status":         u.Status,
	}
}
