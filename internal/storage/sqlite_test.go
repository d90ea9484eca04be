package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/metrics"
	"github.com/smartdevs17/dao-reconciler/internal/models"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	utils.InitLogger("error", "text", "stdout", "")

	store, err := NewStorage(&config.StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "dao.db"),
		MaxConnections:   4,
		MaxIdleTime:      time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, store.Connect())
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())
	require.NoError(t, store.Ping())
	return store
}

type fixture struct {
	user      *models.User
	community *models.Community
	member    *models.Member
	question  *models.VotingQuestion
	vote      *models.Vote
}

func seed(t *testing.T, store Store) *fixture {
	t.Helper()
	ctx := context.Background()
	approvedBy := "admin-1"
	approvedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f := &fixture{
		user: &models.User{ID: "u-1", WalletAddress: "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", Username: "alice", IsActive: true},
		community: &models.Community{
			ID: "c-1", OnChainID: "comm-1", Name: "Builders", Description: "Builders DAO",
			Config: map[string]interface{}{"quorum": 3.0, "open": true}, IsActive: true,
		},
	}
	f.member = &models.Member{ID: "m-1", UserID: "u-1", CommunityID: "c-1", Role: models.RoleMember,
		Status: models.MemberStatusApproved, ApprovedAt: &approvedAt, ApprovedBy: &approvedBy}
	f.question = &models.VotingQuestion{ID: "q-1", OnChainID: "question-1", CommunityID: "c-1", Title: "Fund it?",
		Options: []string{"yes", "no"}, Deadline: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)}
	f.vote = &models.Vote{ID: "v-1", QuestionID: "q-1", UserID: "u-1", VoteData: []int{0}, Signature: "sig-1"}

	require.NoError(t, store.SaveUser(ctx, f.user))
	require.NoError(t, store.SaveCommunity(ctx, f.community))
	require.NoError(t, store.SaveMember(ctx, f.member))
	require.NoError(t, store.SaveQuestion(ctx, f.question))
	require.NoError(t, store.SaveVote(ctx, f.vote))
	return f
}

func TestSQLiteStorage(t *testing.T) {
	store := newTestStore(t)
	f := seed(t, store)

	t.Run("Listing decodes JSON columns and joins", func(t *testing.T) { testListing(t, store, f) })
	t.Run("Transactional updates", func(t *testing.T) { testTransactions(t, store) })
	t.Run("Update validation", func(t *testing.T) { testUpdateValidation(t, store) })
	t.Run("Audit events", func(t *testing.T) { testAuditEvents(t, store) })
	t.Run("Statistics", func(t *testing.T) { testStatistics(t, store) })
}

func testListing(t *testing.T, store Store, f *fixture) {
	ctx := context.Background()

	communities, err := store.GetCommunities(ctx)
	require.NoError(t, err)
	require.Len(t, communities, 1)
	assert.Equal(t, "comm-1", communities[0].OnChainID)
	assert.Equal(t, map[string]interface{}{"quorum": 3.0, "open": true}, communities[0].Config)
	assert.True(t, communities[0].IsActive)
	assert.Equal(t, models.CommunityStatusActive, communities[0].Status)

	members, err := store.GetMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "comm-1", members[0].CommunityOnChainID)
	assert.Equal(t, f.user.WalletAddress, members[0].WalletAddress)
	require.NotNil(t, members[0].ApprovedBy)
	assert.Equal(t, "admin-1", *members[0].ApprovedBy)
	require.NotNil(t, members[0].ApprovedAt)
	assert.True(t, members[0].ApprovedAt.Equal(*f.member.ApprovedAt))

	questions, err := store.GetQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, []string{"yes", "no"}, questions[0].Options)
	assert.Equal(t, "comm-1", questions[0].CommunityOnChainID)
	assert.True(t, questions[0].Deadline.Equal(f.question.Deadline))

	votes, err := store.GetVotes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, []int{0}, votes[0].VoteData)
	assert.Equal(t, "question-1", votes[0].QuestionOnChainID)
	assert.Equal(t, f.user.WalletAddress, votes[0].WalletAddress)
	assert.Equal(t, models.VoteStatusValid, votes[0].Status)

	users, err := store.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	t.Logf("✓ Listed %d communities, %d members, %d questions, %d votes, %d users",
		len(communities), len(members), len(questions), len(votes), len(users))
}

func testTransactions(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("commit applies JSON and time columns", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		n, err := tx.Update(ctx, TableQuestions, Fields{
			"options":    []string{"yes", "no", "abstain"},
			"updated_at": time.Now(),
		}, Fields{"id": "q-1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		q, err := tx.GetQuestion(ctx, "q-1")
		require.NoError(t, err)
		require.NotNil(t, q)
		assert.Equal(t, []string{"yes", "no", "abstain"}, q.Options)
		require.NoError(t, tx.Commit())
	})

	t.Run("rollback discards changes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)

		_, err = tx.Update(ctx, TableMembers, Fields{"role": models.RoleAdmin}, Fields{"community_id": "c-1"})
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())
		require.NoError(t, tx.Rollback(), "second rollback is a no-op")

		members, err := store.GetMembers(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, members[0].Role)
	})

	t.Run("missing rows are nil", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		c, err := tx.GetCommunity(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, c)

		u, err := tx.GetUser(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, u)

		v, err := tx.GetVote(ctx, "v-1")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, "sig-1", v.Signature)
	})
}

func testUpdateValidation(t *testing.T, store Store) {
	ctx := context.Background()
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.Update(ctx, TableAuditEvents, Fields{"level": "INFO"}, Fields{"id": "x"})
	assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err))

	_, err = tx.Update(ctx, TableUsers, Fields{"password": "x"}, Fields{"id": "u-1"})
	assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err))

	_, err = tx.Update(ctx, TableUsers, Fields{"status": "inactive"}, nil)
	assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err), "unbounded updates are refused")
}

func testAuditEvents(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute)

	for i, e := range []*models.AuditEvent{
		{Event: "conflict_reconciliation_completed", Level: models.LevelInfo, Category: models.CategoryReconciliation,
			Details: map[string]interface{}{"conflicts": 2.0}, CreatedAt: base},
		{Event: "conflict_reconciliation_failed", Level: models.LevelError, Category: models.CategoryReconciliation,
			Details: map[string]interface{}{"error": "boom"}, CreatedAt: base.Add(time.Second)},
		{Event: "service_started", Level: models.LevelInfo, Category: models.CategorySystem, CreatedAt: base.Add(2 * time.Second)},
	} {
		require.NoError(t, store.SaveAuditEvent(ctx, e), "event %d", i)
		assert.NotEmpty(t, e.ID)
	}

	category := models.CategoryReconciliation
	events, err := store.GetAuditEvents(ctx, models.AuditFilter{Category: &category})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "conflict_reconciliation_failed", events[0].Event, "newest first")
	assert.Equal(t, "boom", events[0].Details["error"])

	level := models.LevelInfo
	events, err = store.GetAuditEvents(ctx, models.AuditFilter{Level: &level, Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "service_started", events[0].Event)
}

func testStatistics(t *testing.T, store Store) {
	stats, err := store.GetStorageStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", stats.DatabaseType)
	assert.Equal(t, int64(1), stats.Communities)
	assert.Equal(t, int64(1), stats.Members)
	assert.Equal(t, int64(1), stats.Questions)
	assert.Equal(t, int64(1), stats.Votes)
	assert.Equal(t, int64(1), stats.Users)
	assert.Equal(t, int64(3), stats.AuditEvents)
	assert.NotNil(t, stats.LatestAudit)
}

func TestNewStorageRejectsUnknownType(t *testing.T) {
	_, err := NewStorage(&config.StorageConfig{Type: "mysql", ConnectionString: "x"})
	assert.Equal(t, utils.ErrCodeConfiguration, utils.ErrorCode(err))
}

func TestRebindNumbersPlaceholders(t *testing.T) {
	s := &sqlStore{dialect: postgresDialect}
	assert.Equal(t, "UPDATE users SET status = $1 WHERE id = $2", s.rebind("UPDATE users SET status = ? WHERE id = ?"))

	s = &sqlStore{dialect: sqliteDialect}
	assert.Equal(t, "SELECT ?", s.rebind("SELECT ?"))
}

func TestStorageWithMetricsRecordsOperations(t *testing.T) {
	store := newTestStore(t)
	manager := metrics.NewManager()
	wrapped := NewStorageWithMetrics(store, manager)
	ctx := context.Background()

	_, err := wrapped.GetUsers(ctx)
	require.NoError(t, err)

	tx, err := wrapped.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.Update(ctx, TableUsers, Fields{"status": "inactive"}, Fields{"id": "missing"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	pm := manager.GetPrometheusMetrics()
	assert.Equal(t, 1.0, testutilValue(t, pm, "select", "users"))
	assert.Equal(t, 1.0, testutilValue(t, pm, "update", "users"))
}
