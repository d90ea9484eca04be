package reconciliation

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/smartdevs17/dao-reconciler/internal/blockchain"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/models"
	"github.com/smartdevs17/dao-reconciler/internal/storage"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	utils.InitLogger("error", "text", "stdout", "")

	store, err := storage.NewStorage(&config.StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "dao.db"),
		MaxConnections:   4,
		MaxIdleTime:      time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, store.Connect())
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())
	return store
}

func wallet(seed byte) string {
	key := make([]byte, utils.PublicKeyLength)
	for i := range key {
		key[i] = seed + byte(i)
	}
	return base58.Encode(key)
}

var seededAt = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	user      *models.User
	community *models.Community
	member    *models.Member
	question  *models.VotingQuestion
	vote      *models.Vote
}

// seed stores one row of every entity, all linked together
func seed(t *testing.T, store storage.Store) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		user: &models.User{ID: "u-1", WalletAddress: wallet(1), Username: "alice", IsActive: true,
			CreatedAt: seededAt, UpdatedAt: seededAt},
		community: &models.Community{ID: "c-1", OnChainID: "comm-1", Name: "Builders", Description: "Builders DAO",
			Config: map[string]interface{}{"quorum": 3.0, "open": true}, IsActive: true,
			CreatedAt: seededAt, UpdatedAt: seededAt},
		member: &models.Member{ID: "m-1", UserID: "u-1", CommunityID: "c-1", Role: models.RoleMember,
			Status: models.MemberStatusApproved, CreatedAt: seededAt, UpdatedAt: seededAt},
		question: &models.VotingQuestion{ID: "q-1", OnChainID: "question-1", CommunityID: "c-1", Title: "Fund it?",
			Description: "Grant round", Options: []string{"yes", "no"},
			Deadline: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), CreatedAt: seededAt, UpdatedAt: seededAt},
		vote: &models.Vote{ID: "v-1", QuestionID: "q-1", UserID: "u-1", VoteData: []int{0}, Signature: "sig-1",
			CreatedAt: seededAt, UpdatedAt: seededAt},
	}

	require.NoError(t, store.SaveUser(ctx, f.user))
	require.NoError(t, store.SaveCommunity(ctx, f.community))
	require.NoError(t, store.SaveMember(ctx, f.member))
	require.NoError(t, store.SaveQuestion(ctx, f.question))
	require.NoError(t, store.SaveVote(ctx, f.vote))
	return f
}

type memberKey struct{ scope, wallet string }

// fakeChain is an in-memory blockchain.Service
type fakeChain struct {
	mu          sync.Mutex
	communities map[string]*blockchain.CommunityData
	memberships map[memberKey]*blockchain.MembershipData
	questions   map[string]*blockchain.QuestionData
	votes       map[memberKey]*blockchain.VoteData
	accounts    map[string]*blockchain.AccountInfo

	err   error
	block bool
	calls int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		communities: make(map[string]*blockchain.CommunityData),
		memberships: make(map[memberKey]*blockchain.MembershipData),
		questions:   make(map[string]*blockchain.QuestionData),
		votes:       make(map[memberKey]*blockchain.VoteData),
		accounts:    make(map[string]*blockchain.AccountInfo),
	}
}

// mirror publishes the fixture on chain exactly as stored
func (c *fakeChain) mirror(f *fixture) *fakeChain {
	c.communities[f.community.OnChainID] = &blockchain.CommunityData{
		OnChainID: f.community.OnChainID, Name: f.community.Name, Description: f.community.Description,
		Config: map[string]interface{}{"quorum": 3, "open": true},
	}
	c.memberships[memberKey{f.community.OnChainID, f.user.WalletAddress}] = &blockchain.MembershipData{
		CommunityID: f.community.OnChainID, WalletAddress: f.user.WalletAddress, Role: "MEMBER", Status: "approved",
	}
	c.questions[f.question.OnChainID] = &blockchain.QuestionData{
		OnChainID: f.question.OnChainID, CommunityID: f.community.OnChainID, Title: f.question.Title,
		Description: f.question.Description, Options: []string{"yes", "no"},
		Deadline: f.question.Deadline.In(time.FixedZone("UTC+2", 2*3600)), Status: "active",
	}
	c.votes[memberKey{f.question.OnChainID, f.user.WalletAddress}] = &blockchain.VoteData{
		QuestionID: f.question.OnChainID, WalletAddress: f.user.WalletAddress, VoteData: []int{0}, Signature: "sig-1",
	}
	c.accounts[f.user.WalletAddress] = &blockchain.AccountInfo{Lamports: 1_000_000, Owner: "11111111111111111111111111111111"}
	return c
}

func (c *fakeChain) GetContractManager() blockchain.ContractManager { return c }
func (c *fakeChain) GetAccountReader() blockchain.AccountReader     { return c }

func (c *fakeChain) enter(ctx context.Context) error {
	c.mu.Lock()
	c.calls++
	err, block := c.err, c.block
	c.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (c *fakeChain) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeChain) GetCommunityData(ctx context.Context, onChainID string) (*blockchain.CommunityData, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	return c.communities[onChainID], nil
}

func (c *fakeChain) GetMembershipData(ctx context.Context, communityOnChainID, walletAddress string) (*blockchain.MembershipData, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	return c.memberships[memberKey{communityOnChainID, walletAddress}], nil
}

func (c *fakeChain) GetQuestionData(ctx context.Context, onChainID string) (*blockchain.QuestionData, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	return c.questions[onChainID], nil
}

func (c *fakeChain) GetVoteData(ctx context.Context, questionOnChainID, walletAddress string) (*blockchain.VoteData, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	return c.votes[memberKey{questionOnChainID, walletAddress}], nil
}

func (c *fakeChain) GetAccountInfo(ctx context.Context, address string) (*blockchain.AccountInfo, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	return c.accounts[address], nil
}
