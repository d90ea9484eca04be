package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/smartdevs17/dao-reconciler/internal/config"
	"github.com/smartdevs17/dao-reconciler/internal/connection"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateway serves program state under the dao namespace
type gateway struct {
	communities map[string]*CommunityData
	memberships map[string]*MembershipData
	questions   map[string]*QuestionData
	votes       map[string]*VoteData
}

func (g *gateway) GetCommunity(ctx context.Context, id string) (*CommunityData, error) {
	if id == "slow" {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
	return g.communities[id], nil
}

func (g *gateway) GetMembership(ctx context.Context, community, wallet string) (*MembershipData, error) {
	return g.memberships[community+"/"+wallet], nil
}

func (g *gateway) GetQuestion(ctx context.Context, id string) (*QuestionData, error) {
	return g.questions[id], nil
}

func (g *gateway) GetVote(ctx context.Context, question, wallet string) (*VoteData, error) {
	return g.votes[question+"/"+wallet], nil
}

func newGatewayService(t *testing.T, g *gateway) *RPCService {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("dao", g))
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		server.Stop()
	})

	manager := connection.NewConnectionManager(&config.BlockchainConfig{
		RPCURL:         ts.URL,
		RequestTimeout: 5 * time.Second,
		RetryAttempts:  1,
	})
	t.Cleanup(func() { manager.Close() })

	return NewRPCService(manager, "dao", "confirmed")
}

func TestContractManagerDecodesRecords(t *testing.T) {
	deadline := time.Date(2026, 11, 30, 18, 0, 0, 0, time.UTC)
	g := &gateway{
		communities: map[string]*CommunityData{
			"comm-1": {OnChainID: "comm-1", Name: "Builders", Config: map[string]interface{}{"quorum": 3}},
		},
		memberships: map[string]*MembershipData{
			"comm-1/wallet-1": {CommunityID: "comm-1", WalletAddress: "wallet-1", Role: "admin", Status: "approved"},
		},
		questions: map[string]*QuestionData{
			"q-1": {OnChainID: "q-1", Title: "Fund it?", Options: []string{"yes", "no"}, Deadline: deadline, Status: "active"},
		},
		votes: map[string]*VoteData{
			"q-1/wallet-1": {QuestionID: "q-1", WalletAddress: "wallet-1", VoteData: []int{1}, Signature: "sig"},
		},
	}
	contracts := newGatewayService(t, g).GetContractManager()
	ctx := context.Background()

	community, err := contracts.GetCommunityData(ctx, "comm-1")
	require.NoError(t, err)
	require.NotNil(t, community)
	assert.Equal(t, "Builders", community.Name)
	assert.Equal(t, 3.0, community.Config["quorum"])

	membership, err := contracts.GetMembershipData(ctx, "comm-1", "wallet-1")
	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.Equal(t, "admin", membership.Role)

	question, err := contracts.GetQuestionData(ctx, "q-1")
	require.NoError(t, err)
	require.NotNil(t, question)
	assert.True(t, question.Deadline.Equal(deadline))
	assert.Equal(t, []string{"yes", "no"}, question.Options)

	vote, err := contracts.GetVoteData(ctx, "q-1", "wallet-1")
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, []int{1}, vote.VoteData)
}

func TestContractManagerNullIsNotFound(t *testing.T) {
	contracts := newGatewayService(t, &gateway{}).GetContractManager()
	ctx := context.Background()

	community, err := contracts.GetCommunityData(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, community)

	membership, err := contracts.GetMembershipData(ctx, "missing", "wallet")
	require.NoError(t, err)
	assert.Nil(t, membership)

	question, err := contracts.GetQuestionData(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, question)

	vote, err := contracts.GetVoteData(ctx, "missing", "wallet")
	require.NoError(t, err)
	assert.Nil(t, vote)
}

func TestContractManagerTimeout(t *testing.T) {
	contracts := newGatewayService(t, &gateway{}).GetContractManager()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := contracts.GetCommunityData(ctx, "slow")
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeTimeout, utils.ErrorCode(err))
}

func TestAccountReader(t *testing.T) {
	existing := "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	var seenConfig map[string]interface{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.Len(t, req.Params, 2) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		assert.Equal(t, "getAccountInfo", req.Method)

		var address string
		assert.NoError(t, json.Unmarshal(req.Params[0], &address))
		assert.NoError(t, json.Unmarshal(req.Params[1], &seenConfig))

		value := "null"
		if address == existing {
			value = `{"lamports":1000000,"owner":"11111111111111111111111111111111","data":["","base64"],"executable":false,"rentEpoch":18446744073709551615,"space":0}`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":{"context":{"slot":42},"value":%s}}`, req.ID, value)
	}))
	defer ts.Close()

	manager := connection.NewConnectionManager(&config.BlockchainConfig{RPCURL: ts.URL, RetryAttempts: 1})
	defer manager.Close()
	accounts := NewRPCService(manager, "", "finalized").GetAccountReader()

	info, err := accounts.GetAccountInfo(context.Background(), existing)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, uint64(1000000), info.Lamports)
	assert.Equal(t, uint64(18446744073709551615), info.RentEpoch)
	assert.Equal(t, "base64", seenConfig["encoding"])
	assert.Equal(t, "finalized", seenConfig["commitment"])

	info, err = accounts.GetAccountInfo(context.Background(), "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	require.NoError(t, err)
	assert.Nil(t, info)
}
