package blockchain

import (
	"context"

	"github.com/sirupsen/logrus"
)

// RPCContractManager reads program state through the gateway methods
// <namespace>_getCommunity, _getMembership, _getQuestion and _getVote.
// A null result means the record does not exist.
type RPCContractManager struct {
	caller    Caller
	namespace string
	logger    *logrus.Entry
}

func (m *RPCContractManager) method(name string) string {
	return m.namespace + "_" + name
}

// GetCommunityData fetches a community by on-chain id
func (m *RPCContractManager) GetCommunityData(ctx context.Context, onChainID string) (*CommunityData, error) {
	method := m.method("getCommunity")
	var data *CommunityData
	if err := m.caller.Call(ctx, &data, method, onChainID); err != nil {
		return nil, callError(ctx, method, err)
	}
	logCall(m.logger, method, data != nil, logrus.Fields{"on_chain_id": onChainID})
	return data, nil
}

// GetMembershipData fetches a wallet's membership in a community
func (m *RPCContractManager) GetMembershipData(ctx context.Context, communityOnChainID, walletAddress string) (*MembershipData, error) {
	method := m.method("getMembership")
	var data *MembershipData
	if err := m.caller.Call(ctx, &data, method, communityOnChainID, walletAddress); err != nil {
		return nil, callError(ctx, method, err)
	}
	logCall(m.logger, method, data != nil, logrus.Fields{"community": communityOnChainID, "wallet": walletAddress})
	return data, nil
}

// GetQuestionData fetches a voting question by on-chain id
func (m *RPCContractManager) GetQuestionData(ctx context.Context, onChainID string) (*QuestionData, error) {
	method := m.method("getQuestion")
	var data *QuestionData
	if err := m.caller.Call(ctx, &data, method, onChainID); err != nil {
		return nil, callError(ctx, method, err)
	}
	logCall(m.logger, method, data != nil, logrus.Fields{"on_chain_id": onChainID})
	return data, nil
}

// GetVoteData fetches a wallet's vote on a question
func (m *RPCContractManager) GetVoteData(ctx context.Context, questionOnChainID, walletAddress string) (*VoteData, error) {
	method := m.method("getVote")
	var data *VoteData
	if err := m.caller.Call(ctx, &data, method, questionOnChainID, walletAddress); err != nil {
		return nil, callError(ctx, method, err)
	}
	logCall(m.logger, method, data != nil, logrus.Fields{"question": questionOnChainID, "wallet": walletAddress})
	return data, nil
}
