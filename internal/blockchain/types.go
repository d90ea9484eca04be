package blockchain

import (
	"context"
	"time"
)

// CommunityData is the on-chain record of a community
type CommunityData struct {
	OnChainID   string                 `json:"on_chain_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Config      map[string]interface{} `json:"config"`
	Authority   string                 `json:"authority,omitempty"`
}

// MembershipData is the on-chain record of a wallet's membership
type MembershipData struct {
	CommunityID   string `json:"community_id"`
	WalletAddress string `json:"wallet_address"`
	Role          string `json:"role"`
	Status        string `json:"status"`
}

// QuestionData is the on-chain record of a voting question
type QuestionData struct {
	OnChainID   string    `json:"on_chain_id"`
	CommunityID string    `json:"community_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Options     []string  `json:"options"`
	Deadline    time.Time `json:"deadline"`
	Status      string    `json:"status"`
}

// VoteData is the on-chain record of a wallet's vote
type VoteData struct {
	QuestionID    string `json:"question_id"`
	WalletAddress string `json:"wallet_address"`
	VoteData      []int  `json:"vote_data"`
	Signature     string `json:"signature"`
}

// AccountInfo mirrors the value of a getAccountInfo response
type AccountInfo struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
	Space      uint64   `json:"space"`
}

// ContractManager reads program state. Every getter returns nil, nil when
// the record does not exist on chain.
type ContractManager interface {
	GetCommunityData(ctx context.Context, onChainID string) (*CommunityData, error)
	GetMembershipData(ctx context.Context, communityOnChainID, walletAddress string) (*MembershipData, error)
	GetQuestionData(ctx context.Context, onChainID string) (*QuestionData, error)
	GetVoteData(ctx context.Context, questionOnChainID, walletAddress string) (*VoteData, error)
}

// AccountReader looks up raw accounts. It returns nil, nil when no account exists.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error)
}

// Service is the blockchain collaborator consumed by reconciliation
type Service interface {
	GetContractManager() ContractManager
	GetAccountReader() AccountReader
}

// Caller performs a JSON-RPC call
type Caller interface {
	Call(ctx context.Context, result interface{}, method string, args ...interface{}) error
}
