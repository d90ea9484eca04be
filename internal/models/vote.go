package models

import "time"

// Vote statuses
const (
	VoteStatusValid   = "valid"
	VoteStatusInvalid = "invalid"
)

// Vote is a single user's ballot on a question.
// VoteData holds the indexes of the selected options.
type Vote struct {
	ID         string    `json:"id" db:"id"`
	QuestionID string    `json:"question_id" db:"question_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	VoteData   []int     `json:"vote_data" db:"vote_data"`
	Signature  string    `json:"signature" db:"signature"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	QuestionOnChainID string `json:"question_on_chain_id,omitempty" db:"-"`
	WalletAddress     string `json:"wallet_address,omitempty" db:"-"`
}

// Deactivated reports whether the vote has been quarantined
func (v *Vote) Deactivated() bool {
	return v.Status == VoteStatusInvalid
}
