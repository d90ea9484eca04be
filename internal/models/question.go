package models

import "time"

// Question statuses
const (
	QuestionStatusActive   = "active"
	QuestionStatusInactive = "inactive"
	QuestionStatusClosed   = "closed"
)

// VotingQuestion is a proposal put to a community vote
type VotingQuestion struct {
	ID          string    `json:"id" db:"id"`
	OnChainID   string    `json:"on_chain_id" db:"on_chain_id"`
	CommunityID string    `json:"community_id" db:"community_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Options     []string  `json:"options" db:"options"`
	Deadline    time.Time `json:"deadline" db:"deadline"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	CommunityOnChainID string `json:"community_on_chain_id,omitempty" db:"-"`
}

func (q *VotingQuestion) Deactivated() bool {
	return q.Status == QuestionStatusInactive
}
