package models

import "time"

// Member roles
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Member statuses
const (
	MemberStatusPending  = "pending"
	MemberStatusApproved = "approved"
	MemberStatusRejected = "rejected"
	MemberStatusBanned   = "banned"
	MemberStatusInactive = "inactive"
)

// Member is a user's membership in a community.
// CommunityOnChainID and WalletAddress are filled from joins when listing.
type Member struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	CommunityID string     `json:"community_id" db:"community_id"`
	Role        string     `json:"role" db:"role"`
	Status      string     `json:"status" db:"status"`
	JoinedAt    time.Time  `json:"joined_at" db:"joined_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy  *string    `json:"approved_by,omitempty" db:"approved_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	CommunityOnChainID string `json:"community_on_chain_id,omitempty" db:"-"`
	WalletAddress      string `json:"wallet_address,omitempty" db:"-"`
}

func (m *Member) Deactivated() bool {
	return m.Status == MemberStatusInactive
}
