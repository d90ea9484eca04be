package models

import "time"

// Community statuses
const (
	CommunityStatusActive   = "active"
	CommunityStatusInactive = "inactive"
)

// Community represents a DAO community mirrored from the chain
type Community struct {
	ID          string                 `json:"id" db:"id"`
	OnChainID   string                 `json:"on_chain_id" db:"on_chain_id"`
	Name        string                 `json:"name" db:"name"`
	Description string                 `json:"description" db:"description"`
	Config      map[string]interface{} `json:"config" db:"config"`
	IsActive    bool                   `json:"is_active" db:"is_active"`
	Status      string                 `json:"status" db:"status"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" db:"updated_at"`
}

// Deactivated reports whether the community was already marked inactive
func (c *Community) Deactivated() bool {
	return c.Status == CommunityStatusInactive
}
