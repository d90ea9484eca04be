package models

import "time"

// User statuses
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User is a platform account anchored to a wallet
type User struct {
	ID            string    `json:"id" db:"id"`
	WalletAddress string    `json:"wallet_address" db:"wallet_address"`
	Username      string    `json:"username" db:"username"`
	Email         string    `json:"email,omitempty" db:"email"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

func (u *User) Deactivated() bool {
	return u.Status == UserStatusInactive
}
