package models

import "time"

// Audit levels
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Audit categories
const (
	CategoryReconciliation = "RECONCILIATION"
	CategorySystem         = "SYSTEM"
)

// AuditEvent is an append-only record of something the service did
type AuditEvent struct {
	ID        string                 `json:"id" db:"id"`
	Event     string                 `json:"event" db:"event"`
	Level     string                 `json:"level" db:"level"`
	Category  string                 `json:"category" db:"category"`
	Details   map[string]interface{} `json:"details" db:"details"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// AuditFilter for querying audit events
type AuditFilter struct {
	Event    *string    `json:"event,omitempty"`
	Level    *string    `json:"level,omitempty"`
	Category *string    `json:"category,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}
