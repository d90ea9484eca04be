package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/dao-reconciler/internal/models"
)

// Table names a reconciled table
type Table string

const (
	TableCommunities Table = "communities"
	TableMembers     Table = "members"
	TableQuestions   Table = "voting_questions"
	TableVotes       Table = "votes"
	TableUsers       Table = "users"
	TableAuditEvents Table = "audit_events"
)

// Fields maps column names to values for updates and filters.
// Maps and slices are stored as JSON text.
type Fields map[string]interface{}

// updatableColumns is the set of columns Update may touch or filter on
var updatableColumns = map[Table]map[string]bool{
	TableCommunities: columnSet("id", "on_chain_id", "name", "description", "config", "is_active", "status", "updated_at"),
	TableMembers:     columnSet("id", "user_id", "community_id", "role", "status", "approved_at", "approved_by", "updated_at"),
	TableQuestions:   columnSet("id", "on_chain_id", "community_id", "title", "description", "options", "deadline", "status", "updated_at"),
	TableVotes:       columnSet("id", "question_id", "user_id", "vote_data", "signature", "status", "updated_at"),
	TableUsers:       columnSet("id", "wallet_address", "username", "email", "is_active", "status", "updated_at"),
}

func columnSet(columns ...string) map[string]bool {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	return set
}

// Store defines the persistence operations of the reconciler
type Store interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Entity writes, used by the platform and by seeding
	SaveCommunity(ctx context.Context, community *models.Community) error
	SaveMember(ctx context.Context, member *models.Member) error
	SaveQuestion(ctx context.Context, question *models.VotingQuestion) error
	SaveVote(ctx context.Context, vote *models.Vote) error
	SaveUser(ctx context.Context, user *models.User) error

	// Full scans in primary key order
	GetCommunities(ctx context.Context) ([]*models.Community, error)
	GetMembers(ctx context.Context) ([]*models.Member, error)
	GetQuestions(ctx context.Context) ([]*models.VotingQuestion, error)
	GetVotes(ctx context.Context) ([]*models.Vote, error)
	GetUsers(ctx context.Context) ([]*models.User, error)

	// Transactions
	BeginTx(ctx context.Context) (Tx, error)

	// Audit log
	SaveAuditEvent(ctx context.Context, event *models.AuditEvent) error
	GetAuditEvents(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEvent, error)

	// Statistics and monitoring
	GetStorageStats(ctx context.Context) (*StorageStats, error)
}

// Tx is a unit of work. Getters return nil, nil when the row does not exist.
type Tx interface {
	GetCommunity(ctx context.Context, id string) (*models.Community, error)
	GetMember(ctx context.Context, id string) (*models.Member, error)
	GetQuestion(ctx context.Context, id string) (*models.VotingQuestion, error)
	GetVote(ctx context.Context, id string) (*models.Vote, error)
	GetUser(ctx context.Context, id string) (*models.User, error)

	// Update sets fields on every row matching all of where and returns the affected row count
	Update(ctx context.Context, table Table, fields Fields, where Fields) (int64, error)

	Commit() error
	Rollback() error
}

// StorageStats provides storage statistics
type StorageStats struct {
	Communities  int64      `json:"communities"`
	Members      int64      `json:"members"`
	Questions    int64      `json:"voting_questions"`
	Votes        int64      `json:"votes"`
	Users        int64      `json:"users"`
	AuditEvents  int64      `json:"audit_events"`
	LatestAudit  *time.Time `json:"latest_audit,omitempty"`
	DatabaseType string     `json:"database_type"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
}
