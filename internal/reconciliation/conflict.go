package reconciliation

import (
	"strings"
	"time"

	"github.com/smartdevs17/dao-reconciler/internal/storage"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// EntityType names a reconciled entity
type EntityType string

const (
	EntityCommunity  EntityType = "community"
	EntityMembership EntityType = "membership"
	EntityQuestion   EntityType = "question"
	EntityVote       EntityType = "vote"
	EntityUser       EntityType = "user"
)

// EntityTypes lists entity types in detection order
var EntityTypes = []EntityType{EntityCommunity, EntityMembership, EntityQuestion, EntityVote, EntityUser}

// ParseEntityType accepts an entity type name, case-insensitively
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range EntityTypes {
		if t == known {
			return t, nil
		}
	}
	return "", utils.NewAppError(utils.ErrCodeValidation, "Unknown entity type", s)
}

// Table returns the backend table holding the entity
func (t EntityType) Table() storage.Table {
	switch t {
	case EntityCommunity:
		return storage.TableCommunities
	case EntityMembership:
		return storage.TableMembers
	case EntityQuestion:
		return storage.TableQuestions
	case EntityVote:
		return storage.TableVotes
	default:
		return storage.TableUsers
	}
}

// ConflictType classifies a divergence
type ConflictType string

const (
	ConflictMissingOnBlockchain ConflictType = "missing_on_blockchain"
	ConflictDataMismatch        ConflictType = "data_mismatch"
)

// ConflictTypes lists every conflict type
var ConflictTypes = []ConflictType{ConflictMissingOnBlockchain, ConflictDataMismatch}

// Snapshot is a field-name keyed view of a backend row or on-chain record
type Snapshot map[string]interface{}

// Conflict is a detected divergence between a backend row and its on-chain record.
// BlockchainData is nil for missing_on_blockchain.
type Conflict struct {
	Type           EntityType   `json:"type"`
	EntityID       string       `json:"entity_id"`
	OnChainID      string       `json:"on_chain_id,omitempty"`
	CommunityID    string       `json:"community_id,omitempty"`
	QuestionID     string       `json:"question_id,omitempty"`
	UserAddress    string       `json:"user_address,omitempty"`
	ConflictType   ConflictType `json:"conflict_type"`
	BackendData    Snapshot     `json:"backend_data"`
	BlockchainData Snapshot     `json:"blockchain_data"`
	Fields         []string     `json:"fields,omitempty"`
	DetectedAt     time.Time    `json:"detected_at"`
}

// Resolution describes what the resolver did with one conflict
type Resolution struct {
	Conflict *Conflict `json:"conflict"`
	// Stale is set when the row vanished before resolution
	Stale    bool   `json:"stale"`
	Action   string `json:"action"`
	Rows     int64  `json:"rows"`
	Cascaded int64  `json:"cascaded"`
}

// Resolution actions
const (
	ActionNone        = "none"
	ActionDeactivated = "deactivated"
	ActionQuarantined = "quarantined"
	ActionOverwritten = "overwritten"
)

// ConflictSummary is a read-only diagnostic view of current conflicts
type ConflictSummary struct {
	Total          int                  `json:"total"`
	ByType         map[EntityType]int   `json:"by_type"`
	ByConflictType map[ConflictType]int `json:"by_conflict_type"`
	Timestamp      time.Time            `json:"timestamp"`
	Conflicts      []*Conflict          `json:"conflicts,omitempty"`
}

// NewConflictSummary counts conflicts per entity and conflict type and keeps the list.
// Every known key is present, zero when absent.
func NewConflictSummary(conflicts []*Conflict) *ConflictSummary {
	summary := &ConflictSummary{
		Total:          len(conflicts),
		ByType:         make(map[EntityType]int, len(EntityTypes)),
		ByConflictType: make(map[ConflictType]int, len(ConflictTypes)),
		Timestamp:      time.Now().UTC(),
		Conflicts:      conflicts,
	}
	for _, t := range EntityTypes {
		summary.ByType[t] = 0
	}
	for _, t := range ConflictTypes {
		summary.ByConflictType[t] = 0
	}
	for _, c := range conflicts {
		summary.ByType[c.Type]++
		summary.ByConflictType[c.ConflictType]++
	}
	return summary
}
