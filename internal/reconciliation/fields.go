package reconciliation

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/smartdevs17/dao-reconciler/internal/storage"
)

// Field describes one compared attribute: its snapshot key, the backend
// column it is written to and how values are brought to canonical form.
// Storage encodes canonical maps and slices as JSON on write.
type Field struct {
	Name      string
	Column    string
	Normalize func(interface{}) interface{}
}

func (f Field) canonical(v interface{}) interface{} {
	if f.Normalize == nil {
		return v
	}
	return f.Normalize(v)
}

var (
	communityFields = []Field{
		{Name: "name", Column: "name", Normalize: text},
		{Name: "description", Column: "description", Normalize: text},
		{Name: "config", Column: "config", Normalize: jsonObject},
	}
	membershipFields = []Field{
		{Name: "role", Column: "role", Normalize: enum},
		{Name: "status", Column: "status", Normalize: enum},
	}
	questionFields = []Field{
		{Name: "title", Column: "title", Normalize: text},
		{Name: "description", Column: "description", Normalize: text},
		{Name: "options", Column: "options", Normalize: jsonList},
		{Name: "deadline", Column: "deadline", Normalize: timestamp},
		{Name: "status", Column: "status", Normalize: enum},
	}
	voteFields = []Field{
		{Name: "vote_data", Column: "vote_data", Normalize: jsonList},
		{Name: "signature", Column: "signature", Normalize: text},
	}
)

// fieldsFor returns the compared fields of an entity type; users have none
func fieldsFor(t EntityType) []Field {
	switch t {
	case EntityCommunity:
		return communityFields
	case EntityMembership:
		return membershipFields
	case EntityQuestion:
		return questionFields
	case EntityVote:
		return voteFields
	default:
		return nil
	}
}

// Diff returns the names of fields whose canonical values differ
func Diff(fields []Field, backend, chain Snapshot) []string {
	var differing []string
	for _, f := range fields {
		if !equalCanonical(f.canonical(backend[f.Name]), f.canonical(chain[f.Name])) {
			differing = append(differing, f.Name)
		}
	}
	return differing
}

// RepairFields builds the column updates that copy chain values onto the backend row
func RepairFields(fields []Field, chain Snapshot) storage.Fields {
	updates := make(storage.Fields, len(fields))
	for _, f := range fields {
		updates[f.Column] = f.canonical(chain[f.Name])
	}
	return updates
}

// equalCanonical compares the JSON encodings of two canonical values
func equalCanonical(a, b interface{}) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

func text(v interface{}) interface{} {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return v
	}
}

// enum lower-cases and trims role and status values
func enum(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return text(v)
}

// jsonObject round-trips through JSON so typed maps and decoded maps compare equal
func jsonObject(v interface{}) interface{} {
	out, ok := roundTrip(v).(map[string]interface{})
	if !ok || out == nil {
		return map[string]interface{}{}
	}
	return out
}

func jsonList(v interface{}) interface{} {
	out, ok := roundTrip(v).([]interface{})
	if !ok || out == nil {
		return []interface{}{}
	}
	return out
}

func roundTrip(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		// already serialized
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return decoded
		}
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return v
	}
	return decoded
}

// timestamp compares instants at second precision in UTC
func timestamp(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}
		}
		return t.UTC().Truncate(time.Second)
	case *time.Time:
		if t == nil {
			return time.Time{}
		}
		return timestamp(*t)
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return t
		}
		return timestamp(parsed)
	default:
		return v
	}
}
