package reconciliation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	deadline := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		fields  []Field
		backend Snapshot
		chain   Snapshot
		want    []string
	}{
		{
			name:    "equal community with differently typed config numbers",
			fields:  communityFields,
			backend: Snapshot{"name": "Builders", "description": "", "config": map[string]interface{}{"quorum": 3.0}},
			chain:   Snapshot{"name": "Builders", "description": nil, "config": map[string]int{"quorum": 3}},
		},
		{
			name:    "serialized config compares with decoded config",
			fields:  communityFields,
			backend: Snapshot{"name": "a", "description": "b", "config": map[string]interface{}{"open": true}},
			chain:   Snapshot{"name": "a", "description": "b", "config": `{"open":true}`},
		},
		{
			name:    "nil and empty config are the same",
			fields:  communityFields,
			backend: Snapshot{"name": "a", "description": "b", "config": nil},
			chain:   Snapshot{"name": "a", "description": "b", "config": map[string]interface{}{}},
		},
		{
			name:    "community name and config differ",
			fields:  communityFields,
			backend: Snapshot{"name": "Old", "description": "same", "config": map[string]interface{}{"quorum": 3.0}},
			chain:   Snapshot{"name": "New", "description": "same", "config": map[string]interface{}{"quorum": 4}},
			want:    []string{"name", "config"},
		},
		{
			name:    "membership enums ignore case and padding",
			fields:  membershipFields,
			backend: Snapshot{"role": "admin", "status": "approved"},
			chain:   Snapshot{"role": " Admin", "status": "APPROVED"},
		},
		{
			name:    "membership role differs",
			fields:  membershipFields,
			backend: Snapshot{"role": "member", "status": "approved"},
			chain:   Snapshot{"role": "moderator", "status": "approved"},
			want:    []string{"role"},
		},
		{
			name:   "question deadline in another zone is equal",
			fields: questionFields,
			backend: Snapshot{"title": "t", "description": "d", "options": []string{"yes", "no"},
				"deadline": deadline, "status": "active"},
			chain: Snapshot{"title": "t", "description": "d", "options": []interface{}{"yes", "no"},
				"deadline": deadline.In(time.FixedZone("EST", -5*3600)).Add(300 * time.Millisecond), "status": "active"},
		},
		{
			name:   "question options order matters",
			fields: questionFields,
			backend: Snapshot{"title": "t", "description": "d", "options": []string{"yes", "no"},
				"deadline": deadline, "status": "active"},
			chain: Snapshot{"title": "t", "description": "d", "options": []string{"no", "yes"},
				"deadline": deadline.Format(time.RFC3339), "status": "active"},
			want: []string{"options"},
		},
		{
			name:    "vote data differs",
			fields:  voteFields,
			backend: Snapshot{"vote_data": []int{0}, "signature": "sig"},
			chain:   Snapshot{"vote_data": []int{1}, "signature": "sig"},
			want:    []string{"vote_data"},
		},
		{
			name:    "users have no compared fields",
			fields:  fieldsFor(EntityUser),
			backend: Snapshot{"username": "a"},
			chain:   Snapshot{"username": "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.fields, tt.backend, tt.chain))
		})
	}
}

func TestRepairFields(t *testing.T) {
	updates := RepairFields(questionFields, Snapshot{
		"title":    "New title",
		"options":  []string{"a", "b"},
		"deadline": time.Date(2027, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)),
		"status":   "CLOSED",
	})

	assert.Equal(t, "New title", updates["title"])
	assert.Equal(t, "", updates["description"], "missing text becomes empty")
	assert.Equal(t, []interface{}{"a", "b"}, updates["options"])
	deadline, ok := updates["deadline"].(time.Time)
	require.True(t, ok)
	assert.True(t, deadline.Equal(time.Date(2027, 1, 1, 11, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, deadline.Location())
	assert.Equal(t, "closed", updates["status"])
	assert.Len(t, updates, len(questionFields))
}
