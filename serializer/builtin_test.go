package serializer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/security"
	"github.com/root-sector/access-audit-serializer/types"
)

func testBase(id string) types.Base {
	return types.RestoreBase(id, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), "user-1", "test entry", "")
}

func builtinEntries() []struct {
	name     string
	entry    types.AuditEntry
	typeName string
} {
	before := types.Snapshot{"name": "Staff"}
	after := types.Snapshot{"name": "Employees"}
	return []struct {
		name     string
		entry    types.AuditEntry
		typeName string
	}{
		{"user event", types.NewUserEvent(testBase("e-1"), "user-2", types.EventKindUpdate, before, after), "audit-user-event"},
		{"ws api call", types.NewWSAPICall(testBase("e-2"), types.WSAPICallInfo{APIMethod: "get_logs", CallUUID: "c-1", StatusCode: 0}), "audit-ws-api-call"},
		{"schedule event", types.NewScheduleEvent(testBase("e-3"), "sched-1", types.EventKindCreate, nil, after), "audit-schedule-event"},
		{"group event", types.NewGroupEvent(testBase("e-4"), "group-1", types.EventKindUpdate, before, after), "audit-group-event"},
		{"credential event", types.NewCredentialEvent(testBase("e-5"), "cred-1", types.EventKindDelete, before, nil), "audit-credential-event"},
		{"door event", types.NewDoorEvent(testBase("e-6"), "door-1", types.EventKindUpdate, before, after), "audit-door-event"},
		{"membership event", types.NewUserGroupMembershipEvent(testBase("e-7"), "user-2", "group-1", types.EventKindJoin), "audit-user-group-membership-event"},
	}
}

func securityContexts() map[string]interfaces.SecurityContext {
	return map[string]interfaces.SecurityContext{
		"system":    security.System(),
		"none":      security.None(),
		"read only": security.NewStatic(types.ActionAuditRead),
		"full":      security.NewStatic(types.ActionAuditRead, types.ActionAuditReadFull),
		"nil":       nil,
	}
}

func TestBuiltinDiscriminatorIndependentOfContext(t *testing.T) {
	s := New()
	for _, tt := range builtinEntries() {
		for ctxName, sc := range securityContexts() {
			t.Run(tt.name+"/"+ctxName, func(t *testing.T) {
				doc, err := s.Serialize(tt.entry, sc)
				require.NoError(t, err)
				assert.Equal(t, tt.typeName, doc.Type)
				assert.Equal(t, tt.entry.ID(), doc.ID)

				name, err := s.TypeName(tt.entry)
				require.NoError(t, err)
				assert.Equal(t, doc.Type, name)
			})
		}
	}
}

func TestBuiltinRelationshipsAreComplete(t *testing.T) {
	s := New()
	for _, tt := range builtinEntries() {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := s.Serialize(tt.entry, security.None())
			require.NoError(t, err)

			require.Contains(t, doc.Relationships, "author")
			assert.Equal(t, types.Relationship{ID: "user-1", Type: "user"}, doc.Relationships["author"])
			for name, rel := range doc.Relationships {
				assert.NotEmpty(t, rel.ID, "relationship %s has no id", name)
				assert.NotEmpty(t, rel.Type, "relationship %s has no type", name)
			}
		})
	}
}

func TestGroupEventStateGatedOnReadFull(t *testing.T) {
	before := types.Snapshot{"name": "Staff", "members": []interface{}{"u1"}}
	after := types.Snapshot{"name": "Staff", "members": []interface{}{"u1", "u2"}}
	entry := types.NewGroupEvent(testBase("g-1"), "group-42", types.EventKindUpdate, before, after)
	s := New()

	t.Run("granted", func(t *testing.T) {
		doc, err := s.Serialize(entry, security.NewStatic(types.ActionAuditReadFull))
		require.NoError(t, err)

		assert.Equal(t, "audit-group-event", doc.Type)
		assert.Equal(t, before, doc.Attributes["before"])
		assert.Equal(t, after, doc.Attributes["after"])
		assert.Equal(t, types.Relationship{ID: "group-42", Type: "group"}, doc.Relationships["target"])
	})

	t.Run("denied", func(t *testing.T) {
		doc, err := s.Serialize(entry, security.NewStatic(types.ActionAuditRead))
		require.NoError(t, err)

		assert.Equal(t, "audit-group-event", doc.Type)
		assert.False(t, doc.HasAttribute("before"))
		assert.False(t, doc.HasAttribute("after"))
		assert.Equal(t, "update", doc.Attributes["action"])
		assert.Equal(t, types.Relationship{ID: "group-42", Type: "group"}, doc.Relationships["target"])
	})

	t.Run("denied keys absent from json", func(t *testing.T) {
		doc, err := s.Serialize(entry, security.None())
		require.NoError(t, err)

		raw, err := json.Marshal(doc)
		require.NoError(t, err)
		var decoded struct {
			Type       string                 `json:"type"`
			Attributes map[string]interface{} `json:"attributes"`
		}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, "audit-group-event", decoded.Type)
		assert.NotContains(t, decoded.Attributes, "before")
		assert.NotContains(t, decoded.Attributes, "after")
		assert.Contains(t, decoded.Attributes, "timestamp")
	})
}

func TestMutationEventsGateState(t *testing.T) {
	before := types.Snapshot{"v": 1}
	after := types.Snapshot{"v": 2}
	tests := []struct {
		name       string
		entry      types.AuditEntry
		targetType string
	}{
		{"user", types.NewUserEvent(testBase("m-1"), "t-1", types.EventKindUpdate, before, after), "user"},
		{"schedule", types.NewScheduleEvent(testBase("m-2"), "t-1", types.EventKindUpdate, before, after), "schedule"},
		{"credential", types.NewCredentialEvent(testBase("m-3"), "t-1", types.EventKindUpdate, before, after), "credential"},
		{"door", types.NewDoorEvent(testBase("m-4"), "t-1", types.EventKindUpdate, before, after), "door"},
	}

	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, err := s.Serialize(tt.entry, security.System())
			require.NoError(t, err)
			assert.Equal(t, before, full.Attributes["before"])
			assert.Equal(t, after, full.Attributes["after"])
			assert.Equal(t, types.Relationship{ID: "t-1", Type: tt.targetType}, full.Relationships["target"])

			redacted, err := s.Serialize(tt.entry, security.None())
			require.NoError(t, err)
			assert.NotContains(t, redacted.Attributes, "before")
			assert.NotContains(t, redacted.Attributes, "after")
			assert.Equal(t, full.Type, redacted.Type)
			assert.Equal(t, full.Relationships, redacted.Relationships)
		})
	}
}

func TestWSAPICallPayloadGated(t *testing.T) {
	entry := types.NewWSAPICall(testBase("w-1"), types.WSAPICallInfo{
		APIMethod:       "user_put",
		CallUUID:        "8f6a",
		StatusCode:      0,
		StatusString:    "ok",
		SourceEndpoint:  "10.0.0.4:51000",
		RequestContent:  `{"password":"hunter2"}`,
		ResponseContent: `{}`,
	})
	s := New()

	full, err := s.Serialize(entry, security.NewStatic(types.ActionAuditReadFull))
	require.NoError(t, err)
	assert.Equal(t, "user_put", full.Attributes["method"])
	assert.Equal(t, `{"password":"hunter2"}`, full.Attributes["request_content"])
	assert.Equal(t, `{}`, full.Attributes["response_content"])

	redacted, err := s.Serialize(entry, security.NewStatic(types.ActionAuditRead))
	require.NoError(t, err)
	assert.Equal(t, "user_put", redacted.Attributes["method"])
	assert.Equal(t, "10.0.0.4:51000", redacted.Attributes["source_endpoint"])
	assert.NotContains(t, redacted.Attributes, "request_content")
	assert.NotContains(t, redacted.Attributes, "response_content")
}

func TestMembershipEventRelationships(t *testing.T) {
	entry := types.NewUserGroupMembershipEvent(testBase("ug-1"), "user-9", "group-3", types.EventKindLeave)

	doc, err := New().Serialize(entry, security.None())
	require.NoError(t, err)
	assert.Equal(t, "leave", doc.Attributes["action"])
	assert.Equal(t, types.Relationship{ID: "user-9", Type: "user"}, doc.Relationships["target-user"])
	assert.Equal(t, types.Relationship{ID: "group-3", Type: "group"}, doc.Relationships["target-group"])
}

// countingContext counts permission checks to prove they are not cached
type countingContext struct {
	granted bool
	checks  int
}

func (c *countingContext) HasPermission(types.Action) bool {
	c.checks++
	return c.granted
}

func TestPermissionCheckedOnEveryCall(t *testing.T) {
	entry := types.NewDoorEvent(testBase("d-1"), "door-1", types.EventKindUpdate, types.Snapshot{"a": 1}, types.Snapshot{"a": 2})
	sc := &countingContext{granted: true}
	s := New()

	doc, err := s.Serialize(entry, sc)
	require.NoError(t, err)
	assert.Contains(t, doc.Attributes, "before")
	assert.Equal(t, 1, sc.checks)

	sc.granted = false
	doc, err = s.Serialize(entry, sc)
	require.NoError(t, err)
	assert.NotContains(t, doc.Attributes, "before")
	assert.Equal(t, 2, sc.checks)
}

func TestSerializeIsIdempotent(t *testing.T) {
	s := New()
	for _, tt := range builtinEntries() {
		for ctxName, sc := range securityContexts() {
			t.Run(tt.name+"/"+ctxName, func(t *testing.T) {
				first, err := s.Serialize(tt.entry, sc)
				require.NoError(t, err)
				second, err := s.Serialize(tt.entry, sc)
				require.NoError(t, err)
				assert.True(t, first.Equal(second))
				assert.NotSame(t, first, second)
			})
		}
	}
}

func TestSerializeIsolatedFromSnapshotMutation(t *testing.T) {
	before := types.Snapshot{"name": "Staff", "tags": []interface{}{"a"}}
	after := types.Snapshot{"name": "Visitors"}
	entry := types.NewGroupEvent(testBase("g-9"), "group-9", types.EventKindUpdate, before, after)
	s := New()

	// The creator keeps its maps
	before["name"] = "changed-by-creator"
	before["tags"].([]interface{})[0] = "b"

	doc, err := s.Serialize(entry, security.System())
	require.NoError(t, err)
	assert.Equal(t, types.Snapshot{"name": "Staff", "tags": []interface{}{"a"}}, doc.Attributes["before"])

	// A consumer edits the document it received
	doc.Attributes["before"].(types.Snapshot)["name"] = "changed-by-client"
	doc.Attributes["after"].(types.Snapshot)["extra"] = true

	again, err := s.Serialize(entry, security.System())
	require.NoError(t, err)
	assert.Equal(t, "Staff", again.Attributes["before"].(types.Snapshot)["name"])
	assert.NotContains(t, again.Attributes["after"], "extra")
	assert.Equal(t, "Staff", entry.Before()["name"])
}
