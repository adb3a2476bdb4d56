package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBase(t *testing.T) {
	a := NewBase("u1", "created")
	b := NewBase("u1", "created")

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "UTC", a.Timestamp().Location().String())
	assert.Equal(t, TypeAuditEntry, a.EntryType())
	assert.Equal(t, map[string]Relationship{"author": {ID: "u1", Type: "user"}}, a.Relationships())
	assert.Empty(t, NewBase("", "").Relationships())
}

func TestDocumentJSONShape(t *testing.T) {
	raw, err := json.Marshal(Document{Type: TypeDoorEvent})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"audit-door-event","attributes":{},"relationships":{}}`, string(raw))

	doc := NewDocument(TypeGroupEvent, "e1")
	doc.Attributes["action"] = "create"
	doc.Relationships["target"] = Relationship{ID: "g1", Type: "group"}
	raw, err = json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"audit-group-event","id":"e1","attributes":{"action":"create"},"relationships":{"target":{"id":"g1","type":"group"}}}`, string(raw))
}

func TestDocumentEqual(t *testing.T) {
	a := NewDocument(TypeGroupEvent, "e1")
	b := NewDocument(TypeGroupEvent, "e1")
	assert.True(t, a.Equal(b))

	b.Attributes["before"] = Snapshot{}
	assert.False(t, a.Equal(b))

	var nilDoc *Document
	assert.True(t, nilDoc.Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	assert.Nil(t, Snapshot(nil).Clone())

	orig := Snapshot{
		"name":   "door",
		"nested": map[string]interface{}{"level": 1},
		"list":   []interface{}{Snapshot{"x": 1}},
	}
	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone["nested"].(map[string]interface{})["level"] = 2
	clone["list"].([]interface{})[0].(Snapshot)["x"] = 2
	clone["name"] = "window"

	assert.Equal(t, 1, orig["nested"].(map[string]interface{})["level"])
	assert.Equal(t, 1, orig["list"].([]interface{})[0].(Snapshot)["x"])
	assert.Equal(t, "door", orig["name"])
}
