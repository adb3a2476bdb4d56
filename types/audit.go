package types

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Action is a permission tag checked against a security context
type Action string

const (
	// ActionAuditRead allows reading the non-sensitive part of audit entries
	ActionAuditRead Action = "audit.read"

	// ActionAuditReadFull allows reading sensitive field groups such as
	// before/after snapshots and raw API payloads
	ActionAuditReadFull Action = "audit.read_full"
)

// EventKind describes what happened to the target of a mutation event
type EventKind string

const (
	EventKindCreate EventKind = "create"
	EventKindUpdate EventKind = "update"
	EventKindDelete EventKind = "delete"
	EventKindJoin   EventKind = "join"
	EventKindLeave  EventKind = "leave"
)

// IsNilEntry reports whether entry is nil, including a nil pointer held
// in a non-nil interface
func IsNilEntry(entry AuditEntry) bool {
	if entry == nil {
		return true
	}
	v := reflect.ValueOf(entry)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Snapshot is an opaque view of an object's attributes at one point in time
type Snapshot map[string]interface{}

// Clone returns a deep copy of s. Nested maps and slices are copied so the
// copy shares no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Snapshot:
		return val.Clone()
	case map[string]interface{}:
		return map[string]interface{}(Snapshot(val).Clone())
	case []interface{}:
		if val == nil {
			return val
		}
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// AuditEntry is one immutable, audit-worthy occurrence.
// Built-in variants live in this package; modules may define their own.
type AuditEntry interface {
	ID() string
	Timestamp() time.Time
	AuthorID() string
	Description() string

	// EntryType is the stable self-described type name of the entry
	EntryType() string

	// Relationships returns references to the entities the entry points at
	Relationships() map[string]Relationship
}

// Base carries the fields shared by every audit entry. Embed it.
type Base struct {
	id          string
	timestamp   time.Time
	authorID    string
	description string
	parentID    string
}

// NewBase creates the common part of an entry with a fresh id and UTC timestamp
func NewBase(authorID, description string) Base {
	return Base{
		id:          uuid.New().String(),
		timestamp:   time.Now().UTC(),
		authorID:    authorID,
		description: description,
	}
}

// RestoreBase rebuilds the common part of a persisted entry
func RestoreBase(id string, timestamp time.Time, authorID, description, parentID string) Base {
	return Base{
		id:          id,
		timestamp:   timestamp.UTC(),
		authorID:    authorID,
		description: description,
		parentID:    parentID,
	}
}

// WithParent returns a copy of b linked to a parent entry
func (b Base) WithParent(parentID string) Base {
	b.parentID = parentID
	return b
}

func (b Base) ID() string           { return b.id }
func (b Base) Timestamp() time.Time { return b.timestamp }
func (b Base) AuthorID() string     { return b.authorID }
func (b Base) Description() string  { return b.description }
func (b Base) ParentID() string     { return b.parentID }
func (b Base) EntryType() string    { return TypeAuditEntry }

// Relationships returns the author and parent references, when set
func (b Base) Relationships() map[string]Relationship {
	rels := make(map[string]Relationship, 2)
	if b.authorID != "" {
		rels["author"] = Relationship{ID: b.authorID, Type: "user"}
	}
	if b.parentID != "" {
		rels["parent"] = Relationship{ID: b.parentID, Type: TypeAuditEntry}
	}
	return rels
}

// BaseAttributes returns the attributes every entry exposes unconditionally
func BaseAttributes(e AuditEntry) map[string]interface{} {
	attrs := map[string]interface{}{
		"timestamp": e.Timestamp().Format(time.RFC3339Nano),
	}
	if d := e.Description(); d != "" {
		attrs["description"] = d
	}
	return attrs
}
