package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownEnvelopeKind is returned when an envelope names no built-in variant
	ErrUnknownEnvelopeKind = errors.New("unknown entry kind")

	// ErrInvalidEnvelope is returned when an envelope cannot be decoded
	ErrInvalidEnvelope = errors.New("invalid entry envelope")
)

// Envelope is the flat JSON form of a built-in audit entry, as produced by
// the audit subsystem exports. Kind is the entry discriminator.
type Envelope struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	AuthorID    string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	ParentID    string    `json:"parent,omitempty"`

	TargetID string    `json:"target,omitempty"`
	GroupID  string    `json:"group,omitempty"`
	Action   EventKind `json:"action,omitempty"`
	Before   Snapshot  `json:"before,omitempty"`
	After    Snapshot  `json:"after,omitempty"`

	Call *WSAPICallInfo `json:"call,omitempty"`
}

// DecodeEnvelope decodes one JSON envelope into a built-in entry
func DecodeEnvelope(data []byte) (BuiltinEntry, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return env.Entry()
}

// Entry builds the built-in entry described by the envelope
func (env Envelope) Entry() (BuiltinEntry, error) {
	if env.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidEnvelope)
	}
	ts := env.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	base := RestoreBase(env.ID, ts, env.AuthorID, env.Description, env.ParentID)

	switch env.Kind {
	case TypeUserEvent:
		return NewUserEvent(base, env.TargetID, env.Action, env.Before, env.After), nil
	case TypeScheduleEvent:
		return NewScheduleEvent(base, env.TargetID, env.Action, env.Before, env.After), nil
	case TypeGroupEvent:
		return NewGroupEvent(base, env.TargetID, env.Action, env.Before, env.After), nil
	case TypeCredentialEvent:
		return NewCredentialEvent(base, env.TargetID, env.Action, env.Before, env.After), nil
	case TypeDoorEvent:
		return NewDoorEvent(base, env.TargetID, env.Action, env.Before, env.After), nil
	case TypeUserGroupMembershipEvent:
		return NewUserGroupMembershipEvent(base, env.TargetID, env.GroupID, env.Action), nil
	case TypeWSAPICall:
		if env.Call == nil {
			return nil, fmt.Errorf("%w: %s requires call metadata", ErrInvalidEnvelope, env.Kind)
		}
		return NewWSAPICall(base, *env.Call), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvelopeKind, env.Kind)
	}
}
