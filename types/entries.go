package types

// Discriminators of the built-in audit entry variants
const (
	TypeAuditEntry               = "audit-entry"
	TypeUserEvent                = "audit-user-event"
	TypeWSAPICall                = "audit-ws-api-call"
	TypeScheduleEvent            = "audit-schedule-event"
	TypeGroupEvent               = "audit-group-event"
	TypeCredentialEvent          = "audit-credential-event"
	TypeDoorEvent                = "audit-door-event"
	TypeUserGroupMembershipEvent = "audit-user-group-membership-event"
)

// BuiltinTypes lists every built-in discriminator
var BuiltinTypes = []string{
	TypeUserEvent,
	TypeWSAPICall,
	TypeScheduleEvent,
	TypeGroupEvent,
	TypeCredentialEvent,
	TypeDoorEvent,
	TypeUserGroupMembershipEvent,
}

// EntryVisitor has one method per built-in variant. Adding a built-in
// variant adds a method here, so every visitor must handle it.
type EntryVisitor interface {
	VisitUserEvent(e *UserEvent)
	VisitWSAPICall(e *WSAPICall)
	VisitScheduleEvent(e *ScheduleEvent)
	VisitGroupEvent(e *GroupEvent)
	VisitCredentialEvent(e *CredentialEvent)
	VisitDoorEvent(e *DoorEvent)
	VisitUserGroupMembershipEvent(e *UserGroupMembershipEvent)
}

// BuiltinEntry is implemented only by the variants defined in this package
type BuiltinEntry interface {
	AuditEntry
	Accept(v EntryVisitor)
	builtin()
}

// mutation is the target + before/after payload shared by mutation events.
// Snapshots are copied on the way in and on the way out.
type mutation struct {
	targetID string
	kind     EventKind
	before   Snapshot
	after    Snapshot
}

func (m mutation) TargetID() string { return m.targetID }
func (m mutation) Kind() EventKind  { return m.kind }
func (m mutation) Before() Snapshot { return m.before.Clone() }
func (m mutation) After() Snapshot  { return m.after.Clone() }

func newMutation(targetID string, kind EventKind, before, after Snapshot) mutation {
	return mutation{targetID: targetID, kind: kind, before: before.Clone(), after: after.Clone()}
}

func (m mutation) relationships(b Base, targetType string) map[string]Relationship {
	rels := b.Relationships()
	if m.targetID != "" {
		rels["target"] = Relationship{ID: m.targetID, Type: targetType}
	}
	return rels
}

// UserEvent records an action on a user account
type UserEvent struct {
	Base
	mutation
}

// NewUserEvent creates a user event
func NewUserEvent(base Base, userID string, kind EventKind, before, after Snapshot) *UserEvent {
	return &UserEvent{Base: base, mutation: newMutation(userID, kind, before, after)}
}

func (e *UserEvent) EntryType() string { return TypeUserEvent }
func (e *UserEvent) Relationships() map[string]Relationship {
	return e.relationships(e.Base, "user")
}
func (e *UserEvent) Accept(v EntryVisitor) { v.VisitUserEvent(e) }
func (e *UserEvent) builtin()              {}

// WSAPICall records one call made against the websocket API
type WSAPICall struct {
	Base
	apiMethod       string
	callUUID        string
	statusCode      int
	statusString    string
	sourceEndpoint  string
	requestContent  string
	responseContent string
}

// WSAPICallInfo holds the metadata of an API call
type WSAPICallInfo struct {
	APIMethod       string `json:"method"`
	CallUUID        string `json:"uuid"`
	StatusCode      int    `json:"statusCode"`
	StatusString    string `json:"statusString,omitempty"`
	SourceEndpoint  string `json:"sourceEndpoint,omitempty"`
	RequestContent  string `json:"request,omitempty"`
	ResponseContent string `json:"response,omitempty"`
}

// NewWSAPICall creates an API call entry
func NewWSAPICall(base Base, info WSAPICallInfo) *WSAPICall {
	return &WSAPICall{
		Base:            base,
		apiMethod:       info.APIMethod,
		callUUID:        info.CallUUID,
		statusCode:      info.StatusCode,
		statusString:    info.StatusString,
		sourceEndpoint:  info.SourceEndpoint,
		requestContent:  info.RequestContent,
		responseContent: info.ResponseContent,
	}
}

func (e *WSAPICall) APIMethod() string       { return e.apiMethod }
func (e *WSAPICall) CallUUID() string        { return e.callUUID }
func (e *WSAPICall) StatusCode() int         { return e.statusCode }
func (e *WSAPICall) StatusString() string    { return e.statusString }
func (e *WSAPICall) SourceEndpoint() string  { return e.sourceEndpoint }
func (e *WSAPICall) RequestContent() string  { return e.requestContent }
func (e *WSAPICall) ResponseContent() string { return e.responseContent }
func (e *WSAPICall) EntryType() string       { return TypeWSAPICall }
func (e *WSAPICall) Accept(v EntryVisitor)   { v.VisitWSAPICall(e) }
func (e *WSAPICall) builtin()                {}

// ScheduleEvent records a mutation of a schedule
type ScheduleEvent struct {
	Base
	mutation
}

// NewScheduleEvent creates a schedule event
func NewScheduleEvent(base Base, scheduleID string, kind EventKind, before, after Snapshot) *ScheduleEvent {
	return &ScheduleEvent{Base: base, mutation: newMutation(scheduleID, kind, before, after)}
}

func (e *ScheduleEvent) EntryType() string { return TypeScheduleEvent }
func (e *ScheduleEvent) Relationships() map[string]Relationship {
	return e.relationships(e.Base, "schedule")
}
func (e *ScheduleEvent) Accept(v EntryVisitor) { v.VisitScheduleEvent(e) }
func (e *ScheduleEvent) builtin()              {}

// GroupEvent records a mutation of a user group
type GroupEvent struct {
	Base
	mutation
}

// NewGroupEvent creates a group event
func NewGroupEvent(base Base, groupID string, kind EventKind, before, after Snapshot) *GroupEvent {
	return &GroupEvent{Base: base, mutation: newMutation(groupID, kind, before, after)}
}

func (e *GroupEvent) EntryType() string { return TypeGroupEvent }
func (e *GroupEvent) Relationships() map[string]Relationship {
	return e.relationships(e.Base, "group")
}
func (e *GroupEvent) Accept(v EntryVisitor) { v.VisitGroupEvent(e) }
func (e *GroupEvent) builtin()              {}

// CredentialEvent records a mutation of a credential (card, pin code...)
type CredentialEvent struct {
	Base
	mutation
}

// NewCredentialEvent creates a credential event
func NewCredentialEvent(base Base, credentialID string, kind EventKind, before, after Snapshot) *CredentialEvent {
	return &CredentialEvent{Base: base, mutation: newMutation(credentialID, kind, before, after)}
}

func (e *CredentialEvent) EntryType() string { return TypeCredentialEvent }
func (e *CredentialEvent) Relationships() map[string]Relationship {
	return e.relationships(e.Base, "credential")
}
func (e *CredentialEvent) Accept(v EntryVisitor) { v.VisitCredentialEvent(e) }
func (e *CredentialEvent) builtin()              {}

// DoorEvent records a mutation of a door
type DoorEvent struct {
	Base
	mutation
}

// NewDoorEvent creates a door event
func NewDoorEvent(base Base, doorID string, kind EventKind, before, after Snapshot) *DoorEvent {
	return &DoorEvent{Base: base, mutation: newMutation(doorID, kind, before, after)}
}

func (e *DoorEvent) EntryType() string { return TypeDoorEvent }
func (e *DoorEvent) Relationships() map[string]Relationship {
	return e.relationships(e.Base, "door")
}
func (e *DoorEvent) Accept(v EntryVisitor) { v.VisitDoorEvent(e) }
func (e *DoorEvent) builtin()              {}

// UserGroupMembershipEvent records a user joining or leaving a group
type UserGroupMembershipEvent struct {
	Base
	userID  string
	groupID string
	kind    EventKind
}

// NewUserGroupMembershipEvent creates a membership event
func NewUserGroupMembershipEvent(base Base, userID, groupID string, kind EventKind) *UserGroupMembershipEvent {
	return &UserGroupMembershipEvent{Base: base, userID: userID, groupID: groupID, kind: kind}
}

func (e *UserGroupMembershipEvent) TargetUserID() string  { return e.userID }
func (e *UserGroupMembershipEvent) TargetGroupID() string { return e.groupID }
func (e *UserGroupMembershipEvent) Kind() EventKind       { return e.kind }
func (e *UserGroupMembershipEvent) EntryType() string     { return TypeUserGroupMembershipEvent }

func (e *UserGroupMembershipEvent) Relationships() map[string]Relationship {
	rels := e.Base.Relationships()
	if e.userID != "" {
		rels["target-user"] = Relationship{ID: e.userID, Type: "user"}
	}
	if e.groupID != "" {
		rels["target-group"] = Relationship{ID: e.groupID, Type: "group"}
	}
	return rels
}

func (e *UserGroupMembershipEvent) Accept(v EntryVisitor) { v.VisitUserGroupMembershipEvent(e) }
func (e *UserGroupMembershipEvent) builtin()              {}
