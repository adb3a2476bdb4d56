package serializer

import (
	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/types"
)

// serializeVisitor runs the built-in serializer matching the visited variant
type serializeVisitor struct {
	sc  interfaces.SecurityContext
	doc *types.Document
}

func (v *serializeVisitor) VisitUserEvent(e *types.UserEvent) {
	v.doc = userEventVisibility.serialize(e, v.sc)
}

func (v *serializeVisitor) VisitWSAPICall(e *types.WSAPICall) {
	v.doc = wsAPICallVisibility.serialize(e, v.sc)
}

func (v *serializeVisitor) VisitScheduleEvent(e *types.ScheduleEvent) {
	v.doc = scheduleEventVisibility.serialize(e, v.sc)
}

func (v *serializeVisitor) VisitGroupEvent(e *types.GroupEvent) {
	v.doc = groupEventVisibility.serialize(e, v.sc)
}

func (v *serializeVisitor) VisitCredentialEvent(e *types.CredentialEvent) {
	v.doc = credentialEventVisibility.serialize(e, v.sc)
}

func (v *serializeVisitor) VisitDoorEvent(e *types.DoorEvent) {
	v.doc = doorEventVisibility.serialize(e, v.sc)
}

func (v *serializeVisitor) VisitUserGroupMembershipEvent(e *types.UserGroupMembershipEvent) {
	v.doc = membershipVisibility.serialize(e, v.sc)
}

// typeNameVisitor resolves a built-in discriminator without serializing
type typeNameVisitor struct {
	name string
}

func (v *typeNameVisitor) VisitUserEvent(*types.UserEvent) {
	v.name = userEventVisibility.typeName
}

func (v *typeNameVisitor) VisitWSAPICall(*types.WSAPICall) {
	v.name = wsAPICallVisibility.typeName
}

func (v *typeNameVisitor) VisitScheduleEvent(*types.ScheduleEvent) {
	v.name = scheduleEventVisibility.typeName
}

func (v *typeNameVisitor) VisitGroupEvent(*types.GroupEvent) {
	v.name = groupEventVisibility.typeName
}

func (v *typeNameVisitor) VisitCredentialEvent(*types.CredentialEvent) {
	v.name = credentialEventVisibility.typeName
}

func (v *typeNameVisitor) VisitDoorEvent(*types.DoorEvent) {
	v.name = doorEventVisibility.typeName
}

func (v *typeNameVisitor) VisitUserGroupMembershipEvent(*types.UserGroupMembershipEvent) {
	v.name = membershipVisibility.typeName
}

var (
	_ types.EntryVisitor = (*serializeVisitor)(nil)
	_ types.EntryVisitor = (*typeNameVisitor)(nil)
)

// dispatch serializes a built-in entry. It returns false, and no error,
// when entry is not one of the built-in variants.
func dispatch(entry types.AuditEntry, sc interfaces.SecurityContext) (*types.Document, bool) {
	builtin, ok := entry.(types.BuiltinEntry)
	if !ok {
		return nil, false
	}
	v := &serializeVisitor{sc: sc}
	builtin.Accept(v)
	return v.doc, true
}

// dispatchTypeName returns the discriminator of a built-in entry
func dispatchTypeName(entry types.AuditEntry) (string, bool) {
	builtin, ok := entry.(types.BuiltinEntry)
	if !ok {
		return "", false
	}
	v := &typeNameVisitor{}
	builtin.Accept(v)
	return v.name, true
}
