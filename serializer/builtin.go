package serializer

import (
	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/types"
)

// fieldGroup is a set of attributes revealed only when the caller holds requires
type fieldGroup[E types.AuditEntry] struct {
	name     string
	requires types.Action
	fields   func(e E) map[string]interface{}
}

// visibility describes how one built-in variant is projected: its
// discriminator, the attributes everyone sees, and the gated field groups.
type visibility[E types.AuditEntry] struct {
	typeName string
	public   func(e E) map[string]interface{}
	gated    []fieldGroup[E]
}

// serialize is the single emission path shared by every built-in variant
func (v visibility[E]) serialize(e E, sc interfaces.SecurityContext) *types.Document {
	doc := types.NewDocument(v.typeName, e.ID())

	for name, rel := range e.Relationships() {
		doc.Relationships[name] = rel
	}
	for k, val := range types.BaseAttributes(e) {
		doc.Attributes[k] = val
	}
	if v.public != nil {
		for k, val := range v.public(e) {
			doc.Attributes[k] = val
		}
	}

	// Permissions are checked on every call; a denied group is left out entirely.
	for _, group := range v.gated {
		if !sc.HasPermission(group.requires) {
			continue
		}
		for k, val := range group.fields(e) {
			doc.Attributes[k] = val
		}
	}
	return doc
}

// mutationEntry is a built-in event carrying a target and before/after snapshots
type mutationEntry interface {
	types.AuditEntry
	TargetID() string
	Kind() types.EventKind
	Before() types.Snapshot
	After() types.Snapshot
}

func mutationVisibility[E mutationEntry](typeName string) visibility[E] {
	return visibility[E]{
		typeName: typeName,
		public: func(e E) map[string]interface{} {
			return map[string]interface{}{"action": string(e.Kind())}
		},
		gated: []fieldGroup[E]{
			{
				name:     "state",
				requires: types.ActionAuditReadFull,
				fields: func(e E) map[string]interface{} {
					return map[string]interface{}{
						"before": e.Before(),
						"after":  e.After(),
					}
				},
			},
		},
	}
}

var (
	userEventVisibility       = mutationVisibility[*types.UserEvent](types.TypeUserEvent)
	scheduleEventVisibility   = mutationVisibility[*types.ScheduleEvent](types.TypeScheduleEvent)
	groupEventVisibility      = mutationVisibility[*types.GroupEvent](types.TypeGroupEvent)
	credentialEventVisibility = mutationVisibility[*types.CredentialEvent](types.TypeCredentialEvent)
	doorEventVisibility       = mutationVisibility[*types.DoorEvent](types.TypeDoorEvent)

	wsAPICallVisibility = visibility[*types.WSAPICall]{
		typeName: types.TypeWSAPICall,
		public: func(e *types.WSAPICall) map[string]interface{} {
			return map[string]interface{}{
				"method":          e.APIMethod(),
				"uuid":            e.CallUUID(),
				"status_code":     e.StatusCode(),
				"status_string":   e.StatusString(),
				"source_endpoint": e.SourceEndpoint(),
			}
		},
		gated: []fieldGroup[*types.WSAPICall]{
			{
				name:     "payload",
				requires: types.ActionAuditReadFull,
				fields: func(e *types.WSAPICall) map[string]interface{} {
					return map[string]interface{}{
						"request_content":  e.RequestContent(),
						"response_content": e.ResponseContent(),
					}
				},
			},
		},
	}

	membershipVisibility = visibility[*types.UserGroupMembershipEvent]{
		typeName: types.TypeUserGroupMembershipEvent,
		public: func(e *types.UserGroupMembershipEvent) map[string]interface{} {
			return map[string]interface{}{"action": string(e.Kind())}
		},
	}
)
