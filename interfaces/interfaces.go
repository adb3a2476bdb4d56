// Package interfaces defines all service interfaces for the application.
// IMPORTANT: This is the single source of truth for service interfaces.
// Do not define interfaces in other files.
package interfaces

import (
	"context"

	"github.com/root-sector/access-audit-serializer/types"
)

// Security Interfaces
// SecurityContext is the capability holder of the caller requesting serialization.
// It is queried, never mutated, by the serializer.
type SecurityContext interface {
	// HasPermission reports whether the caller may perform action
	HasPermission(action types.Action) bool
}

// Serialization Interfaces
// RuntimeSerializer is a serializer contributed at runtime by a module.
type RuntimeSerializer interface {
	// Serialize returns the document for entry and true when the serializer
	// handles this kind of entry, or false when it does not apply.
	Serialize(entry types.AuditEntry, sc SecurityContext) (*types.Document, bool)
}

// Serializer turns any audit entry into its external document
type Serializer interface {
	// Serialize projects entry, redacting what sc is not allowed to see
	Serialize(entry types.AuditEntry, sc SecurityContext) (*types.Document, error)

	// TypeName returns the discriminator Serialize would produce for entry
	TypeName(entry types.AuditEntry) (string, error)
}

// Journal Interfaces
// Journal records audit entries as they happen
type Journal interface {
	// Record records one entry
	Record(ctx context.Context, entry types.AuditEntry) error
}

// JournalStore persists serialized audit documents
type JournalStore interface {
	// Save stores one serialized document
	Save(ctx context.Context, doc *types.Document) error

	// Find returns up to limit documents of the given type, newest first.
	// An empty typeName matches every type.
	Find(ctx context.Context, typeName string, limit int64) ([]*types.Document, error)
}
