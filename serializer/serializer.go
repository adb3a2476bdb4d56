// Package serializer turns audit entries into their external documents.
//
// Built-in entry variants are routed through a closed visitor to their
// serializer. Any other entry is offered to the chain of serializers
// registered at runtime by modules, first match wins.
package serializer

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/security"
	"github.com/root-sector/access-audit-serializer/types"
)

// PolymorphicSerializer serializes built-in and module-defined audit entries
type PolymorphicSerializer struct {
	registry *Registry
	metrics  *Metrics
	logger   zerolog.Logger
}

// Option configures a PolymorphicSerializer
type Option func(*PolymorphicSerializer)

// WithMetrics records serialization metrics
func WithMetrics(m *Metrics) Option {
	return func(s *PolymorphicSerializer) {
		s.metrics = m
	}
}

// WithLogger replaces the component logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *PolymorphicSerializer) {
		s.logger = logger
	}
}

// New creates a serializer with an empty extension chain
func New(opts ...Option) *PolymorphicSerializer {
	s := &PolymorphicSerializer{
		logger: log.With().Str("component", "audit_serializer").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = NewRegistry()
	s.registry.metrics = s.metrics
	s.registry.logger = s.logger.With().Str("subcomponent", "extension_registry").Logger()
	return s
}

// Registry returns the extension chain
func (s *PolymorphicSerializer) Registry() *Registry {
	return s.registry
}

// RegisterSerializer adds a runtime serializer to the end of the chain
func (s *PolymorphicSerializer) RegisterSerializer(fn interfaces.RuntimeSerializer) *Handle {
	return s.registry.Register(fn)
}

// RegisterSerializerFunc adds a runtime serializer function to the end of the chain
func (s *PolymorphicSerializer) RegisterSerializerFunc(fn func(entry types.AuditEntry, sc interfaces.SecurityContext) (*types.Document, bool)) *Handle {
	return s.registry.RegisterFunc(fn)
}

// Serialize projects entry into a document, omitting the field groups sc
// is not allowed to read. A nil sc is treated as a context without
// permissions. A nil entry, typed or not, fails with ErrNilEntry.
func (s *PolymorphicSerializer) Serialize(entry types.AuditEntry, sc interfaces.SecurityContext) (*types.Document, error) {
	if types.IsNilEntry(entry) {
		return nil, ErrNilEntry
	}
	if sc == nil {
		sc = security.None()
	}

	if doc, ok := dispatch(entry, sc); ok {
		s.metrics.observeSerialize(doc.Type, sourceBuiltin, outcomeSuccess)
		return doc, nil
	}

	s.logger.Trace().
		Str("entryId", entry.ID()).
		Str("goType", fmt.Sprintf("%T", entry)).
		Msg("No built-in serializer, trying runtime serializers")

	if doc, ok := s.registry.TrySerialize(entry, sc); ok {
		s.metrics.observeSerialize(doc.Type, sourceExtension, outcomeSuccess)
		return doc, nil
	}

	err := &UnsupportedEntryError{
		GoType:    fmt.Sprintf("%T", entry),
		EntryType: entry.EntryType(),
		EntryID:   entry.ID(),
	}
	s.metrics.observeSerialize(typeUnknown, sourceNone, outcomeUnsupported)
	s.logger.Warn().
		Str("entryId", err.EntryID).
		Str("entryType", err.EntryType).
		Str("goType", err.GoType).
		Msg("Cannot serialize audit entry")
	return nil, err
}

// TypeName returns the discriminator Serialize would set for entry.
// Built-in entries are resolved without serializing; other entries go
// through the runtime serializers with a system context.
func (s *PolymorphicSerializer) TypeName(entry types.AuditEntry) (string, error) {
	if types.IsNilEntry(entry) {
		return "", ErrNilEntry
	}
	if name, ok := dispatchTypeName(entry); ok {
		s.metrics.observeTypeName(sourceBuiltin)
		return name, nil
	}
	if doc, ok := s.registry.TrySerialize(entry, security.System()); ok {
		s.metrics.observeTypeName(sourceExtension)
		return doc.Type, nil
	}
	s.metrics.observeTypeName(sourceNone)
	return "", &UnsupportedEntryError{
		GoType:    fmt.Sprintf("%T", entry),
		EntryType: entry.EntryType(),
		EntryID:   entry.ID(),
	}
}

var _ interfaces.Serializer = (*PolymorphicSerializer)(nil)

// defaultSerializer is the process-wide serializer modules register with
var defaultSerializer = New()

// Default returns the process-wide serializer
func Default() *PolymorphicSerializer {
	return defaultSerializer
}

// Serialize serializes entry with the process-wide serializer
func Serialize(entry types.AuditEntry, sc interfaces.SecurityContext) (*types.Document, error) {
	return defaultSerializer.Serialize(entry, sc)
}

// TypeName resolves the discriminator of entry with the process-wide serializer
func TypeName(entry types.AuditEntry) (string, error) {
	return defaultSerializer.TypeName(entry)
}

// RegisterSerializer registers fn with the process-wide serializer
func RegisterSerializer(fn interfaces.RuntimeSerializer) *Handle {
	return defaultSerializer.RegisterSerializer(fn)
}
