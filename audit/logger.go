package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/security"
	"github.com/root-sector/access-audit-serializer/types"
)

// ErrNilEntry is returned when a journal is asked to record a nil entry
var ErrNilEntry = errors.New("entry cannot be nil")

// JournalLogger writes one structured log line per audit entry.
// It is a plain sink: the entry's type name is resolved through the
// serializer so module-defined entries are named like in documents.
type JournalLogger struct {
	serializer interfaces.Serializer
	logger     zerolog.Logger
	level      zerolog.Level
}

// NewJournalLogger creates a journal writing to the global zerolog logger
func NewJournalLogger(s interfaces.Serializer) *JournalLogger {
	return NewJournalLoggerWith(s, log.With().Str("component", "audit_journal").Logger())
}

// NewJournalLoggerWith creates a journal writing to logger
func NewJournalLoggerWith(s interfaces.Serializer, logger zerolog.Logger) *JournalLogger {
	return &JournalLogger{
		serializer: s,
		logger:     logger,
		level:      zerolog.InfoLevel,
	}
}

// Record logs entry with the journal context found in ctx. A nil ctx
// carries no journal context.
func (l *JournalLogger) Record(ctx context.Context, entry types.AuditEntry) error {
	if types.IsNilEntry(entry) {
		return ErrNilEntry
	}

	typeName, err := l.serializer.TypeName(entry)
	if err != nil {
		// Still journal it, under its self-described type
		typeName = entry.EntryType()
		l.logger.Warn().Err(err).Str("auditId", entry.ID()).Msg("Journaling entry without a serializer")
	}

	logEvent := l.logger.WithLevel(l.level).
		Str("auditId", entry.ID()).
		Time("timestamp", entry.Timestamp()).
		Str("type", typeName)

	if author := entry.AuthorID(); author != "" {
		logEvent = logEvent.Str("author", author)
	}
	if d := entry.Description(); d != "" {
		logEvent = logEvent.Str("description", d)
	}
	if module := contextString(ctx, KeyModule); module != "" {
		logEvent = logEvent.Str("module", module)
	}
	if requestID := contextString(ctx, KeyRequestID); requestID != "" {
		logEvent = logEvent.Str("requestId", requestID)
	}
	if source := contextString(ctx, KeySource); source != "" {
		logEvent = logEvent.Str("source", source)
	}

	logEvent.Msg("Audit entry")
	return nil
}

// StoreJournal serializes entries with full visibility and persists the documents
type StoreJournal struct {
	serializer interfaces.Serializer
	store      interfaces.JournalStore
	timeout    time.Duration
}

// NewStoreJournal creates a journal backed by store
func NewStoreJournal(s interfaces.Serializer, store interfaces.JournalStore) *StoreJournal {
	return &StoreJournal{
		serializer: s,
		store:      store,
		timeout:    5 * time.Second,
	}
}

// Record serializes entry and saves the document
func (j *StoreJournal) Record(ctx context.Context, entry types.AuditEntry) error {
	if types.IsNilEntry(entry) {
		return ErrNilEntry
	}
	if ctx == nil {
		ctx = context.Background()
	}
	doc, err := j.serializer.Serialize(entry, security.System())
	if err != nil {
		return fmt.Errorf("failed to serialize entry %s: %w", entry.ID(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if err := j.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("failed to save entry %s: %w", entry.ID(), err)
	}
	return nil
}

// MultiJournal records every entry to several journals
type MultiJournal struct {
	journals []interfaces.Journal
}

// NewMultiJournal creates a journal fanning out to journals, in order
func NewMultiJournal(journals ...interfaces.Journal) *MultiJournal {
	return &MultiJournal{journals: journals}
}

// Record records entry to every journal, even when one of them fails
func (m *MultiJournal) Record(ctx context.Context, entry types.AuditEntry) error {
	var errs []error
	for _, j := range m.journals {
		if err := j.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ interfaces.Journal = (*JournalLogger)(nil)
	_ interfaces.Journal = (*StoreJournal)(nil)
	_ interfaces.Journal = (*MultiJournal)(nil)
)
