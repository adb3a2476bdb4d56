package serializer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedEntryType is returned when neither a built-in serializer
	// nor any registered extension claims an entry
	ErrUnsupportedEntryType = errors.New("unsupported audit entry type")

	// ErrNilEntry is returned when a nil entry is passed for serialization
	ErrNilEntry = errors.New("audit entry is nil")
)

// UnsupportedEntryError describes the entry nobody could serialize.
// It matches ErrUnsupportedEntryType with errors.Is.
type UnsupportedEntryError struct {
	GoType    string
	EntryType string
	EntryID   string
}

func (e *UnsupportedEntryError) Error() string {
	return fmt.Sprintf("%s: %s (entry type %q, id %q)", ErrUnsupportedEntryType, e.GoType, e.EntryType, e.EntryID)
}

func (e *UnsupportedEntryError) Unwrap() error {
	return ErrUnsupportedEntryType
}
