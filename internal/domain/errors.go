package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors that can occur while loading or querying results.
var (
	// ErrNotFound indicates that a requested competitor or event does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID indicates that an entity with the same id was already loaded.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrMalformedRecord indicates that an ingested record is structurally incomplete.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownCompetitors indicates that some requested competitor ids do not exist.
	ErrUnknownCompetitors = errors.New("unknown competitors")

	// ErrStoreSealed indicates a load attempt after ingestion has completed.
	ErrStoreSealed = errors.New("store is sealed")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// NotFoundError reports a single-entity lookup miss.
type NotFoundError struct {
	// Kind names the entity that was looked up, e.g. "competitor" or "event".
	Kind string

	// ID is the identifier that did not resolve.
	ID string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.ID, ErrNotFound)
}

// Unwrap returns ErrNotFound so callers can use errors.Is.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError creates a new NotFoundError for the given entity.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// DuplicateIDError reports an id that was loaded twice.
type DuplicateIDError struct {
	// Kind names the entity type whose id collided.
	Kind string

	// ID is the colliding identifier.
	ID string
}

// Error implements the error interface for DuplicateIDError.
func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.ID, ErrDuplicateID)
}

// Unwrap returns ErrDuplicateID.
func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// NewDuplicateIDError creates a new DuplicateIDError.
func NewDuplicateIDError(kind, id string) *DuplicateIDError {
	return &DuplicateIDError{Kind: kind, ID: id}
}

// MalformedRecordError represents an ingested record that is missing
// required fields or carries values outside their structural domain.
// It can describe several offending fields at once.
type MalformedRecordError struct {
	// Kind names the record type, e.g. "attempt".
	Kind string

	// Line is the 1-based source line, or 0 when the record did not come
	// from a file.
	Line int

	// Fields lists the offending fields with a short reason each.
	Fields []string
}

// Error implements the error interface for MalformedRecordError.
func (e *MalformedRecordError) Error() string {
	where := ""
	if e.Line > 0 {
		where = fmt.Sprintf(" at line %d", e.Line)
	}
	return fmt.Sprintf("%v: %s%s: %s", ErrMalformedRecord, e.Kind, where, strings.Join(e.Fields, ", "))
}

// Unwrap returns ErrMalformedRecord.
func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// AddField records another offending field.
func (e *MalformedRecordError) AddField(msg string) { e.Fields = append(e.Fields, msg) }

// HasFields returns true if any field was reported.
func (e *MalformedRecordError) HasFields() bool { return len(e.Fields) > 0 }

// NewMalformedRecordError creates an empty MalformedRecordError for kind.
func NewMalformedRecordError(kind string) *MalformedRecordError {
	return &MalformedRecordError{Kind: kind, Fields: make([]string, 0)}
}

// UnknownCompetitorsError lists the competitor ids of a multi-id request
// that did not resolve. It annotates a partial result; it never replaces it.
type UnknownCompetitorsError struct {
	// IDs are the unresolved ids in request order.
	IDs []string
}

// Error implements the error interface for UnknownCompetitorsError.
func (e *UnknownCompetitorsError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnknownCompetitors, strings.Join(e.IDs, ", "))
}

// Unwrap returns ErrUnknownCompetitors.
func (e *UnknownCompetitorsError) Unwrap() error { return ErrUnknownCompetitors }
