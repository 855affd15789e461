// Package errors defines the error taxonomy shared by the exporter packages.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the export taxonomy
var (
	// ErrSourceNotFound indicates the source database is missing or unreadable
	ErrSourceNotFound = errors.New("source not found")
	// ErrIntegrity indicates a join or lookup produced a referential impossibility
	ErrIntegrity = errors.New("integrity error")
	// ErrIO indicates a directory or file could not be created or written
	ErrIO = errors.New("i/o error")
	// ErrOptionalTableMissing indicates an optional table is absent.
	// Callers recover from it locally with an empty result set.
	ErrOptionalTableMissing = errors.New("optional table missing")
	// ErrNotFound indicates a requested entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// SourceNotFoundError reports a source database that does not exist or
// cannot be opened.
type SourceNotFoundError struct {
	Path string // Path or DSN of the source
	Err  error  // Underlying error, if any
}

func (e *SourceNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("source not found: %s", e.Path)
}

func (e *SourceNotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrSourceNotFound
}

func (e *SourceNotFoundError) Is(target error) bool {
	return target == ErrSourceNotFound
}

// IntegrityError reports a referential impossibility found while reading
// the source, with enough context to locate it.
type IntegrityError struct {
	Table   string // Table being read (e.g., "tbl_Title")
	Book    string // Book being exported, if known
	Entity  string // Offending row, e.g. "title 17"
	Message string // What was impossible
}

func (e *IntegrityError) Error() string {
	msg := "integrity error"
	if e.Table != "" {
		msg += " in " + e.Table
	}
	if e.Book != "" {
		msg += " (book " + e.Book + ")"
	}
	if e.Entity != "" {
		msg += ": " + e.Entity
	}
	return msg + ": " + e.Message
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "write", "mkdir")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// NotFoundError represents a requested entity that does not exist
type NotFoundError struct {
	Resource string // Type of resource (e.g., "book", "table")
	ID       string // Identifier of the resource
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewSourceNotFound creates a SourceNotFoundError
func NewSourceNotFound(path string, err error) *SourceNotFoundError {
	return &SourceNotFoundError{Path: path, Err: err}
}

// NewIntegrity creates an IntegrityError
func NewIntegrity(table, entity, message string) *IntegrityError {
	return &IntegrityError{
		Table:   table,
		Entity:  entity,
		Message: message,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}
