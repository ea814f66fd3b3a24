// Package errors provides the error taxonomy shared by the ontology parsers,
// the lineage queries and the reference-data loader.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a requested id or resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrPrecondition indicates a structural assumption about a hierarchy was violated.
	ErrPrecondition = errors.New("precondition violated")
	// ErrContentMismatch indicates two occurrences of one id disagree in content.
	ErrContentMismatch = errors.New("content mismatch")
	// ErrMissingData indicates reference data that must be acquired by hand is absent.
	ErrMissingData = errors.New("missing reference data")
)

// NotFoundError represents a lookup miss with context.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "term", "snapshot", "hierarchy")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation
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

// PreconditionError reports a violated structural invariant: a cycle in the
// id graph, an absent root, an edge to an unregistered id, or an edge count
// that changed while splitting edges by relation type.
type PreconditionError struct {
	Hierarchy string // Hierarchy being built (e.g., "brite", "go", "metacyc")
	Message   string
}

func (e *PreconditionError) Error() string {
	if e.Hierarchy != "" {
		return fmt.Sprintf("%s: precondition violated: %s", e.Hierarchy, e.Message)
	}
	return fmt.Sprintf("precondition violated: %s", e.Message)
}

func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}

// ContentMismatchError reports that an id was parsed twice with different
// hash-relevant content.
type ContentMismatchError struct {
	ID       string
	Existing string // content hash already registered
	Incoming string // content hash of the new occurrence
}

func (e *ContentMismatchError) Error() string {
	return fmt.Sprintf("content mismatch for %s: registered %s, parsed %s", e.ID, shortHash(e.Existing), shortHash(e.Incoming))
}

func (e *ContentMismatchError) Unwrap() error {
	return ErrContentMismatch
}

// MissingDataError reports licensed or manually acquired reference data that
// is not present locally. Its message is meant to be shown to a user as-is.
type MissingDataError struct {
	Dataset string // Human name of the dataset (e.g., "MetaCyc")
	Path    string // Where the data is expected
	Source  string // Where it can be acquired
	Note    string // Extra instructions, if any
}

func (e *MissingDataError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s reference data not found at %s", e.Dataset, e.Path)
	if e.Note != "" {
		fmt.Fprintf(&sb, "; %s", e.Note)
	}
	if e.Source != "" {
		fmt.Fprintf(&sb, "; acquire it from %s", e.Source)
	}
	return sb.String()
}

func (e *MissingDataError) Unwrap() error {
	return ErrMissingData
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
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

// ParseError represents a malformed raw dump.
type ParseError struct {
	Format  string // Format being parsed (e.g., "BRITE", "OWL", "MetaCyc")
	Path    string // File path or record id, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewPrecondition creates a PreconditionError with a formatted message.
func NewPrecondition(hierarchy, format string, args ...any) *PreconditionError {
	return &PreconditionError{
		Hierarchy: hierarchy,
		Message:   fmt.Sprintf(format, args...),
	}
}

// NewContentMismatch creates a ContentMismatchError
func NewContentMismatch(id, existing, incoming string) *ContentMismatchError {
	return &ContentMismatchError{
		ID:       id,
		Existing: existing,
		Incoming: incoming,
	}
}

// NewMissingData creates a MissingDataError
func NewMissingData(dataset, path, source string) *MissingDataError {
	return &MissingDataError{
		Dataset: dataset,
		Path:    path,
		Source:  source,
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

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
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

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
