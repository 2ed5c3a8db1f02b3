// Package errors provides standardized error types and helpers for the Strata codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrInvalidRange indicates a span with a malformed (start, end) interval
	ErrInvalidRange = errors.New("invalid span range")
	// ErrNonContiguousChildren indicates enveloping children that are out of
	// order or overlapping
	ErrNonContiguousChildren = errors.New("non-contiguous child spans")
	// ErrDuplicateSpan indicates a second span at an occupied location of an
	// unambiguous layer
	ErrDuplicateSpan = errors.New("duplicate span location")
	// ErrUnknownAttribute indicates access to an attribute the layer does not declare
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrAttributeMismatch indicates an annotation whose attribute set differs
	// from the layer schema
	ErrAttributeMismatch = errors.New("attribute set mismatch")
	// ErrUnbound indicates text access on a span or layer not attached to a Text
	ErrUnbound = errors.New("not bound to a text")
	// ErrConsistency indicates a violated layer invariant
	ErrConsistency = errors.New("layer consistency violation")
	// ErrMissingLayer indicates a dependency layer that is not attached
	ErrMissingLayer = errors.New("missing layer")
	// ErrNameCollision indicates a layer name already in use on a Text
	ErrNameCollision = errors.New("layer name collision")
	// ErrNoMatchingParent indicates a span whose bounds match no parent-layer span
	ErrNoMatchingParent = errors.New("no matching parent span")
	// ErrMissingPriority indicates a conflict-resolution candidate without the
	// configured priority attribute
	ErrMissingPriority = errors.New("missing priority attribute")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
)

// RangeError reports an invalid elementary span interval.
type RangeError struct {
	Start int
	End   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid span range [%d, %d): start must satisfy 0 <= start < end", e.Start, e.End)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// ChildOrderError reports enveloping children that are empty, unordered or
// overlapping.
type ChildOrderError struct {
	Index   int    // position of the offending child, -1 for an empty child list
	Message string
}

func (e *ChildOrderError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid enveloping span: %s", e.Message)
	}
	return fmt.Sprintf("invalid enveloping span at child %d: %s", e.Index, e.Message)
}

func (e *ChildOrderError) Unwrap() error { return ErrNonContiguousChildren }

// DuplicateSpanError reports an insertion at an already occupied location of
// an unambiguous layer.
type DuplicateSpanError struct {
	Layer string
	Start int
	End   int
}

func (e *DuplicateSpanError) Error() string {
	return fmt.Sprintf("layer %q already has a span at [%d, %d)", e.Layer, e.Start, e.End)
}

func (e *DuplicateSpanError) Unwrap() error { return ErrDuplicateSpan }

// UnknownAttributeError reports access to an undeclared attribute.
type UnknownAttributeError struct {
	Layer     string
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("layer %q does not declare attribute %q", e.Layer, e.Attribute)
}

func (e *UnknownAttributeError) Unwrap() error { return ErrUnknownAttribute }

// AttributeMismatchError reports an annotation whose attributes do not match
// the layer schema exactly.
type AttributeMismatchError struct {
	Layer   string
	Missing []string
	Extra   []string
}

func (e *AttributeMismatchError) Error() string {
	switch {
	case len(e.Missing) > 0 && len(e.Extra) > 0:
		return fmt.Sprintf("annotation for layer %q is missing attributes %v and has extra attributes %v",
			e.Layer, e.Missing, e.Extra)
	case len(e.Missing) > 0:
		return fmt.Sprintf("annotation for layer %q is missing attributes %v", e.Layer, e.Missing)
	case len(e.Extra) > 0:
		return fmt.Sprintf("annotation for layer %q has extra attributes %v", e.Layer, e.Extra)
	}
	return fmt.Sprintf("annotation for layer %q does not match the declared attributes", e.Layer)
}

func (e *AttributeMismatchError) Unwrap() error { return ErrAttributeMismatch }

// UnboundError reports text access through an unattached span or layer.
type UnboundError struct {
	What string // "span" or "layer"
	Name string // layer name, if known
}

func (e *UnboundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s of layer %q is not bound to a text", e.What, e.Name)
	}
	return fmt.Sprintf("%s is not bound to a text", e.What)
}

func (e *UnboundError) Unwrap() error { return ErrUnbound }

// ConsistencyError reports the first invariant violated during a layer audit.
type ConsistencyError struct {
	Layer   string
	Start   int // bounds of the offending span; -1 when not span-specific
	End     int
	Message string
}

func (e *ConsistencyError) Error() string {
	if e.Start >= 0 {
		return fmt.Sprintf("layer %q is inconsistent at span [%d, %d): %s", e.Layer, e.Start, e.End, e.Message)
	}
	return fmt.Sprintf("layer %q is inconsistent: %s", e.Layer, e.Message)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// MissingLayerError reports an absent dependency layer.
type MissingLayerError struct {
	Layer    string // the dependent layer
	Requires string // the missing dependency
	Role     string // "parent", "enveloping" or "input"
}

func (e *MissingLayerError) Error() string {
	return fmt.Sprintf("layer %q requires %s layer %q which is not attached", e.Layer, e.Role, e.Requires)
}

func (e *MissingLayerError) Unwrap() error { return ErrMissingLayer }

// NameCollisionError reports a layer name already taken on a Text.
type NameCollisionError struct {
	Name string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("layer name %q is already in use", e.Name)
}

func (e *NameCollisionError) Unwrap() error { return ErrNameCollision }

// NoMatchingParentSpanError reports a parent-attached span whose bounds match
// no span of the parent layer.
type NoMatchingParentSpanError struct {
	Layer  string
	Parent string
	Start  int
	End    int
}

func (e *NoMatchingParentSpanError) Error() string {
	return fmt.Sprintf("layer %q: span [%d, %d) has no matching span in parent layer %q",
		e.Layer, e.Start, e.End, e.Parent)
}

func (e *NoMatchingParentSpanError) Unwrap() error { return ErrNoMatchingParent }

// MissingPriorityError reports a conflict-resolution candidate that lacks the
// configured priority attribute or carries a non-integer value.
type MissingPriorityError struct {
	Layer     string
	Attribute string
	Start     int
	End       int
}

func (e *MissingPriorityError) Error() string {
	return fmt.Sprintf("layer %q: span [%d, %d) has no usable priority attribute %q",
		e.Layer, e.Start, e.End, e.Attribute)
}

func (e *MissingPriorityError) Unwrap() error { return ErrMissingPriority }

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "text", "layer", "document")
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

func (e *IOError) Unwrap() error { return e.Err }

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "JSON", "TEI", "query")
	Path    string // File path, if applicable
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

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
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

// Is reports whether any error in err's chain matches target.
// Re-exported so callers need only one errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }
