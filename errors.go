// Package kern structured error types for better error handling
package kern

import (
	"fmt"
)

// ErrorKind represents categories of errors
type ErrorKind int

const (
	// Invalid kernel or policy configuration errors
	ErrKindConfig ErrorKind = iota
	// Resource exhaustion errors (allocation, device limits)
	ErrKindResource
	// Kernel execution errors
	ErrKindExecution
	// Dependency graph errors
	ErrKindGraph
	// Memory management errors
	ErrKindMemory
)

// Error represents a structured error with context
type Error struct {
	Kind    ErrorKind
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kern %s error in %s: %s (caused by: %v)",
			e.Kind.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("kern %s error in %s: %s",
		e.Kind.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error kind as a string
func (k ErrorKind) String() string {
	switch k {
	case ErrKindConfig:
		return "Config"
	case ErrKindResource:
		return "Resource"
	case ErrKindExecution:
		return "Execution"
	case ErrKindGraph:
		return "Graph"
	case ErrKindMemory:
		return "Memory"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewConfigError creates an invalid configuration error
func NewConfigError(op string, message string) error {
	return &Error{
		Kind:    ErrKindConfig,
		Op:      op,
		Message: message,
	}
}

// NewResourceError creates a resource exhaustion error
func NewResourceError(op string, message string, err error) error {
	return &Error{
		Kind:    ErrKindResource,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &Error{
		Kind:    ErrKindExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewGraphError creates a dependency graph error
func NewGraphError(op string, message string) error {
	return &Error{
		Kind:    ErrKindGraph,
		Op:      op,
		Message: message,
	}
}

// NewMemoryError creates a memory management error
func NewMemoryError(op string, message string, err error) error {
	return &Error{
		Kind:    ErrKindMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Common pre-defined errors

var (
	// ErrInvalidSize indicates an invalid size parameter
	ErrInvalidSize = NewConfigError("Allocate", "size must be positive")

	// ErrDoubleFree indicates a double free attempt
	ErrDoubleFree = NewMemoryError("Deallocate", "double free detected", nil)

	// ErrStreamClosed indicates a submit to a destroyed stream
	ErrStreamClosed = NewExecutionError("Submit", "stream is closed", nil)
)

// IsConfigError checks if an error is an invalid configuration error
func IsConfigError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == ErrKindConfig
	}
	return false
}

// IsResourceError checks if an error is a resource exhaustion error
func IsResourceError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == ErrKindResource
	}
	return false
}

// IsGraphError checks if an error is a dependency graph error
func IsGraphError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == ErrKindGraph
	}
	return false
}
