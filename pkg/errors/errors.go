// Package errors provides custom error types for the taxsync system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Standard library helpers, re-exported so callers need one import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the taxsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrLocked indicates that another reconciliation holds the derived directory lock
	ErrLocked = errors.New("derived directory locked")

	// ErrPartialSync indicates that some mutations of a run failed
	ErrPartialSync = errors.New("partial sync")

	// ErrDrift indicates that the derived set does not match the source set
	ErrDrift = errors.New("derived set out of sync")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// PathError reports a source or derived directory that cannot be read.
// It is fatal: a run that hits it performs no mutation.
type PathError struct {
	Role string // "source" or "derived"
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("%s directory %s: %v", e.Role, e.Path, e.Err)
	}
	return fmt.Sprintf("directory %s: %v", e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PathError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *PathError) Is(target error) bool {
	return target == ErrNotFound && errors.Is(e.Err, fs.ErrNotExist)
}

// NewPathError creates a new PathError
func NewPathError(role, path string, err error) *PathError {
	return &PathError{Role: role, Path: path, Err: err}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "yaml"
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// WriteError reports a derived record that could not be written.
type WriteError struct {
	ID   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write record %s to %s: %v", e.ID, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewWriteError creates a new WriteError
func NewWriteError(id, path string, err error) *WriteError {
	return &WriteError{ID: id, Path: path, Err: err}
}

// DeleteError reports a derived record file that could not be removed.
type DeleteError struct {
	ID   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete record %s at %s: %v", e.ID, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *DeleteError) Unwrap() error {
	return e.Err
}

// NewDeleteError creates a new DeleteError
func NewDeleteError(id, path string, err error) *DeleteError {
	return &DeleteError{ID: id, Path: path, Err: err}
}

// SyncError aggregates the per-record failures of one reconciliation run.
type SyncError struct {
	Failures []error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	ids := e.IDs()
	if len(ids) > 0 {
		return fmt.Sprintf("sync error: %d mutation(s) failed (records: %s)", len(e.Failures), strings.Join(ids, ", "))
	}
	return fmt.Sprintf("sync error: %d mutation(s) failed", len(e.Failures))
}

// Unwrap returns every collected failure so errors.Is and errors.As see them.
func (e *SyncError) Unwrap() []error {
	return e.Failures
}

// Is implements errors.Is support
func (e *SyncError) Is(target error) bool {
	return target == ErrPartialSync
}

// IDs returns the record ids of the collected failures in failure order.
func (e *SyncError) IDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		var we *WriteError
		var de *DeleteError
		switch {
		case errors.As(f, &we):
			ids = append(ids, we.ID)
		case errors.As(f, &de):
			ids = append(ids, de.ID)
		}
	}
	return ids
}

// NewSyncError creates a SyncError, or returns nil when there are no failures.
func NewSyncError(failures []error) *SyncError {
	if len(failures) == 0 {
		return nil
	}
	return &SyncError{Failures: failures}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "lock", "listen"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsPartialSync checks if an error reports failed mutations of a run
func IsPartialSync(err error) bool {
	return errors.Is(err, ErrPartialSync)
}

// IsLocked checks if an error is a lock contention error
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}

// IsDrift checks if an error reports an out-of-sync derived set
func IsDrift(err error) bool {
	return errors.Is(err, ErrDrift)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
