package operations

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies a pipeline error by how the run reacts to it
type ErrorType string

const (
	// ErrorTypeConfiguration degrades a step to a safe default
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeInput stops the run
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeItem affects one field or one sample group
	ErrorTypeItem ErrorType = "item"
	// ErrorTypeRemote affects one batch of remote requests
	ErrorTypeRemote ErrorType = "remote"
	// ErrorTypeExport is handled by writing the fallback file
	ErrorTypeExport ErrorType = "export"
	// ErrorTypeTimeout ends one step; the steps that do not need it still run
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeCancellation stops the run
	ErrorTypeCancellation ErrorType = "cancellation"
)

// OperationError represents a pipeline error with its category
type OperationError struct {
	Type    ErrorType              `json:"type"`
	Step    string                 `json:"step,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"cause,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Fatal reports whether the error stops the run
func (e *OperationError) Fatal() bool {
	return e != nil && (e.Type == ErrorTypeInput || e.Type == ErrorTypeCancellation)
}

// NewConfigurationError creates an error for a setting that made a step fall
// back to its default behaviour
func NewConfigurationError(step, message string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeConfiguration,
		Step:    step,
		Message: message,
		Cause:   cause,
	}
}

// NewInputError creates an error for unreadable or invalid input
func NewInputError(step, message string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeInput,
		Step:    step,
		Message: message,
		Cause:   cause,
	}
}

// NewItemError creates an error for a single field or group
func NewItemError(step, item string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeItem,
		Step:    step,
		Message: fmt.Sprintf("%s could not be processed", item),
		Cause:   cause,
		Context: map[string]interface{}{
			"item": item,
		},
	}
}

// NewRemoteError creates an error for a failed remote request
func NewRemoteError(step, message string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeRemote,
		Step:    step,
		Message: message,
		Cause:   cause,
	}
}

// NewExportError creates an error for a failed workbook write
func NewExportError(step, path string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeExport,
		Step:    step,
		Message: fmt.Sprintf("failed to write %s", path),
		Cause:   cause,
		Context: map[string]interface{}{
			"path": path,
		},
	}
}

// NewTimeoutError creates an error for a step that ran past its timeout
func NewTimeoutError(step, message string, timeout time.Duration, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeTimeout,
		Step:    step,
		Message: message,
		Cause:   cause,
		Context: map[string]interface{}{
			"timeout": timeout.String(),
		},
	}
}

// NewCancellationError creates a cancellation error
func NewCancellationError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Message: "operation was cancelled",
		Cause:   cause,
	}
}

// GetErrorType returns the category of err. Context errors count as
// cancellation; anything else unclassified is an item error.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeCancellation
	}
	return ErrorTypeItem
}

// IsFatal reports whether err stops the run
func IsFatal(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeInput, ErrorTypeCancellation:
		return true
	}
	return false
}

// WrapError attaches a step to err. OperationErrors keep their category;
// other errors are classified by GetErrorType.
func WrapError(err error, step string, message string) *OperationError {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Step == "" {
			opErr.Step = step
		}
		return opErr
	}

	return &OperationError{
		Type:    GetErrorType(err),
		Step:    step,
		Message: message,
		Cause:   err,
	}
}

// ErrorList collects the errors caught during one run
type ErrorList struct {
	Errors []*OperationError `json:"errors"`
}

// Error implements the error interface
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors: %d errors occurred", len(e.Errors))
}

// Add adds an error to the list
func (e *ErrorList) Add(err *OperationError) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// GetByStep returns the errors of one step
func (e *ErrorList) GetByStep(step string) []*OperationError {
	var stepErrors []*OperationError
	for _, err := range e.Errors {
		if err.Step == step {
			stepErrors = append(stepErrors, err)
		}
	}
	return stepErrors
}

// GetByType returns the errors of one category
func (e *ErrorList) GetByType(errType ErrorType) []*OperationError {
	var typed []*OperationError
	for _, err := range e.Errors {
		if err.Type == errType {
			typed = append(typed, err)
		}
	}
	return typed
}
