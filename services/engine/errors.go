package engine

import (
	"errors"
	"fmt"
)

// Error codes for the workflow engine taxonomy.
const (
	CodeInvalidTransition  = "invalidTransition"
	CodeRoomUnavailable    = "roomUnavailable"
	CodeAmbiguousIntent    = "ambiguousIntent"
	CodeExtractionConflict = "extractionConflict"
	CodeProviderFailure    = "providerFailure"
)

// WorkflowError is a typed engine error carrying a stable code.
type WorkflowError struct {
	Code    string
	Message string
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewInvalidTransition(format string, args ...interface{}) error {
	return &WorkflowError{Code: CodeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func NewRoomUnavailable(format string, args ...interface{}) error {
	return &WorkflowError{Code: CodeRoomUnavailable, Message: fmt.Sprintf(format, args...)}
}

func NewAmbiguousIntent(format string, args ...interface{}) error {
	return &WorkflowError{Code: CodeAmbiguousIntent, Message: fmt.Sprintf(format, args...)}
}

func NewExtractionConflict(format string, args ...interface{}) error {
	return &WorkflowError{Code: CodeExtractionConflict, Message: fmt.Sprintf(format, args...)}
}

func NewProviderFailure(format string, args ...interface{}) error {
	return &WorkflowError{Code: CodeProviderFailure, Message: fmt.Sprintf(format, args...)}
}

func hasCode(err error, code string) bool {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Code == code
	}
	return false
}

func IsInvalidTransition(err error) bool  { return hasCode(err, CodeInvalidTransition) }
func IsRoomUnavailable(err error) bool    { return hasCode(err, CodeRoomUnavailable) }
func IsAmbiguousIntent(err error) bool    { return hasCode(err, CodeAmbiguousIntent) }
func IsExtractionConflict(err error) bool { return hasCode(err, CodeExtractionConflict) }
func IsProviderFailure(err error) bool    { return hasCode(err, CodeProviderFailure) }
