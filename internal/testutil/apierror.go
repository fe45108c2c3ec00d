package testutil

import (
	"fmt"

	"github.com/aws/smithy-go"
)

// APIError implements smithy.APIError for tests that need a service error code.
type APIError struct {
	Code    string
	Message string
}

// NewAPIError creates an APIError with the given code.
func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}

// ErrorCode returns the service error code.
func (e *APIError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the service error message.
func (e *APIError) ErrorMessage() string {
	return e.Message
}

// ErrorFault reports the error as a client fault.
func (e *APIError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultClient
}

var _ smithy.APIError = (*APIError)(nil)
