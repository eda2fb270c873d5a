package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes produced by the request lifecycle engine.
const (
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeValidationError        = "VALIDATION_ERROR"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeNumberConflict         = "NUMBER_CONFLICT"
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeInternalError          = "INTERNAL_ERROR"
)

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidationError,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewInvalidTransitionError reports an attempted lifecycle transition that is
// not legal from the request's current status.
func NewInvalidTransitionError(operation string, status RequestStatus) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s a request in status %q", operation, status),
	}
}

// NewConcurrentModificationError reports a transition that lost a race against
// another transition on the same request. Callers may re-read and retry.
func NewConcurrentModificationError(requestID uint) *AppError {
	return &AppError{
		Code:    CodeConcurrentModification,
		Message: fmt.Sprintf("request %d was modified concurrently", requestID),
	}
}

// NewNumberConflictError reports a request-number allocation collision. This is
// fatal to the creation attempt; the caller retries with a fresh allocation.
func NewNumberConflictError(number string, err error) *AppError {
	return &AppError{
		Code:    CodeNumberConflict,
		Message: fmt.Sprintf("request number %s already exists", number),
		Err:     err,
	}
}

// respondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
