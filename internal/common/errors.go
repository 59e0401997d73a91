package common

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeConfig        = "CONFIG_ERROR"
	CodeProfile       = "PROFILE_ERROR"
	CodeCollaborator  = "COLLABORATOR_FAILURE"
	CodeSerialization = "SERIALIZATION_FAILURE"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrCollaborator  = errors.New("collaborator failure")
	ErrSerialization = errors.New("serialization failure")
	ErrUnsupported   = errors.New("unsupported input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CollaboratorFailure marks err as a failure of the rasterizer or OCR engine.
// The whole document fails; the batch continues.
func CollaboratorFailure(message string, err error) error {
	if err == nil {
		return nil
	}
	return NewAppError(CodeCollaborator, message, errors.Join(ErrCollaborator, err))
}

// SerializationFailure marks err as a failure of the output step of one document.
func SerializationFailure(message string, err error) error {
	if err == nil {
		return nil
	}
	return NewAppError(CodeSerialization, message, errors.Join(ErrSerialization, err))
}

func IsCollaboratorFailure(err error) bool  { return errors.Is(err, ErrCollaborator) }
func IsSerializationFailure(err error) bool { return errors.Is(err, ErrSerialization) }

// ErrorCode returns the code of the outermost AppError in err's chain, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
