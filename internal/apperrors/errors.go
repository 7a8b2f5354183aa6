package apperrors

import (
	"errors"
	"fmt"
)

// AppError is a tagged error carrying a stable code and the HTTP status
// the transport layer should map it to.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
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

// WithError returns a copy of the error with an underlying cause attached.
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// WithMessage returns a copy of the error with a more specific message.
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: e.StatusCode,
		Err:        e.Err,
	}
}

// Is makes errors.Is match two AppErrors by code, so sentinel values below
// can be used as targets regardless of attached causes or messages.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

var (
	ErrInvalidInput = &AppError{
		Code:       "INVALID_INPUT",
		Message:    "Invalid or undecodable image",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrUnknownIdentity = &AppError{
		Code:       "UNKNOWN_IDENTITY",
		Message:    "Identity does not exist",
		StatusCode: 404,
	}

	ErrUnknownImage = &AppError{
		Code:       "UNKNOWN_IMAGE",
		Message:    "Gallery image does not exist for this identity",
		StatusCode: 404,
	}

	ErrDuplicatePath = &AppError{
		Code:       "DUPLICATE_PATH",
		Message:    "Gallery image path is already in use",
		StatusCode: 409,
	}

	ErrExtractionUnavailable = &AppError{
		Code:       "EXTRACTION_UNAVAILABLE",
		Message:    "Embedding service is unreachable",
		StatusCode: 503,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}
)
