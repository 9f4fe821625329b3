package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"kpidash/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code of a wrapped AppError
// is preserved, domain sentinels are mapped to their code.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code of the outermost AppError, the code mapped
// from a domain sentinel, or INTERNAL_ERROR
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return codeFromDomain(err)
}

// Predefined error codes
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeFileNotFound     = "FILE_NOT_FOUND"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidFile      = "INVALID_FILE"
	CodeEmptyData        = "EMPTY_DATA"
	CodeNoNumericColumns = "NO_NUMERIC_COLUMNS"
	CodeInvalidDateRange = "INVALID_DATE_RANGE"
	CodeInsufficientData = "INSUFFICIENT_DATA"
)

func codeFromDomain(err error) string {
	switch {
	case stderrors.Is(err, core.ErrFileNotFound), stderrors.Is(err, core.ErrNotAFile):
		return CodeFileNotFound
	case stderrors.Is(err, core.ErrFileTooLarge):
		return CodeFileTooLarge
	case stderrors.Is(err, core.ErrUnsupportedFormat), stderrors.Is(err, core.ErrCorruptFile), stderrors.Is(err, core.ErrNoSheets):
		return CodeInvalidFile
	case stderrors.Is(err, core.ErrEmptyTable), stderrors.Is(err, core.ErrNoColumns):
		return CodeEmptyData
	case stderrors.Is(err, core.ErrNoNumericColumns):
		return CodeNoNumericColumns
	case stderrors.Is(err, core.ErrInvalidDateRange):
		return CodeInvalidDateRange
	case stderrors.Is(err, core.ErrColumnNotFound):
		return CodeNotFound
	case stderrors.Is(err, core.ErrNotEnoughData):
		return CodeInsufficientData
	}
	return CodeInternalError
}

// HTTPStatus maps an error to the status code handlers should answer with
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeValidationError, CodeInvalidInput, CodeInvalidDateRange:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeFileNotFound, CodeFileTooLarge, CodeInvalidFile, CodeEmptyData, CodeNoNumericColumns:
		// the workbook behind the dashboard is unusable
		return http.StatusServiceUnavailable
	case CodeInsufficientData:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// UserMessage is the message shown on the dashboard for an error
func UserMessage(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
