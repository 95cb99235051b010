// Package errors provides structured error types for the splitter pipeline.
// All errors include a category, code, message, and fatal flag so that the
// driver can decide whether a failure aborts the run or is only reported.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by pipeline stage.
type ErrorCategory string

const (
	ErrCategoryInput    ErrorCategory = "INPUT"
	ErrCategoryRecord   ErrorCategory = "RECORD"
	ErrCategorySink     ErrorCategory = "SINK"
	ErrCategoryIO       ErrorCategory = "IO"
	ErrCategoryArchive  ErrorCategory = "ARCHIVE"
	ErrCategoryConfig   ErrorCategory = "CONFIG"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Input codes
	CodeInputUnavailable = "INPUT_UNAVAILABLE"
	CodeInputReadFailed  = "INPUT_READ_FAILED"

	// Record codes
	CodeMalformedRecord = "MALFORMED_RECORD"

	// Sink codes
	CodeSinkOpenFailed = "SINK_OPEN_FAILED"
	CodeInvalidKey     = "INVALID_KEY"
	CodeSinkClosed     = "SINK_CLOSED"

	// IO codes
	CodeReadFailed   = "READ_FAILED"
	CodeAppendFailed = "APPEND_FAILED"

	// Archive codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"

	// Config codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// SplitterError is the structured error type used throughout the system.
type SplitterError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
	Fatal    bool
}

// Error returns a formatted error string.
func (e *SplitterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *SplitterError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *SplitterError) Is(target error) bool {
	var t *SplitterError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new SplitterError.
func New(category ErrorCategory, code, message string) *SplitterError {
	return &SplitterError{
		Category: category,
		Code:     code,
		Message:  message,
		Fatal:    isFatal(category, code),
	}
}

// Wrap creates a new SplitterError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *SplitterError {
	return &SplitterError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
		Fatal:    isFatal(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *SplitterError) WithDetails(details map[string]interface{}) *SplitterError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsFatal checks whether an error (or its chain) aborts the whole run.
func IsFatal(err error) bool {
	var se *SplitterError
	if errors.As(err, &se) {
		return se.Fatal
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a SplitterError.
func GetCategory(err error) ErrorCategory {
	var se *SplitterError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a SplitterError.
func GetCode(err error) string {
	var se *SplitterError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// isFatal reports which failures stop the pipeline. Only pre-flight input
// problems and bad configuration do; everything else is skip-and-report.
func isFatal(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryInput && code == CodeInputUnavailable:
		return true
	case category == ErrCategoryConfig:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewInputError(code, message string, cause error) *SplitterError {
	return Wrap(ErrCategoryInput, code, message, cause)
}

func NewSinkError(code, message string, cause error) *SplitterError {
	return Wrap(ErrCategorySink, code, message, cause)
}

func NewIOError(code, message string, cause error) *SplitterError {
	return Wrap(ErrCategoryIO, code, message, cause)
}

func NewArchiveError(code, message string, cause error) *SplitterError {
	return Wrap(ErrCategoryArchive, code, message, cause)
}

func NewConfigError(message string, cause error) *SplitterError {
	return Wrap(ErrCategoryConfig, CodeInvalidConfig, message, cause)
}

func NewInternalError(message string, cause error) *SplitterError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
