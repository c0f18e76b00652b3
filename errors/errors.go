package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type of the export engine.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Status is the upstream HTTP status, when the error came from a remote call.
	Status int `json:"status,omitempty"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// APIError reports a remote call that did not succeed within the retry budget.
func APIError(url string, status int, cause error) *AppError {
	msg := fmt.Sprintf("request to %s failed", url)
	if status > 0 {
		msg = fmt.Sprintf("request to %s failed with HTTP %d", url, status)
	}
	return &AppError{
		Code: ErrCodeAPI, Message: msg, Status: status,
		Details: map[string]any{"url": url}, Cause: cause,
	}
}

// ProtocolError reports a response or query whose shape the engine cannot handle.
func ProtocolError(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeProtocol, Message: fmt.Sprintf(format, args...)}
}

// ConversionError reports a field value that could not be converted.
func ConversionError(field string, value any, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConversion, Message: fmt.Sprintf("cannot convert %s value %v", field, value),
		Details: map[string]any{"field": field, "value": value}, Cause: cause,
	}
}

// ConfigurationError reports an invalid declarative configuration entry.
func ConfigurationError(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// CredentialsError reports a rejection by the token endpoint.
func CredentialsError(identity string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCredentials, Message: fmt.Sprintf("token endpoint rejected identity %q", identity),
		Details: map[string]any{"identity": identity}, Cause: cause,
	}
}

// StorageError reports a failure to read or write a local file.
func StorageError(path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: fmt.Sprintf("storage operation on %s failed", path),
		Details: map[string]any{"path": path}, Cause: cause,
	}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "an unexpected error occurred", Cause: cause}
}

// --- Inspection ---

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether any AppError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		appErr, ok := AsAppError(err)
		if !ok {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}
