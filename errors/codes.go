package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Transport errors (retryable until the retry budget is spent)
const (
	// ErrCodeAPI indicates a remote call that failed with a non-2xx status or
	// a transport failure after the retry policy was exhausted.
	ErrCodeAPI ErrorCode = "API_ERROR"
	// ErrCodeTimeout indicates the remote call timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeConnectionFailed indicates a failed connection to a remote endpoint.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
)

// Fatal errors (configuration bugs or bad data, never retried)
const (
	// ErrCodeProtocol indicates a response or query text with an unexpected shape.
	ErrCodeProtocol ErrorCode = "PROTOCOL_ERROR"
	// ErrCodeConversion indicates a value that could not be converted, such as
	// an unparseable validity date.
	ErrCodeConversion ErrorCode = "CONVERSION_ERROR"
	// ErrCodeConfiguration indicates an invalid declarative configuration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeCredentials indicates the token endpoint rejected the client.
	ErrCodeCredentials ErrorCode = "CREDENTIALS_ERROR"
	// ErrCodeStorage indicates a local scratch or output file failure.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:          true,
	ErrCodeConnectionFailed: true,
	ErrCodeAPI:              false,
	ErrCodeCredentials:      false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
