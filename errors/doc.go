// Package errors provides the structured error type shared by the export
// engine. Every failure that aborts an export carries an ErrorCode that
// tells the driver which part of the taxonomy it belongs to (transport,
// protocol shape, type conversion, configuration or credentials) and
// whether the failing call may be retried.
package errors
