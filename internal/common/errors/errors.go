// internal/common/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Terminal on first attempt: never retried by the consumer.
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeDuplicateCorrelation ErrorCode = "DUPLICATE_CORRELATION"

	// Retryable: the consumer schedules a tier-queue redelivery.
	ErrCodeDeliveryFailed  ErrorCode = "DELIVERY_FAILED"
	ErrCodeRepositoryError ErrorCode = "REPOSITORY_ERROR"
	ErrCodeBrokerError     ErrorCode = "BROKER_ERROR"
	ErrCodeDirectoryLookup ErrorCode = "DIRECTORY_LOOKUP_FAILED"
	ErrCodeProviderError   ErrorCode = "PROVIDER_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError is a structured application error carrying a retry verdict.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewValidationFailedError creates a non-retryable input validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable error for missing recipients or
// undeliverable addresses.
func NewNotFoundError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "No deliverable recipient",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateCorrelationError flags a unique-constraint conflict on the
// correlation id. The orchestrator resolves it by re-reading the winning row,
// so the error itself is never retried.
func NewDuplicateCorrelationError(correlationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateCorrelation,
		Message:   "Delivery request already exists for correlation id",
		Details:   fmt.Sprintf("correlationId: %s", correlationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError marks an all-channels-failed outcome where at least
// one provider error was retryable. The consumer uses this marker to schedule
// a tier-queue retry.
func NewDeliveryFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "All attempted channels failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRepositoryError wraps a persistence failure as retryable infrastructure.
func NewRepositoryError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRepositoryError,
		Message:   "Repository operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBrokerError wraps a publish/consume failure as retryable infrastructure.
func NewBrokerError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBrokerError,
		Message:   "Broker operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDirectoryLookupError wraps a directory service failure as retryable.
func NewDirectoryLookupError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryLookup,
		Message:   "Directory lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderError normalizes a channel provider failure. The dispatcher
// decides retryability from the provider's error class.
func NewProviderError(channel string, retryable bool, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderError,
		Message:   "Channel provider call failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: retryable,
		Metadata:  map[string]interface{}{"channel": channel},
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure; the consumer fails toward
// retry rather than silent drop.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected internal error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf extracts the error code, defaulting to INTERNAL_ERROR for
// non-standard errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether the consumer should schedule a tier retry for
// this error. Unknown errors are treated as retryable infrastructure
// failures.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return true
}
