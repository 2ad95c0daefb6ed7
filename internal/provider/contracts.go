// Package provider defines the client contracts the pipeline depends on and
// the service error taxonomy shared by all backends.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// OCRClient extracts raw text from one source file.
type OCRClient interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

// LLMClient cleans a batch of raw texts. Implementations must preserve order
// and return exactly one cleaned text per input.
type LLMClient interface {
	CleanBatch(ctx context.Context, texts []string, systemPrompt string, temperature float64) ([]string, error)
}

// ErrorKind classifies a service failure for retry decisions.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "UNAUTHORIZED" // bad/missing credentials
	KindRateLimited  ErrorKind = "RATE_LIMITED" // 429
	KindTimeout      ErrorKind = "TIMEOUT"      // request deadline exceeded
	KindMalformed    ErrorKind = "MALFORMED"    // bad input or unusable response
	KindUnknown      ErrorKind = "UNKNOWN"      // 5xx and transport failures
)

// ServiceError is a classified failure from an external service call.
type ServiceError struct {
	Kind   ErrorKind
	Op     string // e.g. "ocr.extract", "llm.clean"
	Status int    // HTTP status if any, 0 otherwise
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the operation can help.
// Auth and validation failures never benefit from a retry.
func (e *ServiceError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindUnknown:
		return true
	default:
		return false
	}
}

// NewServiceError builds a classified error for an operation.
func NewServiceError(kind ErrorKind, op string, status int, err error) *ServiceError {
	return &ServiceError{Kind: kind, Op: op, Status: status, Err: err}
}

// KindForStatus maps an HTTP status code to an error kind.
// 429/5xx are retryable classes; auth and validation codes are not.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindUnauthorized
	case status == 408:
		return KindTimeout
	case status == 429:
		return KindRateLimited
	case status >= 400 && status < 500:
		return KindMalformed
	default:
		return KindUnknown
	}
}

// IsRetryable reports whether err (or anything it wraps) is a retryable
// service failure. Unclassified errors are treated as non-retryable.
func IsRetryable(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}
