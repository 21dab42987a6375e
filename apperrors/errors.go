// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperrors

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code returned to clients.
type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeNotAcceptingVotes  Code = "NOT_ACCEPTING_VOTES"
	CodeCampaignClosed     Code = "CAMPAIGN_CLOSED"
	CodeCandidateNotFound  Code = "CANDIDATE_NOT_FOUND"
	CodeElectorNotEligible Code = "ELECTOR_NOT_ELIGIBLE"
	CodeQuotaExhausted     Code = "QUOTA_EXHAUSTED"
	CodeCandidatesLocked   Code = "CANDIDATES_LOCKED"
	CodeCampaignLocked     Code = "CAMPAIGN_LOCKED"
	CodeRetryable          Code = "RETRYABLE"
	CodeStoreUnavailable   Code = "STORE_UNAVAILABLE"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
)

// Reasons attached to CodeNotAcceptingVotes under the "reason" metadata key.
const (
	ReasonNotStarted = "not_started"
	ReasonNotEnabled = "not_enabled"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument,
		CodeInvalidTransition,
		CodeNotAcceptingVotes,
		CodeCampaignClosed,
		CodeCandidateNotFound,
		CodeQuotaExhausted:
		return http.StatusBadRequest

	case CodeNotFound:
		return http.StatusNotFound

	case CodeRetryable, CodeCandidatesLocked, CodeCampaignLocked:
		return http.StatusConflict

	case CodeUnauthorized:
		return http.StatusUnauthorized

	case CodeForbidden, CodeElectorNotEligible:
		return http.StatusForbidden

	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a client may resubmit the identical request.
func (c Code) Retryable() bool {
	return c == CodeRetryable
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code
	Message  string            // Client-safe message
	Metadata map[string]string // Additional context for clients
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with client-visible metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first domain error in err's chain,
// or CodeUnknown when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
