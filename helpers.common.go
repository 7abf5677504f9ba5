package main

import (
	"context"
	"errors"
)

type ContextKey string

const (
	RequestIDPrefix  string     = "r"
	ContextRequestID ContextKey = "request.id"
)

// FailureKind classifies every failure a store operation or an api
// call can surface, so callers can decide between an inline message,
// a generic retry prompt or a session reset.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	// FailureUnauthenticated is a local precondition failure, raised
	// before any network call when the session is anonymous.
	FailureUnauthenticated
	// FailureUnauthorized maps a 401 response. It is also a process-wide
	// session invalidation signal.
	FailureUnauthorized
	// FailureForbidden maps a 403 response, typically a csrf rejection.
	FailureForbidden
	// FailureNotFound maps a 404 response.
	FailureNotFound
	// FailureValidation maps any other 4xx response and local input
	// rejections. Its message is meant to be rendered verbatim.
	FailureValidation
	// FailureServer maps any 5xx response.
	FailureServer
	// FailureNetwork covers transport-level errors.
	FailureNetwork
)

// String provides the human readable name of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureUnauthenticated:
		return "unauthenticated"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureForbidden:
		return "forbidden"
	case FailureNotFound:
		return "not found"
	case FailureValidation:
		return "validation rejected"
	case FailureServer:
		return "server error"
	case FailureNetwork:
		return "network error"
	}
	return "unknown"
}

// Failure is the typed error returned by the api client and the stores.
// The message is safe to render to the user as-is.
type Failure struct {
	Kind    FailureKind
	Message string
	cause   error
}

// NewFailure provides a failure of the given kind with a renderable message.
func NewFailure(kind FailureKind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, cause: cause}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.cause != nil {
		return f.Kind.String() + ": " + f.Message + ": " + f.cause.Error()
	}
	return f.Kind.String() + ": " + f.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (f *Failure) Unwrap() error {
	return f.cause
}

// KindOf extracts the failure kind of an error. Any error outside
// the taxonomy reports FailureUnknown.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureUnknown
}

// IsFailure tells if the error carries the given failure kind.
func IsFailure(err error, kind FailureKind) bool {
	return KindOf(err) == kind
}

// FailureMessage provides the renderable message of an error. Errors
// outside the taxonomy fall back to their raw error string.
func FailureMessage(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val := ctx.Value(contextKey); val != nil {
		return val.(string)
	}
	return ""
}
