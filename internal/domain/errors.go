package domain

import "fmt"

// ErrorKind classifies a request failure for the HTTP boundary
type ErrorKind string

const (
	// ErrInput is a missing or malformed client field, never retried
	ErrInput ErrorKind = "input_error"
	// ErrUpstream is a remote model failure, including timeouts
	ErrUpstream ErrorKind = "upstream_error"
	// ErrInternal is an unexpected failure in gateway bookkeeping
	ErrInternal ErrorKind = "internal_error"
)

// Error is a classified gateway error
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewInputError reports a client input error
func NewInputError(message string) *Error {
	return &Error{Kind: ErrInput, Message: message}
}

// NewUpstreamError reports a remote model failure
func NewUpstreamError(message string, err error) *Error {
	return &Error{Kind: ErrUpstream, Message: message, Err: err}
}

// NewInternalError reports an unexpected gateway failure
func NewInternalError(message string, err error) *Error {
	return &Error{Kind: ErrInternal, Message: message, Err: err}
}
