package common

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")

	// ErrTransient marks failures worth retrying (rate limits, timeouts, network blips).
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks failures retrying cannot fix (malformed input, schema violation).
	ErrPermanent = errors.New("permanent failure")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// StatusCode maps the error taxonomy onto gRPC codes.
func StatusCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, ErrConflict):
		return codes.Aborted
	case errors.Is(err, ErrTransient):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// ItemFailure is one dropped unit of work inside a larger run.
type ItemFailure struct {
	Item string
	Err  error
}

// PartialFailure collects item failures that did not stop the surrounding run.
type PartialFailure struct {
	Scope    string
	Failures []ItemFailure
}

func (p *PartialFailure) Add(item string, err error) {
	if err == nil {
		return
	}
	p.Failures = append(p.Failures, ItemFailure{Item: item, Err: err})
}

func (p *PartialFailure) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Failures)
}

// Err returns nil when nothing failed so callers can return it directly.
func (p *PartialFailure) Err() error {
	if p.Len() == 0 {
		return nil
	}
	return p
}

func (p *PartialFailure) Error() string {
	parts := make([]string, 0, len(p.Failures))
	for _, f := range p.Failures {
		parts = append(parts, f.Item+": "+f.Err.Error())
	}
	return fmt.Sprintf("%s: %d item(s) failed: %s", p.Scope, len(p.Failures), strings.Join(parts, "; "))
}

func (p *PartialFailure) Unwrap() []error {
	errs := make([]error, 0, len(p.Failures))
	for _, f := range p.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
