package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a webmin error code.
type ErrorCode string

const (
	ErrDirectiveParse        ErrorCode = "DIRECTIVE_PARSE"        // malformed directive syntax
	ErrUnrecognizedDirective ErrorCode = "UNRECOGNIZED_DIRECTIVE" // bare token that is not a known directive
	ErrUnknownOption         ErrorCode = "UNKNOWN_OPTION"         // override names an option outside the table
	ErrInvalidOptionValue    ErrorCode = "INVALID_OPTION_VALUE"   // override value cannot be coerced
	ErrResourceNotFound      ErrorCode = "RESOURCE_NOT_FOUND"     // non-fatal
	ErrCompressionFailure    ErrorCode = "COMPRESSION_FAILURE"    // fatal for the current document
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"
	ErrNotFound              ErrorCode = "NOT_FOUND"
	ErrCancelled             ErrorCode = "CANCELLED"
	ErrInternal              ErrorCode = "INTERNAL"
)

// MinifyError represents a structured error with code and details.
type MinifyError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *MinifyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *MinifyError) Unwrap() error {
	return e.Err
}

// NewDirectiveParse creates an error for directive text that cannot be tokenized.
func NewDirectiveParse(token, reason string) *MinifyError {
	return &MinifyError{
		Code:    ErrDirectiveParse,
		Message: fmt.Sprintf("cannot parse directive token %q: %s", token, reason),
		Details: map[string]any{"token": token},
	}
}

// NewUnrecognizedDirective creates an error for a bare token that is not a directive keyword.
func NewUnrecognizedDirective(token string) *MinifyError {
	return &MinifyError{
		Code:    ErrUnrecognizedDirective,
		Message: fmt.Sprintf("unrecognized directive %q", token),
		Details: map[string]any{"token": token},
	}
}

// NewUnknownOption creates an error for an override of an option that cannot be overridden.
func NewUnknownOption(key string) *MinifyError {
	return &MinifyError{
		Code:    ErrUnknownOption,
		Message: fmt.Sprintf("unknown option %q", key),
		Details: map[string]any{"option": key},
	}
}

// NewInvalidOptionValue creates an error for an override value of the wrong type.
func NewInvalidOptionValue(key, value, want string) *MinifyError {
	return &MinifyError{
		Code:    ErrInvalidOptionValue,
		Message: fmt.Sprintf("invalid value %q for option %q: want %s", value, key, want),
		Details: map[string]any{"option": key, "value": value},
	}
}

// NewResourceNotFound creates an error for an external reference that could not be resolved.
func NewResourceNotFound(url string) *MinifyError {
	return &MinifyError{
		Code:    ErrResourceNotFound,
		Message: fmt.Sprintf("resource not found: %s", url),
		Details: map[string]any{"url": url},
	}
}

// NewCompressionFailure wraps a compressor or artifact write failure.
func NewCompressionFailure(source string, err error) *MinifyError {
	msg := "compression failed"
	if err != nil {
		msg = fmt.Sprintf("compression failed for %s: %v", source, err)
	}
	return &MinifyError{
		Code:    ErrCompressionFailure,
		Message: msg,
		Details: map[string]any{"source": source},
		Err:     err,
	}
}

// NewInvalidRequest creates an error for invalid request parameters.
func NewInvalidRequest(msg string) *MinifyError {
	return &MinifyError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewNotFound creates an error for a missing run or document.
func NewNotFound(identifier string) *MinifyError {
	return &MinifyError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewCancelled creates an error for an operation stopped by context cancellation.
func NewCancelled(operation string) *MinifyError {
	return &MinifyError{
		Code:    ErrCancelled,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates an error for unexpected internal errors.
func NewInternal(err error) *MinifyError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &MinifyError{
		Code:    ErrInternal,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err, or any error it wraps or joins, is a MinifyError with the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if mErr, ok := err.(*MinifyError); ok && mErr.Code == code {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if Is(e, code) {
				return true
			}
		}
		return false
	default:
		return Is(stderrors.Unwrap(err), code)
	}
}

// All flattens joined and wrapped errors into the MinifyErrors they carry.
func All(err error) []*MinifyError {
	if err == nil {
		return nil
	}
	if x, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*MinifyError
		for _, e := range x.Unwrap() {
			out = append(out, All(e)...)
		}
		return out
	}
	var mErr *MinifyError
	if stderrors.As(err, &mErr) {
		return []*MinifyError{mErr}
	}
	return nil
}
