package util

import "errors"

// DomainError is an expected, user-recoverable rejection with a stable code
type DomainError struct {
	Code    string
	Message string
}

// NewDomainError creates a coded rejection
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	return e.Message
}

// DomainError marks the error as a user-facing outcome rather than a failure
func (e *DomainError) DomainError() bool {
	return true
}

// ErrorCode returns the code of a wrapped DomainError, or "" for any other error
func ErrorCode(err error) string {
	var e *DomainError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsDomainError reports whether err wraps a DomainError
func IsDomainError(err error) bool {
	var e *DomainError
	return errors.As(err, &e)
}
