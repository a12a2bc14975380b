// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the error taxonomy surfaced by the federation engine.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"
)

// Error types
const (
	// ErrInvalidArgument is returned when a request fails validation
	ErrInvalidArgument = "invalid_argument"

	// ErrNotFound is returned when a resource or login session does not exist
	ErrNotFound = "not_found"

	// ErrUnauthorized is returned on state, anti-forgery or PKCE mismatch
	ErrUnauthorized = "unauthorized"

	// ErrForbidden is returned when a federated login does not match the account
	ErrForbidden = "forbidden"

	// ErrConnectivity is returned when an upstream provider cannot be reached
	// or answers with a non-success status
	ErrConnectivity = "connectivity"

	// ErrMFARequired is returned when a client forces MFA and the user has no authenticator
	ErrMFARequired = "mfa_required"

	// ErrInternal is returned when there is an internal error
	ErrInternal = "internal"
)

// Error represents an error in the application
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string, cause error) *Error {
	return NewError(ErrInvalidArgument, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrNotFound, message, cause)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, cause error) *Error {
	return NewError(ErrUnauthorized, message, cause)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, cause error) *Error {
	return NewError(ErrForbidden, message, cause)
}

// NewConnectivityError creates a new connectivity error
func NewConnectivityError(message string, cause error) *Error {
	return NewError(ErrConnectivity, message, cause)
}

// NewMFARequiredError creates a new MFA required error
func NewMFARequiredError(message string, cause error) *Error {
	return NewError(ErrMFARequired, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternal, message, cause)
}

// TypeOf returns the type of the first *Error in the chain. Other errors are
// classified by the HTTP status attached with httperr, if any, and are
// ErrInternal otherwise.
func TypeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	switch httperr.Code(err) {
	case http.StatusBadRequest, http.StatusConflict:
		return ErrInvalidArgument
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	default:
		return ErrInternal
	}
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return isType(err, ErrInvalidArgument)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrNotFound)
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	return isType(err, ErrUnauthorized)
}

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool {
	return isType(err, ErrForbidden)
}

// IsConnectivity checks if the error is a connectivity error
func IsConnectivity(err error) bool {
	return isType(err, ErrConnectivity)
}

// IsMFARequired checks if the error is an MFA required error
func IsMFARequired(err error) bool {
	return isType(err, ErrMFARequired)
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrInternal)
}

func isType(err error, errorType string) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errorType
}

// HTTPStatus maps an error to the status code returned to API callers.
// Errors outside the taxonomy map to 500.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrInvalidArgument:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden, ErrMFARequired:
		return http.StatusForbidden
	case ErrConnectivity:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
