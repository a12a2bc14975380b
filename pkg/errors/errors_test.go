// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stacklok/toolhive-core/httperr"
	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrInvalidArgument,
				Message: "test message",
				Cause:   errors.New("underlying error"),
			},
			want: "invalid_argument: test message: underlying error",
		},
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrConnectivity,
				Message: "test message",
			},
			want: "connectivity: test message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := NewInternalError("test message", cause)
	assert.Same(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)

	assert.Nil(t, NewInternalError("test message", nil).Unwrap())
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		check  func(error) bool
		status int
	}{
		{"invalid argument", NewInvalidArgumentError("bad", nil), IsInvalidArgument, http.StatusBadRequest},
		{"not found", NewNotFoundError("gone", nil), IsNotFound, http.StatusNotFound},
		{"unauthorized", NewUnauthorizedError("state", nil), IsUnauthorized, http.StatusUnauthorized},
		{"forbidden", NewForbiddenError("mismatch", nil), IsForbidden, http.StatusForbidden},
		{"connectivity", NewConnectivityError("down", nil), IsConnectivity, http.StatusBadGateway},
		{"mfa required", NewMFARequiredError("enroll", nil), IsMFARequired, http.StatusForbidden},
		{"internal", NewInternalError("boom", nil), IsInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(wrapped), "predicate must see through wrapping")
			assert.Equal(t, tt.status, HTTPStatus(wrapped))
		})
	}
}

func TestTypeOf_PlainError(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain")
	assert.Equal(t, ErrInternal, TypeOf(plain))
	assert.False(t, IsNotFound(plain))
	assert.False(t, IsInternal(plain))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(plain))
}

func TestTypeOf_HTTPCodedError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code       int
		wantType   string
		wantStatus int
	}{
		{http.StatusNotFound, ErrNotFound, http.StatusNotFound},
		{http.StatusConflict, ErrInvalidArgument, http.StatusBadRequest},
		{http.StatusBadRequest, ErrInvalidArgument, http.StatusBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized, http.StatusUnauthorized},
		{http.StatusForbidden, ErrForbidden, http.StatusForbidden},
		{http.StatusTeapot, ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			t.Parallel()
			err := fmt.Errorf("lookup: %w", httperr.WithCode(errors.New("coded"), tt.code))
			assert.Equal(t, tt.wantType, TypeOf(err))
			assert.Equal(t, tt.wantStatus, HTTPStatus(err))
			// predicates only match typed errors
			assert.False(t, IsNotFound(err))
		})
	}
}
