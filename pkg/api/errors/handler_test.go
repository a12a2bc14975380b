// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fderrors "github.com/stacklok/fedauth/pkg/errors"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{
			name:       "invalid argument keeps message",
			err:        fderrors.NewInvalidArgumentError("client is disabled", nil),
			wantStatus: http.StatusBadRequest,
			wantType:   fderrors.ErrInvalidArgument,
			wantMsg:    "client is disabled",
		},
		{
			name:       "unauthorized hides cause",
			err:        fderrors.NewUnauthorizedError("`state` does not match", errors.New("securecookie: the value is not valid")),
			wantStatus: http.StatusUnauthorized,
			wantType:   fderrors.ErrUnauthorized,
			wantMsg:    "`state` does not match",
		},
		{
			name:       "mfa required is forbidden",
			err:        fderrors.NewMFARequiredError("enroll a passkey", nil),
			wantStatus: http.StatusForbidden,
			wantType:   fderrors.ErrMFARequired,
			wantMsg:    "enroll a passkey",
		},
		{
			name:       "connectivity keeps message",
			err:        fderrors.NewConnectivityError("upstream unreachable", nil),
			wantStatus: http.StatusBadGateway,
			wantType:   fderrors.ErrConnectivity,
			wantMsg:    "upstream unreachable",
		},
		{
			name:       "internal is generic",
			err:        fderrors.NewInternalError("failed to decrypt provider client secret", nil),
			wantStatus: http.StatusInternalServerError,
			wantType:   fderrors.ErrInternal,
			wantMsg:    "Internal Server Error",
		},
		{
			name:       "untyped error is internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   fderrors.ErrInternal,
			wantMsg:    "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := ErrorHandler(func(http.ResponseWriter, *http.Request) error { return tt.err })
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestErrorHandler_NoError(t *testing.T) {
	t.Parallel()

	h := ErrorHandler(func(w http.ResponseWriter, _ *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
