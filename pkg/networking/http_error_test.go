// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package networking

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHTTPError(t *testing.T) {
	t.Parallel()

	u, _ := url.Parse("https://idp.example.com/token")
	resp := &http.Response{
		StatusCode: http.StatusBadRequest,
		Body:       io.NopCloser(strings.NewReader(`{"error":"invalid_grant"}`)),
		Request:    &http.Request{URL: u},
	}

	err := NewHTTPError(resp)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, `{"error":"invalid_grant"}`, err.Body)
	assert.Equal(t, "https://idp.example.com/token", err.URL)
	assert.Equal(t, `HTTP 400 for URL https://idp.example.com/token: {"error":"invalid_grant"}`, err.Error())
}

func TestNewHTTPError_TruncatesBody(t *testing.T) {
	t.Parallel()

	resp := &http.Response{
		StatusCode: http.StatusInternalServerError,
		Body:       io.NopCloser(strings.NewReader(strings.Repeat("x", maxErrorBodySize*2))),
	}

	err := NewHTTPError(resp)
	assert.Len(t, err.Body, maxErrorBodySize)
	assert.Empty(t, err.URL)
}

func TestIsHTTPError(t *testing.T) {
	t.Parallel()

	base := &HTTPError{StatusCode: http.StatusNotFound}
	wrapped := fmt.Errorf("discovery: %w", base)

	assert.True(t, IsHTTPError(wrapped, 0))
	assert.True(t, IsHTTPError(wrapped, http.StatusNotFound))
	assert.False(t, IsHTTPError(wrapped, http.StatusBadRequest))
	assert.False(t, IsHTTPError(errors.New("plain"), 0))
}
