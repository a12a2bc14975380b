// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package networking

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBodySize bounds the upstream body kept for diagnostics.
const maxErrorBodySize = 8 << 10

// HTTPError represents a non-success upstream response with its status and body.
type HTTPError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the (possibly truncated) response body.
	Body string

	// URL is the requested URL.
	URL string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Body)
}

// NewHTTPError reads at most maxErrorBodySize bytes of resp's body into an HTTPError.
func NewHTTPError(resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	u := ""
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL.Redacted()
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		URL:        u,
		Body:       string(body),
	}
}

// IsHTTPError checks if an error is an HTTPError with the specified status code.
// If statusCode is 0, it matches any HTTPError.
func IsHTTPError(err error, statusCode int) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if statusCode == 0 {
		return true
	}
	return httpErr.StatusCode == statusCode
}
