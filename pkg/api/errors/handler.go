// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors provides HTTP error handling utilities for the API.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/logger"
)

// HandlerWithError is an HTTP handler that can return an error.
// This signature allows handlers to return errors instead of manually
// writing error responses, enabling centralized error handling.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// Response is the JSON body of every error response.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorHandler wraps a HandlerWithError and converts returned errors
// into JSON error responses.
//
// The decorator:
//   - Returns early if no error is returned (handler already wrote response)
//   - Maps the error type to a status code with errors.HTTPStatus
//   - For 5xx errors: logs full error details, returns a generic message
//   - For 4xx errors: returns the error message to the client
//
// Usage:
//
//	r.Post("/login", apierrors.ErrorHandler(routes.login))
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		Write(w, err)
	}
}

// Write renders err as a JSON error response.
func Write(w http.ResponseWriter, err error) {
	code := fderrors.HTTPStatus(err)
	resp := Response{Error: fderrors.TypeOf(err), Message: message(err)}

	if code >= http.StatusInternalServerError {
		logger.Errorw("request failed", "error", err)
		if code == http.StatusInternalServerError {
			resp.Message = http.StatusText(code)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		logger.Warnw("failed to write error response", "error", encErr)
	}
}

// message returns the client-facing message of err without the cause chain.
func message(err error) string {
	var e *fderrors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
