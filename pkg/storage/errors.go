// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package storage holds the sentinel errors shared by the durable stores of
// providers, users and credentials. Each sentinel carries the HTTP status it
// maps to when it reaches the API without being wrapped in a typed error.
package storage

import (
	"errors"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"
)

// ErrNotFound is returned by Get/Find style methods for a missing record.
var ErrNotFound = httperr.WithCode(errors.New("record not found"), http.StatusNotFound)

// ErrAlreadyExists is returned when an insert collides with a unique key:
// a provider id, a user id or an email address.
var ErrAlreadyExists = httperr.WithCode(errors.New("record already exists"), http.StatusConflict)
