// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"
	"strings"

	apierrors "github.com/stacklok/fedauth/pkg/api/errors"
	"github.com/stacklok/fedauth/pkg/crypto"
	fderrors "github.com/stacklok/fedauth/pkg/errors"
)

// AdminAuth requires "Authorization: Bearer <token>". An empty token
// rejects every request.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || !ok || !crypto.ConstantTimeEqual(presented, token) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="fedauth"`)
				apierrors.Write(w, fderrors.NewUnauthorizedError("admin token required", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
