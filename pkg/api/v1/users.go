// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/stacklok/fedauth/pkg/api/errors"
)

// UsersRoutes defines the admin routes under /auth/v1/users.
type UsersRoutes struct {
	accounts AccountDisconnector
}

// UsersRouter creates the user admin routes, guarded by the admin token.
func UsersRouter(accounts AccountDisconnector, adminToken string) http.Handler {
	routes := &UsersRoutes{accounts: accounts}
	r := chi.NewRouter()
	r.Use(AdminAuth(adminToken))
	r.Delete("/{id}/provider", apierrors.ErrorHandler(routes.disconnect))
	return r
}

func (s *UsersRoutes) disconnect(w http.ResponseWriter, r *http.Request) error {
	u, err := s.accounts.Disconnect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newUserResponse(u))
}
