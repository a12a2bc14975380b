// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/fedauth/pkg/logger"
)

// healthcheckTimeout bounds the backend ping so a hung cache or database
// fails the probe instead of stalling it.
const healthcheckTimeout = 2 * time.Second

// HealthcheckRouter serves 204 when the session cache and stores answer a
// ping, 503 otherwise. A nil pinger always reports healthy.
func HealthcheckRouter(p Pinger) http.Handler {
	routes := &healthcheckRoutes{pinger: p}
	r := chi.NewRouter()
	r.Get("/", routes.getHealthcheck)
	return r
}

type healthcheckRoutes struct {
	pinger Pinger
}

func (h *healthcheckRoutes) getHealthcheck(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthcheckTimeout)
	defer cancel()
	if err := h.pinger.Ping(ctx); err != nil {
		logger.Warnw("health check failed", "error", err)
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
