// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package v1 contains the HTTP handlers of the federation API.
package v1

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/stacklok/fedauth/pkg/api/errors"
	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/federation/discovery"
	"github.com/stacklok/fedauth/pkg/federation/loginsession"
	"github.com/stacklok/fedauth/pkg/federation/provider"
	"github.com/stacklok/fedauth/pkg/logger"
)

// maxRequestBodySize bounds JSON request bodies.
const maxRequestBodySize = 1 << 20

// ProvidersConfig holds the collaborators of ProvidersRouter.
type ProvidersConfig struct {
	Logins      LoginService
	Registry    ProviderRegistry
	Resolver    DiscoveryResolver
	CallbackURI string
	AdminToken  string
	// CORSOrigins are the origins registered by any client. Preflight
	// requests from other origins get no CORS headers.
	CORSOrigins []string
}

// ProvidersRoutes defines the routes under /auth/v1/providers.
type ProvidersRoutes struct {
	logins      LoginService
	registry    ProviderRegistry
	resolver    DiscoveryResolver
	callbackURI string
	corsOrigins []string
}

// ProvidersRouter creates the public login routes and the admin routes.
func ProvidersRouter(cfg ProvidersConfig) http.Handler {
	routes := &ProvidersRoutes{
		logins:      cfg.Logins,
		registry:    cfg.Registry,
		resolver:    cfg.Resolver,
		callbackURI: cfg.CallbackURI,
		corsOrigins: cfg.CORSOrigins,
	}

	r := chi.NewRouter()
	r.Options("/login", routes.preflight)
	r.Post("/login", apierrors.ErrorHandler(routes.login))
	r.Post("/callback", apierrors.ErrorHandler(routes.callback))
	r.Post("/stepup", apierrors.ErrorHandler(routes.stepUp))
	r.Get("/minimal", apierrors.ErrorHandler(routes.listTemplates))

	r.Group(func(r chi.Router) {
		r.Use(AdminAuth(cfg.AdminToken))
		r.Get("/", apierrors.ErrorHandler(routes.listProviders))
		r.Post("/", apierrors.ErrorHandler(routes.createProvider))
		r.Post("/lookup", apierrors.ErrorHandler(routes.lookup))
		r.Get("/{id}", apierrors.ErrorHandler(routes.getProvider))
		r.Put("/{id}", apierrors.ErrorHandler(routes.updateProvider))
		r.Delete("/{id}", apierrors.ErrorHandler(routes.deleteProvider))
	})
	return r
}

func (s *ProvidersRoutes) login(w http.ResponseWriter, r *http.Request) error {
	var req loginsession.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	res, err := s.logins.Start(r.Context(), req)
	if err != nil {
		return err
	}

	allowOrigin(w, r, res.AllowedOrigins)
	http.SetCookie(w, res.Cookie)
	w.Header().Set("Location", res.Location)
	return writeJSON(w, http.StatusOK, loginResponse{XSRFToken: res.XSRFToken, Location: res.Location})
}

// preflight answers CORS preflight requests for login. The client is not
// known before the body is read, so any registered origin passes here and
// the actual response narrows it to the requesting client's origins.
func (s *ProvidersRoutes) preflight(w http.ResponseWriter, r *http.Request) {
	if allowOrigin(w, r, s.corsOrigins) {
		w.Header().Set("Access-Control-Allow-Methods", http.MethodPost)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ProvidersRoutes) callback(w http.ResponseWriter, r *http.Request) error {
	var req loginsession.CallbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	var cookieValue string
	if c, err := r.Cookie(loginsession.CookieName); err == nil {
		cookieValue = c.Value
	}

	res, err := s.logins.Finish(r.Context(), cookieValue, req)
	if err != nil {
		http.SetCookie(w, s.logins.ClearCookie())
		return err
	}

	http.SetCookie(w, res.ClearCookie)
	return writeJSON(w, http.StatusOK, callbackResponse{
		User:          newUserResponse(res.User),
		Client:        res.Client,
		PreviousEmail: res.PreviousEmail,
		Created:       res.Created,
		StepUp:        res.StepUp,
	})
}

func (s *ProvidersRoutes) stepUp(w http.ResponseWriter, r *http.Request) error {
	var req stepUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.ChallengeID == "" || len(req.Response) == 0 {
		return fderrors.NewInvalidArgumentError("challenge_id and response are required", nil)
	}

	res, err := s.logins.CompleteStepUp(r.Context(), req.ChallengeID, req.Response)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, callbackResponse{
		User:          newUserResponse(res.User),
		Client:        res.Client,
		PreviousEmail: res.PreviousEmail,
		Created:       res.Created,
	})
}

func (s *ProvidersRoutes) listTemplates(w http.ResponseWriter, r *http.Request) error {
	templates, err := s.registry.Templates(r.Context())
	if err != nil {
		return err
	}
	if templates == nil {
		templates = []provider.Template{}
	}
	return writeJSON(w, http.StatusOK, templates)
}

func (s *ProvidersRoutes) listProviders(w http.ResponseWriter, r *http.Request) error {
	all, err := s.registry.FindAll(r.Context())
	if err != nil {
		return err
	}
	resp := providerListResponse{Providers: make([]providerResponse, 0, len(all))}
	for _, p := range all {
		resp.Providers = append(resp.Providers, newProviderResponse(p, s.callbackURI))
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (s *ProvidersRoutes) getProvider(w http.ResponseWriter, r *http.Request) error {
	p, err := s.registry.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newProviderResponse(p, s.callbackURI))
}

func (s *ProvidersRoutes) createProvider(w http.ResponseWriter, r *http.Request) error {
	var req provider.Request
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	p, err := s.registry.Create(r.Context(), req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, newProviderResponse(p, s.callbackURI))
}

func (s *ProvidersRoutes) updateProvider(w http.ResponseWriter, r *http.Request) error {
	var req provider.Request
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	p, err := s.registry.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newProviderResponse(p, s.callbackURI))
}

func (s *ProvidersRoutes) deleteProvider(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if err := s.registry.Delete(r.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *ProvidersRoutes) lookup(w http.ResponseWriter, r *http.Request) error {
	var req discovery.LookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	proposal, err := s.resolver.Lookup(r.Context(), req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, proposal)
}

// allowOrigin echoes the request origin when the client registered it.
// allowOrigin sets the CORS headers when the request origin is allowed and
// reports whether it did.
func allowOrigin(w http.ResponseWriter, r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	w.Header().Add("Vary", "Origin")
	if origin == "" || !slices.Contains(allowed, origin) {
		return false
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Set("Access-Control-Expose-Headers", "Location")
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fderrors.NewInvalidArgumentError("invalid request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status line is already sent; only log.
		logger.Warnw("failed to write response", "error", err)
	}
	return nil
}
