// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package loginsession

import (
	"errors"
	"net/http"

	"github.com/stacklok/fedauth/pkg/federation/provider"
	"github.com/stacklok/fedauth/pkg/mfa"
	"github.com/stacklok/fedauth/pkg/users"
)

// LoginRequest starts an upstream login on behalf of a relying party.
type LoginRequest struct {
	ProviderID  string   `json:"provider_id"`
	ClientID    string   `json:"client_id"`
	RedirectURI string   `json:"redirect_uri"`
	Scopes      []string `json:"scopes,omitempty"`
	State       string   `json:"state,omitempty"`
	Nonce       string   `json:"nonce,omitempty"`
	// CodeChallenge and CodeChallengeMethod belong to the relying party's own
	// authorization request and are handed back after the login.
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
	// PKCEChallenge is the browser's S256 challenge for this login. It is
	// sent upstream when the provider uses PKCE and checked at the callback.
	PKCEChallenge string `json:"pkce_challenge"`
}

func (r *LoginRequest) validate() error {
	switch {
	case r.ProviderID == "":
		return errors.New("provider_id is required")
	case r.ClientID == "":
		return errors.New("client_id is required")
	case r.RedirectURI == "":
		return errors.New("redirect_uri is required")
	case len(r.PKCEChallenge) < 43 || len(r.PKCEChallenge) > 128:
		return errors.New("pkce_challenge must be between 43 and 128 characters")
	}
	return nil
}

// CallbackRequest is what the browser submits after the upstream redirect.
type CallbackRequest struct {
	State        string `json:"state"`
	Code         string `json:"code"`
	XSRFToken    string `json:"xsrf_token"`
	PKCEVerifier string `json:"pkce_verifier"`
}

// ClientSnapshot is the relying party's original request, narrowed to what
// the client may ask for.
type ClientSnapshot struct {
	ID                  string   `json:"id"`
	Scopes              []string `json:"scopes"`
	ForceMFA            bool     `json:"force_mfa"`
	RedirectURI         string   `json:"redirect_uri"`
	State               string   `json:"state,omitempty"`
	Nonce               string   `json:"nonce,omitempty"`
	CodeChallenge       string   `json:"code_challenge,omitempty"`
	CodeChallengeMethod string   `json:"code_challenge_method,omitempty"`
}

// ProviderSnapshot holds what the callback needs to exchange the code.
type ProviderSnapshot struct {
	ID            string        `json:"id"`
	Type          provider.Type `json:"type"`
	Issuer        string        `json:"issuer"`
	TokenEndpoint string        `json:"token_endpoint"`
	ClientID      string        `json:"client_id"`
	// Secret stays sealed until the token exchange.
	Secret        []byte `json:"secret,omitempty"`
	AllowInsecure bool   `json:"allow_insecure_requests"`
	UsePKCE       bool   `json:"use_pkce"`
	RootPEM       string `json:"root_pem,omitempty"`
}

// Session is the cache record of one in-flight login. It is written once at
// Start and consumed once at Finish.
type Session struct {
	ID            string           `json:"id"`
	XSRFToken     string           `json:"xsrf_token"`
	Client        ClientSnapshot   `json:"client"`
	Provider      ProviderSnapshot `json:"provider"`
	PKCEChallenge string           `json:"pkce_challenge"`
}

// StartResult is handed back to the browser.
type StartResult struct {
	// Cookie carries the encrypted session id.
	Cookie *http.Cookie
	// XSRFToken must be echoed in the callback request.
	XSRFToken string
	// Location is the upstream authorization URL.
	Location string
	// AllowedOrigins are the client's CORS origins.
	AllowedOrigins []string
}

// FinishResult is the outcome of a completed callback. Exactly one of User
// and StepUp is set.
type FinishResult struct {
	User          *users.User
	Client        ClientSnapshot
	PreviousEmail string
	Created       bool
	// StepUp is the pending second factor challenge for forced-MFA clients.
	StepUp *mfa.Challenge
	// ClearCookie removes the callback cookie.
	ClearCookie *http.Cookie
}

// pendingStepUp is stored while a forced-MFA login waits for its assertion.
type pendingStepUp struct {
	User          users.User     `json:"user"`
	Client        ClientSnapshot `json:"client"`
	PreviousEmail string         `json:"previous_email,omitempty"`
	Created       bool           `json:"created"`
}
