// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"encoding/json"

	"github.com/stacklok/fedauth/pkg/federation/loginsession"
	"github.com/stacklok/fedauth/pkg/federation/provider"
	"github.com/stacklok/fedauth/pkg/mfa"
	"github.com/stacklok/fedauth/pkg/users"
)

// loginResponse is returned when an upstream login was started.
type loginResponse struct {
	XSRFToken string `json:"xsrf_token"`
	Location  string `json:"location"`
}

// callbackResponse is returned when an upstream callback was accepted.
// Either User or StepUp is set.
type callbackResponse struct {
	User          *userResponse               `json:"user,omitempty"`
	Client        loginsession.ClientSnapshot `json:"client"`
	PreviousEmail string                      `json:"previous_email,omitempty"`
	Created       bool                        `json:"created"`
	StepUp        *mfa.Challenge              `json:"step_up,omitempty"`
}

// stepUpRequest answers a step-up challenge with a WebAuthn assertion.
type stepUpRequest struct {
	ChallengeID string          `json:"challenge_id"`
	Response    json.RawMessage `json:"response"`
}

// userResponse is the public projection of an account.
type userResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	GivenName      string `json:"given_name"`
	FamilyName     string `json:"family_name"`
	Language       string `json:"language"`
	EmailVerified  bool   `json:"email_verified"`
	AuthProviderID string `json:"auth_provider_id,omitempty"`
}

func newUserResponse(u *users.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:             u.ID,
		Email:          u.Email,
		GivenName:      u.GivenName,
		FamilyName:     u.FamilyName,
		Language:       u.Language,
		EmailVerified:  u.EmailVerified,
		AuthProviderID: u.AuthProviderID,
	}
}

// providerResponse is the admin view of a provider. The sealed secret is
// never returned, only whether one is set.
type providerResponse struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Type                  provider.Type `json:"type"`
	Issuer                string        `json:"issuer"`
	AuthorizationEndpoint string        `json:"authorization_endpoint"`
	TokenEndpoint         string        `json:"token_endpoint"`
	UserinfoEndpoint      string        `json:"userinfo_endpoint"`
	ClientID              string        `json:"client_id"`
	HasSecret             bool          `json:"has_secret"`
	Scope                 string        `json:"scope"`
	AllowInsecureRequests bool          `json:"allow_insecure_requests"`
	UsePKCE               bool          `json:"use_pkce"`
	RootPEM               string        `json:"root_pem,omitempty"`
	CallbackURI           string        `json:"callback_uri"`
}

func newProviderResponse(p *provider.Provider, callbackURI string) providerResponse {
	return providerResponse{
		ID:                    p.ID,
		Name:                  p.Name,
		Type:                  p.Type,
		Issuer:                p.Issuer,
		AuthorizationEndpoint: p.AuthorizationEndpoint,
		TokenEndpoint:         p.TokenEndpoint,
		UserinfoEndpoint:      p.UserinfoEndpoint,
		ClientID:              p.ClientID,
		HasSecret:             p.HasSecret(),
		Scope:                 p.Scope,
		AllowInsecureRequests: p.AllowInsecureRequests,
		UsePKCE:               p.UsePKCE,
		RootPEM:               p.RootPEM,
		CallbackURI:           callbackURI,
	}
}

// providerListResponse wraps the provider list.
type providerListResponse struct {
	Providers []providerResponse `json:"providers"`
}
