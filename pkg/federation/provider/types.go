// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package provider manages upstream identity provider configuration.
package provider

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/stacklok/fedauth/pkg/networking"
)

// Type identifies the federation protocol spoken with an upstream.
type Type string

// TypeOIDC is the authorization code flow of OpenID Connect.
const TypeOIDC Type = "oidc"

// knownTypes is the closed set of supported provider types.
var knownTypes = []Type{TypeOIDC}

// ParseType parses s into a known Type. An empty string selects TypeOIDC.
func ParseType(s string) (Type, error) {
	if s == "" {
		return TypeOIDC, nil
	}
	t := Type(strings.ToLower(s))
	if !slices.Contains(knownTypes, t) {
		return "", fmt.Errorf("unsupported provider type %q", s)
	}
	return t, nil
}

// Capabilities describes what a provider type supports. Callers branch on
// capabilities rather than on the concrete type.
type Capabilities struct {
	// Discovery means configuration can be imported from a discovery document.
	Discovery bool
	// IDTokenIdentity means the identity is taken from an ID token.
	IDTokenIdentity bool
	// PKCE means the authorization request may carry a code challenge.
	PKCE bool
}

// Capabilities returns the capabilities of t.
func (t Type) Capabilities() Capabilities {
	switch t {
	case TypeOIDC:
		return Capabilities{Discovery: true, IDTokenIdentity: true, PKCE: true}
	default:
		return Capabilities{}
	}
}

// Provider is a configured upstream identity provider.
type Provider struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Type                  Type   `json:"type"`
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	ClientID              string `json:"client_id"`
	// Secret is the client secret sealed by the key provider.
	Secret                []byte `json:"secret,omitempty"`
	Scope                 string `json:"scope"`
	AllowInsecureRequests bool   `json:"allow_insecure_requests"`
	UsePKCE               bool   `json:"use_pkce"`
	RootPEM               string `json:"root_pem,omitempty"`
	Logo                  []byte `json:"logo,omitempty"`
	LogoType              string `json:"logo_type,omitempty"`
}

// HasSecret reports whether a client secret is stored.
func (p *Provider) HasSecret() bool {
	return len(p.Secret) > 0
}

// Template is the projection rendered on the login page.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	UsePKCE bool   `json:"use_pkce"`
}

// Request is the administrative input for creating or updating a provider.
type Request struct {
	Name                  string  `json:"name"`
	Type                  string  `json:"type,omitempty"`
	Issuer                string  `json:"issuer"`
	AuthorizationEndpoint string  `json:"authorization_endpoint"`
	TokenEndpoint         string  `json:"token_endpoint"`
	UserinfoEndpoint      string  `json:"userinfo_endpoint"`
	ClientID              string  `json:"client_id"`
	ClientSecret          *string `json:"client_secret,omitempty"`
	Scope                 string  `json:"scope"`
	AllowInsecureRequests bool    `json:"allow_insecure_requests"`
	UsePKCE               bool    `json:"use_pkce"`
	RootPEM               string  `json:"root_pem,omitempty"`
}

// Validate checks the request. The returned error describes the first problem.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Name) > 128 {
		return fmt.Errorf("name must be 128 characters or less")
	}
	if _, err := ParseType(r.Type); err != nil {
		return err
	}
	if strings.TrimSpace(r.ClientID) == "" {
		return fmt.Errorf("client_id is required")
	}
	if NormalizeScope(r.Scope) == "" {
		return fmt.Errorf("scope is required")
	}

	endpoints := []struct {
		field    string
		value    string
		optional bool
	}{
		{"issuer", r.Issuer, false},
		{"authorization_endpoint", r.AuthorizationEndpoint, false},
		{"token_endpoint", r.TokenEndpoint, false},
		{"userinfo_endpoint", r.UserinfoEndpoint, true},
	}
	for _, e := range endpoints {
		if e.optional && e.value == "" {
			continue
		}
		if err := validateEndpoint(e.value, r.AllowInsecureRequests); err != nil {
			return fmt.Errorf("%s: %w", e.field, err)
		}
	}

	if r.RootPEM != "" {
		if err := networking.ValidateRootPEM(r.RootPEM); err != nil {
			return err
		}
	}
	return nil
}

func validateEndpoint(raw string, allowInsecure bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must be absolute")
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !allowInsecure {
			return fmt.Errorf("URL must use https unless insecure requests are allowed")
		}
	default:
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	return nil
}

// NormalizeScope splits s on spaces and '+' and joins the unique, non-empty
// tokens with a single space. It is idempotent.
func NormalizeScope(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '+' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}
