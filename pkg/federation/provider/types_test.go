// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"openid profile email", "openid profile email"},
		{"  openid   profile ", "openid profile"},
		{"openid+profile+email", "openid profile email"},
		{"openid  +profile\temail\n", "openid profile email"},
		{"openid openid email", "openid email"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got := NormalizeScope(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeScope(got), "normalization must be idempotent")
		})
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()

	got, err := ParseType("")
	require.NoError(t, err)
	assert.Equal(t, TypeOIDC, got)

	got, err = ParseType("OIDC")
	require.NoError(t, err)
	assert.Equal(t, TypeOIDC, got)

	_, err = ParseType("saml")
	assert.Error(t, err)
}

func TestType_Capabilities(t *testing.T) {
	t.Parallel()

	caps := TypeOIDC.Capabilities()
	assert.True(t, caps.Discovery)
	assert.True(t, caps.IDTokenIdentity)
	assert.True(t, caps.PKCE)

	assert.Equal(t, Capabilities{}, Type("unknown").Capabilities())
}

func validRequest() Request {
	secret := "upstream-secret"
	return Request{
		Name:                  "Example IdP",
		Issuer:                "https://idp.example.com",
		AuthorizationEndpoint: "https://idp.example.com/authorize",
		TokenEndpoint:         "https://idp.example.com/token",
		UserinfoEndpoint:      "https://idp.example.com/userinfo",
		ClientID:              "fedauth",
		ClientSecret:          &secret,
		Scope:                 "openid profile email",
		UsePKCE:               true,
	}
}

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantErr string
	}{
		{name: "valid", mutate: func(*Request) {}},
		{name: "missing name", mutate: func(r *Request) { r.Name = " " }, wantErr: "name"},
		{name: "unknown type", mutate: func(r *Request) { r.Type = "saml" }, wantErr: "unsupported provider type"},
		{name: "missing client id", mutate: func(r *Request) { r.ClientID = "" }, wantErr: "client_id"},
		{name: "empty scope", mutate: func(r *Request) { r.Scope = " + " }, wantErr: "scope"},
		{name: "relative token endpoint", mutate: func(r *Request) { r.TokenEndpoint = "/token" }, wantErr: "token_endpoint"},
		{name: "http without insecure", mutate: func(r *Request) { r.AuthorizationEndpoint = "http://idp/authorize" }, wantErr: "https"},
		{name: "http with insecure", mutate: func(r *Request) {
			r.AllowInsecureRequests = true
			r.AuthorizationEndpoint = "http://idp.internal/authorize"
		}},
		{name: "optional userinfo", mutate: func(r *Request) { r.UserinfoEndpoint = "" }},
		{name: "ftp scheme", mutate: func(r *Request) { r.Issuer = "ftp://idp.example.com" }, wantErr: "scheme"},
		{name: "bad root pem", mutate: func(r *Request) { r.RootPEM = "garbage" }, wantErr: "PEM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
