// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/fedauth/pkg/federation/discovery"
)

func newIssuer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != discovery.WellKnownPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                           "https://idp.example.com",
			"authorization_endpoint":           "https://idp.example.com/authorize",
			"token_endpoint":                   "https://idp.example.com/token",
			"scopes_supported":                 []string{"openid", "email"},
			"code_challenge_methods_supported": []string{"S256"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

//nolint:paralleltest // NewRootCmd binds flags to the global viper instance
func TestLookupCmd(t *testing.T) {
	srv := newIssuer(t)

	out, err := runCmd(t, "lookup", srv.URL, "--insecure", "--output", "json")
	require.NoError(t, err)
	var asJSON discovery.Proposal
	require.NoError(t, json.Unmarshal([]byte(out), &asJSON))
	assert.Equal(t, "https://idp.example.com/token", asJSON.TokenEndpoint)
	assert.True(t, asJSON.UsePKCE)
	assert.Equal(t, "openid email", asJSON.Scope)

	out, err = runCmd(t, "lookup", srv.URL, "--insecure")
	require.NoError(t, err)
	var asYAML discovery.Proposal
	require.NoError(t, yaml.Unmarshal([]byte(out), &asYAML))
	assert.Equal(t, asJSON, asYAML)
}

//nolint:paralleltest // NewRootCmd binds flags to the global viper instance
func TestLookupCmd_Errors(t *testing.T) {
	_, err := runCmd(t, "lookup", "https://idp.example.com", "--output", "xml")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = runCmd(t, "lookup", "https://idp.example.com", "--root-pem", "/does/not/exist.pem")
	assert.ErrorContains(t, err, "failed to read root certificate")

	_, err = runCmd(t, "lookup")
	assert.Error(t, err)
}

//nolint:paralleltest // NewRootCmd binds flags to the global viper instance
func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])

	out, err = runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fedauth ")
}
