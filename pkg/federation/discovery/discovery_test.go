// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/metrics"
)

func TestDiscoveryURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		issuer  string
		want    string
		wantErr bool
	}{
		{name: "defaults to https", issuer: "accounts.example.com", want: "https://accounts.example.com/.well-known/openid-configuration"},
		{name: "keeps scheme", issuer: "http://localhost:8080", want: "http://localhost:8080/.well-known/openid-configuration"},
		{name: "trailing slash", issuer: "https://idp.example.com/", want: "https://idp.example.com/.well-known/openid-configuration"},
		{name: "tenant path", issuer: "https://idp.example.com/realms/main", want: "https://idp.example.com/realms/main/.well-known/openid-configuration"},
		{name: "already discovery url", issuer: "https://idp.example.com/.well-known/openid-configuration", want: "https://idp.example.com/.well-known/openid-configuration"},
		{name: "surrounding whitespace", issuer: "  idp.example.com  ", want: "https://idp.example.com/.well-known/openid-configuration"},
		{name: "empty", issuer: "", wantErr: true},
		{name: "unsupported scheme", issuer: "ftp://idp.example.com", wantErr: true},
		{name: "no host", issuer: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DiscoveryURL(tt.issuer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newDiscoveryServer(t *testing.T, status int, body any) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != WellKnownPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		switch b := body.(type) {
		case string:
			_, _ = w.Write([]byte(b))
		default:
			_ = json.NewEncoder(w).Encode(b)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestLookup_MapsDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		doc       map[string]any
		wantScope string
		wantBasic bool
		wantPKCE  bool
	}{
		{
			name: "full document",
			doc: map[string]any{
				"scopes_supported":                      []string{"email", "address", "openid", "profile"},
				"token_endpoint_auth_methods_supported": []string{"client_secret_basic", "client_secret_post"},
				"code_challenge_methods_supported":      []string{"plain", "S256"},
			},
			wantScope: "openid profile email",
			wantBasic: false,
			wantPKCE:  true,
		},
		{
			name: "basic only and no pkce",
			doc: map[string]any{
				"scopes_supported":                      []string{"openid", "email"},
				"token_endpoint_auth_methods_supported": []string{"client_secret_basic"},
				"code_challenge_methods_supported":      []string{"plain"},
			},
			wantScope: "openid email",
			wantBasic: true,
			wantPKCE:  false,
		},
		{
			name:      "nothing advertised",
			doc:       map[string]any{},
			wantScope: "",
			wantBasic: true,
			wantPKCE:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := map[string]any{
				"issuer":                 "https://idp.example.com",
				"authorization_endpoint": "https://idp.example.com/authorize",
				"token_endpoint":         "https://idp.example.com/token",
				"userinfo_endpoint":      "https://idp.example.com/userinfo",
			}
			for k, v := range tt.doc {
				doc[k] = v
			}
			srv, _ := newDiscoveryServer(t, http.StatusOK, doc)

			proposal, err := NewResolver().Lookup(t.Context(), LookupRequest{Issuer: srv.URL, AllowInsecure: true})
			require.NoError(t, err)

			assert.Equal(t, "https://idp.example.com", proposal.Issuer)
			assert.Equal(t, "https://idp.example.com/authorize", proposal.AuthorizationEndpoint)
			assert.Equal(t, "https://idp.example.com/token", proposal.TokenEndpoint)
			assert.Equal(t, "https://idp.example.com/userinfo", proposal.UserinfoEndpoint)
			assert.Equal(t, tt.wantScope, proposal.Scope)
			assert.Equal(t, tt.wantBasic, proposal.TokenAuthMethodBasic)
			assert.Equal(t, tt.wantPKCE, proposal.UsePKCE)
			assert.True(t, proposal.AllowInsecure)
		})
	}
}

func TestLookup_Errors(t *testing.T) {
	t.Parallel()

	t.Run("non-2xx is a connectivity error carrying the body", func(t *testing.T) {
		t.Parallel()
		srv, hits := newDiscoveryServer(t, http.StatusServiceUnavailable, "upstream maintenance")

		_, err := NewResolver().Lookup(t.Context(), LookupRequest{Issuer: srv.URL, AllowInsecure: true})
		require.Error(t, err)
		assert.True(t, fderrors.IsConnectivity(err))
		assert.Contains(t, err.Error(), "upstream maintenance")
		assert.Equal(t, int32(1), hits.Load(), "lookups are not retried")
	})

	t.Run("invalid json is a validation error", func(t *testing.T) {
		t.Parallel()
		srv, _ := newDiscoveryServer(t, http.StatusOK, "{not json")

		_, err := NewResolver().Lookup(t.Context(), LookupRequest{Issuer: srv.URL, AllowInsecure: true})
		require.Error(t, err)
		assert.True(t, fderrors.IsInvalidArgument(err))
	})

	t.Run("missing token endpoint is a validation error", func(t *testing.T) {
		t.Parallel()
		srv, _ := newDiscoveryServer(t, http.StatusOK, map[string]any{
			"issuer":                 "https://idp.example.com",
			"authorization_endpoint": "https://idp.example.com/authorize",
		})

		_, err := NewResolver().Lookup(t.Context(), LookupRequest{Issuer: srv.URL, AllowInsecure: true})
		require.Error(t, err)
		assert.True(t, fderrors.IsInvalidArgument(err))
		assert.Contains(t, err.Error(), "token_endpoint")
	})

	t.Run("unreachable issuer is a connectivity error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		_, err := NewResolver().Lookup(t.Context(), LookupRequest{Issuer: addr, AllowInsecure: true})
		require.Error(t, err)
		assert.True(t, fderrors.IsConnectivity(err))
	})

	t.Run("plain http is refused in secure mode", func(t *testing.T) {
		t.Parallel()
		srv, hits := newDiscoveryServer(t, http.StatusOK, map[string]any{})

		_, err := NewResolver().Lookup(t.Context(), LookupRequest{Issuer: srv.URL})
		require.Error(t, err)
		assert.True(t, fderrors.IsConnectivity(err))
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("empty issuer", func(t *testing.T) {
		t.Parallel()
		_, err := NewResolver().Lookup(t.Context(), LookupRequest{})
		require.Error(t, err)
		assert.True(t, fderrors.IsInvalidArgument(err))
	})

	t.Run("bad root pem", func(t *testing.T) {
		t.Parallel()
		_, err := NewResolver().Lookup(t.Context(), LookupRequest{Issuer: "idp.example.com", RootPEM: "garbage"})
		require.Error(t, err)
		assert.True(t, fderrors.IsInvalidArgument(err))
	})
}

func TestLookup_TrustsSuppliedRoot(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 "https://idp.example.com",
			"authorization_endpoint": "https://idp.example.com/authorize",
			"token_endpoint":         "https://idp.example.com/token",
		})
	}))
	t.Cleanup(srv.Close)

	rootPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}))

	_, err := NewResolver().Lookup(t.Context(), LookupRequest{Issuer: srv.URL})
	require.Error(t, err, "self-signed server must not be trusted without the root")

	proposal, err := NewResolver().Lookup(t.Context(), LookupRequest{Issuer: srv.URL, RootPEM: rootPEM})
	require.NoError(t, err)
	assert.Equal(t, "https://idp.example.com/token", proposal.TokenEndpoint)
	assert.False(t, proposal.AllowInsecure)
}

func TestLookup_RecordsMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	srv, _ := newDiscoveryServer(t, http.StatusBadGateway, "nope")

	_, err := NewResolver(WithMetrics(m)).Lookup(t.Context(), LookupRequest{Issuer: srv.URL, AllowInsecure: true})
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DiscoveryLookups.WithLabelValues(fderrors.ErrConnectivity)))
}
