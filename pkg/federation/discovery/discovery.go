// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package discovery resolves an upstream issuer's OpenID Connect discovery
// document into a provider configuration proposal.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/trace"

	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/logger"
	"github.com/stacklok/fedauth/pkg/metrics"
	"github.com/stacklok/fedauth/pkg/networking"
	"github.com/stacklok/fedauth/pkg/telemetry"
)

// WellKnownPath is the discovery document path relative to the issuer.
const WellKnownPath = "/.well-known/openid-configuration"

// maxDocumentSize limits the discovery document body.
const maxDocumentSize = 1 << 20

// defaultScopes is the ordered set of scopes a proposal may request.
var defaultScopes = []string{"openid", "profile", "email"}

// Document is the subset of the discovery document the resolver reads.
type Document struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI                           string   `json:"jwks_uri,omitempty"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported,omitempty"`
}

func (d *Document) validate() error {
	if d.Issuer == "" {
		return errors.New("missing issuer")
	}
	if d.AuthorizationEndpoint == "" {
		return errors.New("missing authorization_endpoint")
	}
	if d.TokenEndpoint == "" {
		return errors.New("missing token_endpoint")
	}
	return nil
}

// Proposal is an importable provider configuration derived from a document.
type Proposal struct {
	Issuer                string `json:"issuer" yaml:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint" yaml:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint" yaml:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint" yaml:"userinfo_endpoint"`
	TokenAuthMethodBasic  bool   `json:"token_auth_method_basic" yaml:"token_auth_method_basic"`
	UsePKCE               bool   `json:"use_pkce" yaml:"use_pkce"`
	AllowInsecure         bool   `json:"allow_insecure_requests" yaml:"allow_insecure_requests"`
	Scope                 string `json:"scope" yaml:"scope"`
}

// LookupRequest names the issuer to resolve and the TLS policy to use.
type LookupRequest struct {
	Issuer        string `json:"issuer"`
	AllowInsecure bool   `json:"danger_allow_insecure"`
	RootPEM       string `json:"root_pem,omitempty"`
}

// Resolver fetches discovery documents. It keeps no state between lookups.
type Resolver struct {
	newClient networking.ClientFactory
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClientFactory replaces the HTTP client factory.
func WithClientFactory(f networking.ClientFactory) Option {
	return func(r *Resolver) {
		r.newClient = f
	}
}

// WithMetrics records lookup outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithTracerProvider sets the tracer provider used for lookup spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Resolver) {
		r.tracer = telemetry.Tracer(tp)
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		newClient: networking.NewProviderClient,
		tracer:    telemetry.Tracer(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DiscoveryURL turns an issuer into the URL of its discovery document.
// A missing scheme defaults to https.
func DiscoveryURL(issuer string) (string, error) {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return "", errors.New("issuer is required")
	}
	if !strings.Contains(issuer, "://") {
		issuer = "https://" + issuer
	}
	u, err := url.Parse(issuer)
	if err != nil {
		return "", fmt.Errorf("invalid issuer URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("unsupported issuer scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("issuer URL has no host")
	}
	u.RawQuery = ""
	u.Fragment = ""
	p := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(p, WellKnownPath) {
		p += WellKnownPath
	}
	u.Path = p
	u.RawPath = ""
	return u.String(), nil
}

// Lookup fetches the issuer's discovery document and maps it to a Proposal.
// Failures are never retried.
func (r *Resolver) Lookup(ctx context.Context, req LookupRequest) (_ *Proposal, retErr error) {
	ctx, finish := telemetry.StartSpan(ctx, r.tracer, "discovery.lookup", trace.SpanKindClient,
		telemetry.AttrIssuer.String(req.Issuer))
	defer finish(&retErr)
	defer func() {
		outcome := "success"
		if retErr != nil {
			outcome = fderrors.TypeOf(retErr)
		}
		r.metrics.IncDiscovery(outcome)
	}()

	discoveryURL, err := DiscoveryURL(req.Issuer)
	if err != nil {
		return nil, fderrors.NewInvalidArgumentError(err.Error(), err)
	}

	client, err := r.newClient(req.AllowInsecure, req.RootPEM)
	if err != nil {
		return nil, fderrors.NewInvalidArgumentError("invalid TLS configuration", err)
	}

	doc, err := fetch(ctx, client, discoveryURL)
	if err != nil {
		return nil, err
	}

	logger.Debugw("resolved discovery document", "issuer", doc.Issuer, "url", discoveryURL)
	return propose(doc, req.AllowInsecure), nil
}

func fetch(ctx context.Context, client *http.Client, discoveryURL string) (*Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fderrors.NewInvalidArgumentError("failed to build discovery request", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fderrors.NewConnectivityError(fmt.Sprintf("failed to fetch %s", discoveryURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := networking.NewHTTPError(resp)
		return nil, fderrors.NewConnectivityError(
			fmt.Sprintf("discovery endpoint returned HTTP %d: %s", httpErr.StatusCode, httpErr.Body), httpErr)
	}

	var doc Document
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&doc); err != nil {
		return nil, fderrors.NewInvalidArgumentError("invalid discovery document", err)
	}
	if err := doc.validate(); err != nil {
		return nil, fderrors.NewInvalidArgumentError(fmt.Sprintf("invalid discovery document: %v", err), err)
	}
	return &doc, nil
}

func propose(doc *Document, allowInsecure bool) *Proposal {
	var scopes []string
	for _, s := range defaultScopes {
		if slices.Contains(doc.ScopesSupported, s) {
			scopes = append(scopes, s)
		}
	}
	return &Proposal{
		Issuer:                doc.Issuer,
		AuthorizationEndpoint: doc.AuthorizationEndpoint,
		TokenEndpoint:         doc.TokenEndpoint,
		UserinfoEndpoint:      doc.UserinfoEndpoint,
		TokenAuthMethodBasic:  !slices.Contains(doc.TokenEndpointAuthMethodsSupported, "client_secret_post"),
		UsePKCE:               slices.Contains(doc.CodeChallengeMethodsSupported, "S256"),
		AllowInsecure:         allowInsecure,
		Scope:                 strings.Join(scopes, " "),
	}
}
