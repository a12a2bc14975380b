// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package networking builds the outbound HTTP clients used to talk to
// upstream identity providers.
package networking

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/stacklok/fedauth/pkg/versions"
)

const (
	// DefaultRequestTimeout bounds a whole request including reading the body.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultConnectTimeout bounds establishing the TCP connection.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultTLSHandshakeTimeout bounds the TLS handshake.
	DefaultTLSHandshakeTimeout = 10 * time.Second
)

// ValidatingTransport rejects requests that do not use the https scheme.
type ValidatingTransport struct {
	Transport http.RoundTripper
}

// RoundTrip validates the request URL prior to forwarding
func (t *ValidatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil || req.URL.Scheme != "https" {
		return nil, fmt.Errorf("the supplied URL %s is not HTTPS scheme", req.URL)
	}
	return t.Transport.RoundTrip(req)
}

// userAgentTransport sets the User-Agent header on every request.
type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	newReq := req.Clone(req.Context())
	newReq.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(newReq)
}

// ProviderClientBuilder provides a fluent interface for building clients
// that honor one upstream provider's TLS policy.
type ProviderClientBuilder struct {
	requestTimeout      time.Duration
	connectTimeout      time.Duration
	tlsHandshakeTimeout time.Duration
	userAgent           string
	allowInsecure       bool
	rootPEM             string
}

// NewProviderClientBuilder returns a builder in secure mode with default timeouts.
func NewProviderClientBuilder() *ProviderClientBuilder {
	return &ProviderClientBuilder{
		requestTimeout:      DefaultRequestTimeout,
		connectTimeout:      DefaultConnectTimeout,
		tlsHandshakeTimeout: DefaultTLSHandshakeTimeout,
		userAgent:           versions.UserAgent(),
	}
}

// WithInsecure disables certificate verification and HTTPS enforcement.
// It must only be set on explicit administrator opt-in.
func (b *ProviderClientBuilder) WithInsecure(allow bool) *ProviderClientBuilder {
	b.allowInsecure = allow
	return b
}

// WithRootPEM adds a PEM encoded trust anchor on top of the system roots.
func (b *ProviderClientBuilder) WithRootPEM(pemData string) *ProviderClientBuilder {
	b.rootPEM = pemData
	return b
}

// WithTimeout sets the overall request timeout.
func (b *ProviderClientBuilder) WithTimeout(d time.Duration) *ProviderClientBuilder {
	b.requestTimeout = d
	return b
}

// WithConnectTimeout sets the dial timeout.
func (b *ProviderClientBuilder) WithConnectTimeout(d time.Duration) *ProviderClientBuilder {
	b.connectTimeout = d
	return b
}

// WithUserAgent overrides the User-Agent header.
func (b *ProviderClientBuilder) WithUserAgent(ua string) *ProviderClientBuilder {
	b.userAgent = ua
	return b
}

// Build creates the configured HTTP client
func (b *ProviderClientBuilder) Build() (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   b.connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   b.tlsHandshakeTimeout,
		ResponseHeaderTimeout: b.requestTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	var clientTransport http.RoundTripper
	if b.allowInsecure {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, // #nosec G402 - explicit administrator opt-in per provider
		}
		clientTransport = transport
	} else {
		roots, err := b.rootPool()
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
			RootCAs:    roots,
		}
		clientTransport = &ValidatingTransport{Transport: transport}
	}

	if b.userAgent != "" {
		clientTransport = &userAgentTransport{transport: clientTransport, userAgent: b.userAgent}
	}

	return &http.Client{
		Transport: clientTransport,
		Timeout:   b.requestTimeout,
	}, nil
}

func (b *ProviderClientBuilder) rootPool() (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if b.rootPEM != "" && !pool.AppendCertsFromPEM([]byte(b.rootPEM)) {
		return nil, fmt.Errorf("failed to parse provider root certificate PEM")
	}
	return pool, nil
}

// NewProviderClient builds a client for a provider with the given TLS policy.
func NewProviderClient(allowInsecure bool, rootPEM string) (*http.Client, error) {
	return NewProviderClientBuilder().
		WithInsecure(allowInsecure).
		WithRootPEM(rootPEM).
		Build()
}

// ClientFactory builds HTTP clients from a provider's TLS policy.
// NewProviderClient satisfies it; tests substitute their own.
type ClientFactory func(allowInsecure bool, rootPEM string) (*http.Client, error)

// ValidateRootPEM reports whether pemData contains at least one certificate.
func ValidateRootPEM(pemData string) error {
	if !x509.NewCertPool().AppendCertsFromPEM([]byte(pemData)) {
		return fmt.Errorf("root certificate is not valid PEM")
	}
	return nil
}
