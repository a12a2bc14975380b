// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package loginsession runs the browser round trip of an upstream login.
//
// Start persists a short-lived session record in the shared cache and hands
// the browser an encrypted cookie with the session id, an anti-forgery token
// and the upstream authorization URL. Finish consumes the record exactly once,
// checks state, anti-forgery token and PKCE verifier in that order, exchanges
// the code and reconciles the ID token into a local account. A consumed or
// rejected record can never be used again.
package loginsession

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/stacklok/fedauth/pkg/cache"
	"github.com/stacklok/fedauth/pkg/clients"
	"github.com/stacklok/fedauth/pkg/crypto"
	"github.com/stacklok/fedauth/pkg/encryption"
	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/federation/provider"
	"github.com/stacklok/fedauth/pkg/federation/reconcile"
	"github.com/stacklok/fedauth/pkg/logger"
	"github.com/stacklok/fedauth/pkg/metrics"
	"github.com/stacklok/fedauth/pkg/mfa"
	"github.com/stacklok/fedauth/pkg/networking"
	"github.com/stacklok/fedauth/pkg/storage"
	"github.com/stacklok/fedauth/pkg/telemetry"
	"github.com/stacklok/fedauth/pkg/users"
)

const (
	// CacheNamespace holds in-flight login sessions.
	CacheNamespace = "upstream_callback"
	// StepUpNamespace holds logins waiting for a second factor.
	StepUpNamespace = "upstream_stepup"
	// CallbackPath is appended to the public URL to form the fixed redirect URI.
	CallbackPath = "/auth/v1/providers/callback"
	// DefaultTTL bounds how long a started login can be completed.
	DefaultTTL = 5 * time.Minute
)

// ProviderSource resolves provider configuration.
type ProviderSource interface {
	Find(ctx context.Context, id string) (*provider.Provider, error)
}

// IdentityReconciler merges a validated ID token into a local account.
type IdentityReconciler interface {
	ValidateAndMerge(ctx context.Context, idToken, providerID string) (*reconcile.Result, error)
}

// StepUp issues and verifies second factor challenges.
type StepUp interface {
	HasAuthenticator(ctx context.Context, userID string) (bool, error)
	Begin(ctx context.Context, u *users.User) (*mfa.Challenge, error)
	Finish(ctx context.Context, challengeID string, response []byte) (string, error)
}

// Config configures a Service.
type Config struct {
	// CallbackURI is the redirect URI registered at every upstream.
	CallbackURI string
	// TTL bounds the session record and the cookie. Defaults to DefaultTTL.
	TTL time.Duration
	// VerifyIDToken checks the ID token signature against the upstream JWKS.
	VerifyIDToken bool
	// CookieHashKey authenticates and CookieBlockKey encrypts the cookie.
	CookieHashKey  []byte
	CookieBlockKey []byte
}

// Service runs upstream logins. It is safe for concurrent use.
type Service struct {
	providers   ProviderSource
	clients     clients.Registry
	cache       cache.Cache
	keys        *encryption.KeyProvider
	reconciler  IdentityReconciler
	stepUp      StepUp
	newClient   networking.ClientFactory
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	cookies     *cookieCodec
	verifiers   *verifierCache
	callbackURI string
	ttl         time.Duration
	verify      bool
}

// Option configures a Service.
type Option func(*Service)

// WithStepUp enables forced-MFA clients.
func WithStepUp(s StepUp) Option {
	return func(svc *Service) {
		svc.stepUp = s
	}
}

// WithClientFactory replaces the upstream HTTP client factory.
func WithClientFactory(f networking.ClientFactory) Option {
	return func(svc *Service) {
		svc.newClient = f
	}
}

// WithMetrics records login outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) {
		svc.metrics = m
	}
}

// WithTracerProvider sets the tracer provider for login spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(svc *Service) {
		svc.tracer = telemetry.Tracer(tp)
	}
}

// NewService creates a Service.
func NewService(
	cfg Config,
	providers ProviderSource,
	clientRegistry clients.Registry,
	c cache.Cache,
	keys *encryption.KeyProvider,
	reconciler IdentityReconciler,
	opts ...Option,
) (*Service, error) {
	if cfg.CallbackURI == "" {
		return nil, errors.New("callback URI is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cookies, err := newCookieCodec(cfg.CookieHashKey, cfg.CookieBlockKey, ttl)
	if err != nil {
		return nil, err
	}

	s := &Service{
		providers:   providers,
		clients:     clientRegistry,
		cache:       c,
		keys:        keys,
		reconciler:  reconciler,
		newClient:   networking.NewProviderClient,
		tracer:      telemetry.Tracer(nil),
		cookies:     cookies,
		verifiers:   newVerifierCache(),
		callbackURI: cfg.CallbackURI,
		ttl:         ttl,
		verify:      cfg.VerifyIDToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start validates the login request, persists a session and returns what the
// browser needs to go to the upstream. Nothing is persisted when validation fails.
func (s *Service) Start(ctx context.Context, req LoginRequest) (_ *StartResult, retErr error) {
	ctx, finish := telemetry.StartSpan(ctx, s.tracer, "loginsession.start", trace.SpanKindInternal,
		telemetry.AttrProviderID.String(req.ProviderID), telemetry.AttrClientID.String(req.ClientID))
	defer finish(&retErr)

	if err := req.validate(); err != nil {
		return nil, fderrors.NewInvalidArgumentError(err.Error(), nil)
	}

	p, err := s.providers.Find(ctx, req.ProviderID)
	if err != nil {
		if fderrors.IsNotFound(err) {
			return nil, fderrors.NewInvalidArgumentError("unknown upstream provider", err)
		}
		return nil, err
	}
	if !p.Type.Capabilities().IDTokenIdentity {
		return nil, fderrors.NewInvalidArgumentError("upstream provider does not support login", nil)
	}

	client, err := s.clients.Find(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fderrors.NewInvalidArgumentError("unknown client", err)
		}
		return nil, fderrors.NewInternalError("failed to look up client", err)
	}
	if !client.Enabled {
		return nil, fderrors.NewInvalidArgumentError("client is disabled", nil)
	}
	if err := client.ValidateRedirectURI(req.RedirectURI); err != nil {
		return nil, fderrors.NewInvalidArgumentError(err.Error(), err)
	}
	scopes, err := client.NarrowScopes(req.Scopes)
	if err != nil {
		return nil, fderrors.NewInvalidArgumentError(err.Error(), err)
	}

	id, err := crypto.RandomAlphanumeric(crypto.MinTokenLength)
	if err != nil {
		return nil, fderrors.NewInternalError("failed to generate session id", err)
	}
	xsrf, err := crypto.RandomAlphanumeric(crypto.MinTokenLength)
	if err != nil {
		return nil, fderrors.NewInternalError("failed to generate anti-forgery token", err)
	}

	session := Session{
		ID:        id,
		XSRFToken: xsrf,
		Client: ClientSnapshot{
			ID:                  client.ID,
			Scopes:              scopes,
			ForceMFA:            client.ForceMFA,
			RedirectURI:         req.RedirectURI,
			State:               req.State,
			Nonce:               req.Nonce,
			CodeChallenge:       req.CodeChallenge,
			CodeChallengeMethod: req.CodeChallengeMethod,
		},
		Provider: ProviderSnapshot{
			ID:            p.ID,
			Type:          p.Type,
			Issuer:        p.Issuer,
			TokenEndpoint: p.TokenEndpoint,
			ClientID:      p.ClientID,
			Secret:        p.Secret,
			AllowInsecure: p.AllowInsecureRequests,
			UsePKCE:       p.UsePKCE,
			RootPEM:       p.RootPEM,
		},
		PKCEChallenge: req.PKCEChallenge,
	}

	cookie, err := s.cookies.encode(id)
	if err != nil {
		return nil, fderrors.NewInternalError("failed to build callback cookie", err)
	}

	// Loss of this record only forces the user to restart the login.
	if err := cache.InsertJSON(ctx, s.cache, CacheNamespace, id, session, s.ttl, cache.AckOnce); err != nil {
		return nil, fderrors.NewInternalError("failed to store login session", err)
	}

	s.metrics.IncLoginStarted(p.ID)
	logger.Debugw("started upstream login", "provider_id", p.ID, "client_id", client.ID)

	return &StartResult{
		Cookie:         cookie,
		XSRFToken:      xsrf,
		Location:       s.authorizationURL(p, id, req.PKCEChallenge),
		AllowedOrigins: client.AllowedOrigins,
	}, nil
}

func (s *Service) authorizationURL(p *provider.Provider, state, pkceChallenge string) string {
	cfg := oauth2.Config{
		ClientID:    p.ClientID,
		Endpoint:    oauth2.Endpoint{AuthURL: p.AuthorizationEndpoint},
		RedirectURL: s.callbackURI,
		Scopes:      strings.Fields(p.Scope),
	}
	var opts []oauth2.AuthCodeOption
	if p.UsePKCE {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", pkceChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", crypto.PKCEChallengeMethodS256),
		)
	}
	return cfg.AuthCodeURL(state, opts...)
}

// Finish validates the callback and completes the login. cookieValue is the
// raw value of the callback cookie.
func (s *Service) Finish(ctx context.Context, cookieValue string, req CallbackRequest) (_ *FinishResult, retErr error) {
	ctx, finish := telemetry.StartSpan(ctx, s.tracer, "loginsession.finish", trace.SpanKindInternal)
	defer finish(&retErr)
	defer func() { s.recordOutcome(retErr) }()

	sessionID, err := s.cookies.decode(cookieValue)
	if err != nil {
		return nil, fderrors.NewUnauthorizedError("`state` does not match", err)
	}
	if sessionID != req.State {
		s.discard(ctx, sessionID)
		return nil, fderrors.NewUnauthorizedError("`state` does not match", nil)
	}

	// Take removes the record, so every check below is final for this login
	// and a concurrent second submission finds nothing.
	var session Session
	if err := cache.TakeJSON(ctx, s.cache, CacheNamespace, sessionID, &session); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, fderrors.NewNotFoundError("callback session not found, timeout reached?", nil)
		}
		return nil, fderrors.NewInternalError("failed to load login session", err)
	}

	if !crypto.ConstantTimeEqual(session.XSRFToken, req.XSRFToken) {
		return nil, fderrors.NewUnauthorizedError("invalid CSRF token", nil)
	}
	if !crypto.VerifyPKCE(req.PKCEVerifier, session.PKCEChallenge) {
		return nil, fderrors.NewUnauthorizedError("invalid PKCE verifier", nil)
	}

	p := &session.Provider
	client, err := s.newClient(p.AllowInsecure, p.RootPEM)
	if err != nil {
		return nil, fderrors.NewInternalError("failed to build upstream client", err)
	}

	idToken, err := s.exchangeCode(ctx, client, p, req.Code, req.PKCEVerifier)
	if err != nil {
		return nil, err
	}
	if s.verify {
		if err := s.verifyIDToken(ctx, client, p, idToken); err != nil {
			return nil, err
		}
	}

	res, err := s.reconciler.ValidateAndMerge(ctx, idToken, p.ID)
	if err != nil {
		return nil, err
	}

	if session.Client.ForceMFA {
		return s.beginStepUp(ctx, &session, res)
	}

	s.metrics.IncLoginFinished(metrics.OutcomeSuccess)
	logger.Infow("upstream login succeeded", "provider_id", p.ID, "client_id", session.Client.ID, "user_id", res.User.ID)
	return &FinishResult{
		User:          res.User,
		Client:        session.Client,
		PreviousEmail: res.PreviousEmail,
		Created:       res.Created,
		ClearCookie:   s.cookies.clear(),
	}, nil
}

func (s *Service) beginStepUp(ctx context.Context, session *Session, res *reconcile.Result) (*FinishResult, error) {
	if s.stepUp == nil {
		return nil, fderrors.NewInternalError("client requires MFA but step-up is not configured", nil)
	}

	ok, err := s.stepUp.HasAuthenticator(ctx, res.User.ID)
	if err != nil {
		return nil, fderrors.NewInternalError("failed to check authenticators", err)
	}
	if !ok {
		return nil, fderrors.NewMFARequiredError(
			"this client requires MFA, register a passkey or security key in your account before using it", nil)
	}

	challenge, err := s.stepUp.Begin(ctx, res.User)
	if err != nil {
		return nil, err
	}
	pending := pendingStepUp{
		User:          *res.User,
		Client:        session.Client,
		PreviousEmail: res.PreviousEmail,
		Created:       res.Created,
	}
	if err := cache.InsertJSON(ctx, s.cache, StepUpNamespace, challenge.ID, pending, s.ttl, cache.AckOnce); err != nil {
		return nil, fderrors.NewInternalError("failed to store pending step-up", err)
	}

	s.metrics.IncLoginFinished(metrics.OutcomeStepUp)
	logger.Infow("upstream login waiting for step-up", "client_id", session.Client.ID, "user_id", res.User.ID)
	return &FinishResult{
		Client:      session.Client,
		StepUp:      challenge,
		ClearCookie: s.cookies.clear(),
	}, nil
}

// CompleteStepUp verifies the assertion for a pending forced-MFA login and
// returns the authenticated user.
func (s *Service) CompleteStepUp(ctx context.Context, challengeID string, response []byte) (_ *FinishResult, retErr error) {
	ctx, finish := telemetry.StartSpan(ctx, s.tracer, "loginsession.stepup", trace.SpanKindInternal)
	defer finish(&retErr)
	defer func() { s.recordOutcome(retErr) }()

	if s.stepUp == nil {
		return nil, fderrors.NewNotFoundError("step-up challenge not found", nil)
	}

	var pending pendingStepUp
	if err := cache.TakeJSON(ctx, s.cache, StepUpNamespace, challengeID, &pending); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, fderrors.NewNotFoundError("step-up challenge not found", nil)
		}
		return nil, fderrors.NewInternalError("failed to load pending step-up", err)
	}

	userID, err := s.stepUp.Finish(ctx, challengeID, response)
	if err != nil {
		return nil, err
	}
	if userID != pending.User.ID {
		return nil, fderrors.NewUnauthorizedError("step-up was answered for a different user", nil)
	}

	s.metrics.IncLoginFinished(metrics.OutcomeSuccess)
	logger.Infow("upstream login succeeded after step-up", "client_id", pending.Client.ID, "user_id", userID)
	return &FinishResult{
		User:          &pending.User,
		Client:        pending.Client,
		PreviousEmail: pending.PreviousEmail,
		Created:       pending.Created,
	}, nil
}

// discard deletes a session record. Failures are logged; the caller is
// already returning an error.
func (s *Service) discard(ctx context.Context, sessionID string) {
	if err := s.cache.Delete(ctx, CacheNamespace, sessionID); err != nil {
		logger.Warnw("failed to delete login session", "error", err)
	}
}

func (s *Service) decryptSecret(sealed []byte) (string, error) {
	return provider.DecryptSecret(s.keys, sealed)
}

// recordOutcome counts failed callbacks by error type.
func (s *Service) recordOutcome(err error) {
	if err != nil {
		s.metrics.IncLoginFinished(fderrors.TypeOf(err))
	}
}

// ClearCookie returns a cookie that removes the callback cookie, for
// responses to failed callbacks.
func (s *Service) ClearCookie() *http.Cookie {
	return s.cookies.clear()
}
