// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mfa performs WebAuthn step-up challenges for clients that force a
// second factor after an upstream login.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/stacklok/fedauth/pkg/cache"
	"github.com/stacklok/fedauth/pkg/crypto"
	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/logger"
	"github.com/stacklok/fedauth/pkg/users"
)

// CacheNamespace holds pending step-up challenges.
const CacheNamespace = "mfa_stepup"

// DefaultChallengeTTL bounds how long a step-up challenge can be answered.
const DefaultChallengeTTL = 5 * time.Minute

// Config is the WebAuthn relying party.
type Config struct {
	RPID          string   `mapstructure:"rp_id"`
	RPDisplayName string   `mapstructure:"rp_display_name"`
	RPOrigins     []string `mapstructure:"rp_origins"`
}

// Challenge is returned to the browser to run navigator.credentials.get.
type Challenge struct {
	ID      string                        `json:"id"`
	Options *protocol.CredentialAssertion `json:"options"`
}

type assertionProvider interface {
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
}

type assertionParser func(data []byte) (*protocol.ParsedCredentialAssertionData, error)

// pendingChallenge is the cache record of an issued challenge.
type pendingChallenge struct {
	UserID      string               `json:"user_id"`
	Name        string               `json:"name"`
	DisplayName string               `json:"display_name"`
	Session     webauthn.SessionData `json:"session"`
}

// WebAuthnStepUp issues and verifies assertion challenges against a user's
// enrolled credentials.
type WebAuthnStepUp struct {
	provider assertionProvider
	parse    assertionParser
	store    CredentialStore
	cache    cache.Cache
	ttl      time.Duration
}

// Option configures a WebAuthnStepUp.
type Option func(*WebAuthnStepUp)

// WithChallengeTTL overrides DefaultChallengeTTL.
func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *WebAuthnStepUp) {
		s.ttl = ttl
	}
}

// NewWebAuthnStepUp creates a WebAuthnStepUp for the relying party in cfg.
func NewWebAuthnStepUp(cfg Config, store CredentialStore, c cache.Cache, opts ...Option) (*WebAuthnStepUp, error) {
	w, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure webauthn: %w", err)
	}
	return newStepUp(w, protocol.ParseCredentialRequestResponseBytes, store, c, opts...), nil
}

func newStepUp(p assertionProvider, parse assertionParser, store CredentialStore, c cache.Cache, opts ...Option) *WebAuthnStepUp {
	s := &WebAuthnStepUp{
		provider: p,
		parse:    parse,
		store:    store,
		cache:    c,
		ttl:      DefaultChallengeTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasAuthenticator reports whether the user has at least one credential.
func (s *WebAuthnStepUp) HasAuthenticator(ctx context.Context, userID string) (bool, error) {
	creds, err := s.store.List(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to list credentials: %w", err)
	}
	return len(creds) > 0, nil
}

// Begin issues a challenge for one of the user's credentials. A user without
// credentials gets an mfa_required error.
func (s *WebAuthnStepUp) Begin(ctx context.Context, u *users.User) (*Challenge, error) {
	creds, err := s.store.List(ctx, u.ID)
	if err != nil {
		return nil, fderrors.NewInternalError("failed to list credentials", err)
	}
	if len(creds) == 0 {
		return nil, fderrors.NewMFARequiredError("no enrolled authenticator", nil)
	}

	wu := &webauthnUser{id: u.ID, name: u.Email, displayName: displayName(u), credentials: creds}
	assertion, session, err := s.provider.BeginLogin(wu,
		webauthn.WithUserVerification(protocol.VerificationPreferred))
	if err != nil {
		return nil, fderrors.NewInternalError("failed to begin webauthn assertion", err)
	}

	id, err := crypto.RandomAlphanumeric(crypto.MinTokenLength)
	if err != nil {
		return nil, fderrors.NewInternalError("failed to generate challenge id", err)
	}
	pending := pendingChallenge{
		UserID:      u.ID,
		Name:        wu.name,
		DisplayName: wu.displayName,
		Session:     *session,
	}
	if err := cache.InsertJSON(ctx, s.cache, CacheNamespace, id, pending, s.ttl, cache.AckOnce); err != nil {
		return nil, fderrors.NewInternalError("failed to store step-up challenge", err)
	}

	logger.Debugw("issued webauthn step-up challenge", "user_id", u.ID)
	return &Challenge{ID: id, Options: assertion}, nil
}

// Finish verifies the assertion response for challengeID and returns the user
// id. The challenge is consumed whether or not verification succeeds.
func (s *WebAuthnStepUp) Finish(ctx context.Context, challengeID string, response []byte) (string, error) {
	var pending pendingChallenge
	if err := cache.TakeJSON(ctx, s.cache, CacheNamespace, challengeID, &pending); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return "", fderrors.NewNotFoundError("step-up challenge not found", nil)
		}
		return "", fderrors.NewInternalError("failed to load step-up challenge", err)
	}

	parsed, err := s.parse(response)
	if err != nil {
		return "", fderrors.NewUnauthorizedError("invalid webauthn response", err)
	}

	creds, err := s.store.List(ctx, pending.UserID)
	if err != nil {
		return "", fderrors.NewInternalError("failed to list credentials", err)
	}
	wu := &webauthnUser{id: pending.UserID, name: pending.Name, displayName: pending.DisplayName, credentials: creds}

	cred, err := s.provider.ValidateLogin(wu, pending.Session, parsed)
	if err != nil {
		logger.Warnw("webauthn step-up verification failed", "user_id", pending.UserID, "error", err)
		return "", fderrors.NewUnauthorizedError("webauthn verification failed", err)
	}
	if cred.Authenticator.CloneWarning {
		logger.Warnw("webauthn authenticator reported a sign count regression", "user_id", pending.UserID)
	}
	if err := s.store.Put(ctx, pending.UserID, *cred); err != nil {
		return "", fderrors.NewInternalError("failed to update credential", err)
	}
	return pending.UserID, nil
}

func displayName(u *users.User) string {
	if u.GivenName == "" || u.GivenName == users.PlaceholderName {
		return u.Email
	}
	if u.FamilyName == "" || u.FamilyName == users.PlaceholderName {
		return u.GivenName
	}
	return u.GivenName + " " + u.FamilyName
}

// webauthnUser adapts a local account to webauthn.User.
type webauthnUser struct {
	id          string
	name        string
	displayName string
	credentials []webauthn.Credential
}

func (u *webauthnUser) WebAuthnID() []byte {
	return []byte(u.id)
}

func (u *webauthnUser) WebAuthnName() string {
	return u.name
}

func (u *webauthnUser) WebAuthnDisplayName() string {
	return u.displayName
}

func (u *webauthnUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
