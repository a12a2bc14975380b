// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package reconcile turns a validated upstream ID token into a local account.
//
// An account bound to an upstream identity (federation uid) can only be
// logged into by the same subject at the same provider. Any other upstream
// login presenting the account's email is rejected as forbidden and recorded
// as a failed login on the account.
package reconcile

import (
	"context"
	"errors"
	"time"

	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/logger"
	"github.com/stacklok/fedauth/pkg/storage"
	"github.com/stacklok/fedauth/pkg/users"
)

//go:generate mockgen -destination=mocks/mock_authenticators.go -package=mocks -source=reconciler.go AuthenticatorChecker

// AuthenticatorChecker reports whether a user has an enrolled second factor.
type AuthenticatorChecker interface {
	HasAuthenticator(ctx context.Context, userID string) (bool, error)
}

// Result is the outcome of a successful reconciliation.
type Result struct {
	User *users.User
	// PreviousEmail is set when the login changed the account's email.
	PreviousEmail string
	// Created is true when the login created the account.
	Created bool
}

// Reconciler merges upstream identities into local accounts.
type Reconciler struct {
	users          users.Store
	values         users.ValuesStore
	languages      *LanguageMatcher
	authenticators AuthenticatorChecker
	now            func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLanguages sets the matcher used for new accounts' display language.
func WithLanguages(m *LanguageMatcher) Option {
	return func(r *Reconciler) {
		r.languages = m
	}
}

// WithAuthenticators enables Disconnect.
func WithAuthenticators(a AuthenticatorChecker) Option {
	return func(r *Reconciler) {
		r.authenticators = a
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates a Reconciler.
func NewReconciler(userStore users.Store, valuesStore users.ValuesStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		users:  userStore,
		values: valuesStore,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.languages == nil {
		r.languages, _ = NewLanguageMatcher(DefaultLanguages, DefaultLanguages[0])
	}
	return r
}

// ValidateAndMerge decodes idToken, then updates the matching local account
// or creates a new one for providerID. Nothing is read from or written to
// the stores when the token is malformed or lacks a mandatory claim.
func (r *Reconciler) ValidateAndMerge(ctx context.Context, idToken, providerID string) (*Result, error) {
	claims, err := ParseClaims(idToken)
	if err != nil {
		return nil, err
	}

	existing, err := r.findExisting(ctx, claims)
	if err != nil {
		return nil, err
	}

	var result *Result
	if existing != nil {
		result, err = r.update(ctx, existing, claims, providerID)
	} else {
		result, err = r.create(ctx, claims, providerID)
	}
	if err != nil {
		return nil, err
	}

	if err := r.upsertValues(ctx, result.User.ID, claims); err != nil {
		return nil, err
	}
	return result, nil
}

// findExisting looks up by email first, then by upstream subject in case the
// email changed upstream since the last login. It returns nil, nil when
// neither matches.
func (r *Reconciler) findExisting(ctx context.Context, claims *Claims) (*users.User, error) {
	u, err := r.users.FindByEmail(ctx, *claims.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fderrors.NewInternalError("failed to look up user by email", err)
	}

	u, err = r.users.FindByFederationUID(ctx, claims.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fderrors.NewInternalError("failed to look up user by federation uid", err)
	}
	return nil, nil
}

func (r *Reconciler) update(ctx context.Context, u *users.User, claims *Claims, providerID string) (*Result, error) {
	now := r.now().UTC()

	// A local account with the same email must never be taken over.
	var reason string
	if u.FederationUID == "" || u.FederationUID != claims.Subject {
		reason = "non-federated user or ID mismatch"
	}
	if u.AuthProviderID != providerID {
		reason = "invalid login from wrong auth provider"
	}
	if reason != "" {
		u.LastFailedLogin = &now
		u.FailedLoginAttempts++
		if err := r.users.Save(ctx, u, ""); err != nil {
			return nil, fderrors.NewInternalError("failed to record failed login", err)
		}
		logger.Warnw("rejected upstream login for existing account",
			"user_id", u.ID, "provider_id", providerID, "reason", reason)
		return nil, fderrors.NewForbiddenError(reason, nil)
	}

	var previousEmail string
	if u.Email != *claims.Email {
		previousEmail = u.Email
		u.Email = *claims.Email
	}
	if claims.GivenName != nil && *claims.GivenName != u.GivenName {
		u.GivenName = *claims.GivenName
	}
	if claims.FamilyName != nil && *claims.FamilyName != u.FamilyName {
		u.FamilyName = *claims.FamilyName
	}
	u.LastLogin = &now
	u.LastFailedLogin = nil
	u.FailedLoginAttempts = 0

	if err := r.users.Save(ctx, u, previousEmail); err != nil {
		return nil, fderrors.NewInternalError("failed to update user", err)
	}
	if previousEmail != "" {
		logger.Infow("upstream email changed", "user_id", u.ID, "provider_id", providerID)
	}
	return &Result{User: u, PreviousEmail: previousEmail}, nil
}

func (r *Reconciler) create(ctx context.Context, claims *Claims, providerID string) (*Result, error) {
	now := r.now().UTC()
	locale := ""
	if claims.Locale != nil {
		locale = *claims.Locale
	}

	u := &users.User{
		Email:          *claims.Email,
		GivenName:      stringOr(claims.GivenName, users.PlaceholderName),
		FamilyName:     stringOr(claims.FamilyName, users.PlaceholderName),
		Language:       r.languages.Match(locale),
		Enabled:        true,
		EmailVerified:  claims.EmailVerifiedOrFalse(),
		CreatedAt:      now,
		LastLogin:      &now,
		AuthProviderID: providerID,
		FederationUID:  claims.Subject,
	}
	created, err := r.users.CreateFederated(ctx, u)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fderrors.NewForbiddenError("an account with this email already exists", err)
		}
		return nil, fderrors.NewInternalError("failed to create federated user", err)
	}
	logger.Infow("created federated user", "user_id", created.ID, "provider_id", providerID)
	return &Result{User: created, Created: true}, nil
}

// upsertValues stores the optional profile claims present in the token.
func (r *Reconciler) upsertValues(ctx context.Context, userID string, claims *Claims) error {
	v := &users.Values{
		Birthdate: claims.Birthdate,
		Phone:     claims.PhoneClaim(),
	}
	if a := claims.Address; a != nil {
		v.Street = a.StreetAddress
		v.City = a.Locality
		v.Country = a.Country
		if a.PostalCode != nil {
			zip := string(*a.PostalCode)
			v.Zip = &zip
		}
	}
	if v.IsEmpty() {
		return nil
	}
	if err := r.values.Upsert(ctx, userID, v); err != nil {
		return fderrors.NewInternalError("failed to update user values", err)
	}
	return nil
}

// Disconnect unbinds an account from its upstream provider. The account must
// have an enrolled authenticator so it can still log in afterwards.
func (r *Reconciler) Disconnect(ctx context.Context, userID string) (*users.User, error) {
	if r.authenticators == nil {
		return nil, fderrors.NewInternalError("account disconnect is not configured", nil)
	}

	u, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fderrors.NewNotFoundError("user not found", err)
		}
		return nil, fderrors.NewInternalError("failed to look up user", err)
	}
	if !u.IsFederated() && u.AuthProviderID == "" {
		return nil, fderrors.NewInvalidArgumentError("user is not linked to an upstream provider", nil)
	}

	ok, err := r.authenticators.HasAuthenticator(ctx, userID)
	if err != nil {
		return nil, fderrors.NewInternalError("failed to check authenticators", err)
	}
	if !ok {
		return nil, fderrors.NewMFARequiredError(
			"enroll a passkey or security key before disconnecting the upstream provider", nil)
	}

	providerID := u.AuthProviderID
	u.AuthProviderID = ""
	u.FederationUID = ""
	if err := r.users.Save(ctx, u, ""); err != nil {
		return nil, fderrors.NewInternalError("failed to update user", err)
	}
	logger.Infow("disconnected user from upstream provider", "user_id", userID, "provider_id", providerID)
	return u, nil
}

func stringOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
