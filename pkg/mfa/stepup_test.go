// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package mfa

import (
	"context"
	"errors"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/fedauth/pkg/cache"
	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/mfa/mocks"
	"github.com/stacklok/fedauth/pkg/users"
)

var testConfig = Config{
	RPID:          "idp.example.com",
	RPDisplayName: "Example IdP",
	RPOrigins:     []string{"https://idp.example.com"},
}

func testUser() *users.User {
	return &users.User{ID: "user-1", Email: "alice@example.com", GivenName: "Alice", FamilyName: "Liddell"}
}

// fakeProvider validates any response and bumps the sign count.
type fakeProvider struct {
	validateErr error
	validated   webauthn.User
}

func (f *fakeProvider) BeginLogin(user webauthn.User, _ ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error) {
	return &protocol.CredentialAssertion{
			Response: protocol.PublicKeyCredentialRequestOptions{Challenge: protocol.URLEncodedBase64("challenge")},
		}, &webauthn.SessionData{
			Challenge: "challenge",
			UserID:    user.WebAuthnID(),
		}, nil
}

func (f *fakeProvider) ValidateLogin(user webauthn.User, session webauthn.SessionData, _ *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error) {
	f.validated = user
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	if session.Challenge != "challenge" {
		return nil, errors.New("unexpected session")
	}
	cred := user.WebAuthnCredentials()[0]
	cred.Authenticator.SignCount++
	return &cred, nil
}

func okParser([]byte) (*protocol.ParsedCredentialAssertionData, error) {
	return &protocol.ParsedCredentialAssertionData{}, nil
}

func enrolledStore(t *testing.T) *MemoryCredentialStore {
	t.Helper()
	store := NewMemoryCredentialStore()
	require.NoError(t, store.Put(t.Context(), "user-1", webauthn.Credential{
		ID:            []byte("cred-1"),
		PublicKey:     []byte("public-key"),
		Authenticator: webauthn.Authenticator{SignCount: 4},
	}))
	return store
}

func TestStepUp_BeginAndFinish(t *testing.T) {
	t.Parallel()

	store := enrolledStore(t)
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	provider := &fakeProvider{}
	s := newStepUp(provider, okParser, store, c)

	challenge, err := s.Begin(t.Context(), testUser())
	require.NoError(t, err)
	assert.Len(t, challenge.ID, 32)
	require.NotNil(t, challenge.Options)

	userID, err := s.Finish(t.Context(), challenge.ID, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "Alice Liddell", provider.validated.WebAuthnDisplayName())
	assert.Equal(t, "alice@example.com", provider.validated.WebAuthnName())

	creds, err := store.List(t.Context(), "user-1")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, uint32(5), creds[0].Authenticator.SignCount)

	_, err = s.Finish(t.Context(), challenge.ID, []byte(`{}`))
	require.Error(t, err)
	assert.True(t, fderrors.IsNotFound(err), "a challenge is single use")
}

func TestStepUp_BeginWithoutCredentials(t *testing.T) {
	t.Parallel()

	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	s := newStepUp(&fakeProvider{}, okParser, NewMemoryCredentialStore(), c)

	has, err := s.HasAuthenticator(t.Context(), "user-1")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.Begin(t.Context(), testUser())
	require.Error(t, err)
	assert.True(t, fderrors.IsMFARequired(err))
}

func TestStepUp_FinishFailuresConsumeChallenge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider *fakeProvider
		parse    assertionParser
	}{
		{
			name:     "unparsable response",
			provider: &fakeProvider{},
			parse: func([]byte) (*protocol.ParsedCredentialAssertionData, error) {
				return nil, errors.New("bad json")
			},
		},
		{
			name:     "signature rejected",
			provider: &fakeProvider{validateErr: errors.New("bad signature")},
			parse:    okParser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := cache.NewMemoryCache()
			t.Cleanup(func() { _ = c.Close() })
			s := newStepUp(tt.provider, tt.parse, enrolledStore(t), c)

			challenge, err := s.Begin(t.Context(), testUser())
			require.NoError(t, err)

			_, err = s.Finish(t.Context(), challenge.ID, []byte(`{}`))
			require.Error(t, err)
			assert.True(t, fderrors.IsUnauthorized(err))

			_, err = s.Finish(t.Context(), challenge.ID, []byte(`{}`))
			assert.True(t, fderrors.IsNotFound(err))
		})
	}
}

func TestStepUp_StoreErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockCredentialStore(ctrl)
	store.EXPECT().List(gomock.Any(), "user-1").Return(nil, errors.New("db down")).Times(2)

	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	s := newStepUp(&fakeProvider{}, okParser, store, c)

	_, err := s.HasAuthenticator(t.Context(), "user-1")
	assert.Error(t, err)

	_, err = s.Begin(t.Context(), testUser())
	require.Error(t, err)
	assert.True(t, fderrors.IsInternal(err))
}

func TestNewWebAuthnStepUp_IssuesAssertionForEnrolledCredentials(t *testing.T) {
	t.Parallel()

	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	s, err := NewWebAuthnStepUp(testConfig, enrolledStore(t), c)
	require.NoError(t, err)

	challenge, err := s.Begin(t.Context(), testUser())
	require.NoError(t, err)

	opts := challenge.Options.Response
	assert.Equal(t, "idp.example.com", opts.RelyingPartyID)
	assert.NotEmpty(t, opts.Challenge)
	require.Len(t, opts.AllowedCredentials, 1)
	assert.Equal(t, []byte("cred-1"), []byte(opts.AllowedCredentials[0].CredentialID))

	var pending pendingChallenge
	require.NoError(t, cache.GetJSON(context.Background(), c, CacheNamespace, challenge.ID, &pending))
	assert.Equal(t, "user-1", pending.UserID)
	assert.Equal(t, opts.Challenge.String(), pending.Session.Challenge)
}

func TestNewWebAuthnStepUp_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewWebAuthnStepUp(Config{}, NewMemoryCredentialStore(), cache.NewMemoryCache())
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a@example.com", displayName(&users.User{Email: "a@example.com", GivenName: users.PlaceholderName}))
	assert.Equal(t, "Alice", displayName(&users.User{Email: "a@example.com", GivenName: "Alice", FamilyName: users.PlaceholderName}))
	assert.Equal(t, "Alice Liddell", displayName(testUser()))
}
