// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/fedauth/pkg/cache"
	"github.com/stacklok/fedauth/pkg/encryption"
	"github.com/stacklok/fedauth/pkg/federation/provider"
	"github.com/stacklok/fedauth/pkg/storage"
	"github.com/stacklok/fedauth/pkg/users"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.Context(), filepath.Join(t.TempDir(), "fedauth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fedauth.db")
	db, err := Open(t.Context(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening an up-to-date database applies nothing and succeeds.
	db, err = Open(t.Context(), path)
	require.NoError(t, err)
	require.NoError(t, db.Ping(t.Context()))
	require.NoError(t, db.Close())

	_, err = Open(t.Context(), "  ")
	assert.Error(t, err)
}

func TestProviderStore(t *testing.T) {
	t.Parallel()

	s := NewProviderStore(openTestDB(t))
	ctx := t.Context()

	google := &provider.Provider{
		ID: "p1", Name: "Google", Type: provider.TypeOIDC,
		Issuer:                "https://accounts.google.com",
		AuthorizationEndpoint: "https://accounts.google.com/o/oauth2/v2/auth",
		TokenEndpoint:         "https://oauth2.googleapis.com/token",
		ClientID:              "client",
		Secret:                []byte("k1/sealed"),
		Scope:                 "openid email",
		UsePKCE:               true,
		Logo:                  []byte{0x89, 'P', 'N', 'G'},
		LogoType:              "image/png",
	}
	azure := &provider.Provider{
		ID: "p2", Name: "Azure", Type: provider.TypeOIDC,
		Issuer:                "https://login.microsoftonline.com/tenant/v2.0",
		AuthorizationEndpoint: "https://login.microsoftonline.com/tenant/oauth2/v2.0/authorize",
		TokenEndpoint:         "https://login.microsoftonline.com/tenant/oauth2/v2.0/token",
		ClientID:              "client",
		Scope:                 "openid",
		AllowInsecureRequests: true,
	}
	require.NoError(t, s.Create(ctx, google))
	require.NoError(t, s.Create(ctx, azure))

	err := s.Create(ctx, google)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, google, got)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Azure", list[0].Name)
	assert.Nil(t, list[0].Secret)
	assert.True(t, list[0].AllowInsecureRequests)

	google.Name = "Google Workspace"
	google.Secret = nil
	require.NoError(t, s.Update(ctx, google))
	got, err = s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Google Workspace", got.Name)
	assert.False(t, got.HasSecret())

	assert.ErrorIs(t, s.Update(ctx, &provider.Provider{ID: "missing"}), storage.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "p1"))
	_, err = s.Get(ctx, "p1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "p1"), storage.ErrNotFound)
}

func TestProviderStore_BacksRegistry(t *testing.T) {
	t.Parallel()

	keys, err := encryption.NewKeyProvider("k1", map[string][]byte{"k1": make([]byte, 32)})
	require.NoError(t, err)
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })

	db := openTestDB(t)
	registry := provider.NewRegistry(NewProviderStore(db), c, keys)
	created, err := registry.Create(t.Context(), provider.Request{
		Name:                  "Upstream",
		Issuer:                "https://idp.example.com",
		AuthorizationEndpoint: "https://idp.example.com/authorize",
		TokenEndpoint:         "https://idp.example.com/token",
		ClientID:              "client",
		ClientSecret:          ptr("s3cret"),
		Scope:                 "openid email",
	})
	require.NoError(t, err)

	// A second registry on the same database sees the provider and can
	// still open its secret.
	freshCache := cache.NewMemoryCache()
	t.Cleanup(func() { _ = freshCache.Close() })
	fresh := provider.NewRegistry(NewProviderStore(db), freshCache, keys)
	got, err := fresh.Find(t.Context(), created.ID)
	require.NoError(t, err)
	secret, err := fresh.ClientSecret(got)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret)
}

func TestUserStore(t *testing.T) {
	t.Parallel()

	s := NewUserStore(openTestDB(t))
	ctx := t.Context()
	now := time.Date(2025, 3, 1, 10, 0, 0, 123, time.UTC)

	created, err := s.CreateFederated(ctx, &users.User{
		Email: "Alice@Example.com", GivenName: "Alice", FamilyName: users.PlaceholderName,
		Language: "en", Enabled: true, EmailVerified: true,
		CreatedAt: now, LastLogin: &now,
		AuthProviderID: "p1", FederationUID: "U1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	_, err = s.CreateFederated(ctx, &users.User{Email: "alice@example.com", Language: "en"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists, "email uniqueness ignores case")

	byEmail, err := s.FindByEmail(ctx, "alice@example.COM")
	require.NoError(t, err)
	assert.Equal(t, created, byEmail)

	byUID, err := s.FindByFederationUID(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUID.ID)

	_, err = s.FindByFederationUID(ctx, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	byUID.Email = "alice@new.example.com"
	byUID.FailedLoginAttempts = 2
	byUID.LastFailedLogin = &now
	byUID.LastLogin = nil
	require.NoError(t, s.Save(ctx, byUID, "Alice@Example.com"))

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@new.example.com", got.Email)
	assert.Equal(t, 2, got.FailedLoginAttempts)
	assert.Nil(t, got.LastLogin)
	require.NotNil(t, got.LastFailedLogin)
	assert.True(t, now.Equal(*got.LastFailedLogin))

	_, err = s.FindByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	other, err := s.CreateFederated(ctx, &users.User{Email: "bob@example.com", Language: "de"})
	require.NoError(t, err)
	other.Email = "alice@new.example.com"
	assert.ErrorIs(t, s.Save(ctx, other, "bob@example.com"), storage.ErrAlreadyExists)

	assert.ErrorIs(t, s.Save(ctx, &users.User{ID: "missing", Email: "x@example.com"}, ""), storage.ErrNotFound)
}

func TestUserStore_Values(t *testing.T) {
	t.Parallel()

	s := NewUserStore(openTestDB(t))
	ctx := t.Context()

	u, err := s.CreateFederated(ctx, &users.User{Email: "carol@example.com", Language: "en"})
	require.NoError(t, err)

	_, err = s.Find(ctx, u.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Upsert(ctx, u.ID, &users.Values{
		Birthdate: ptr("1990-01-02"),
		City:      ptr("Berlin"),
		Zip:       ptr("10115"),
	}))
	require.NoError(t, s.Upsert(ctx, u.ID, &users.Values{
		Phone: ptr("+49 30 1234"),
		City:  ptr("Hamburg"),
	}))

	v, err := s.Find(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, &users.Values{
		Birthdate: ptr("1990-01-02"),
		Phone:     ptr("+49 30 1234"),
		Zip:       ptr("10115"),
		City:      ptr("Hamburg"),
	}, v)
}

func TestCredentialStore(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	userStore := NewUserStore(db)
	s := NewCredentialStore(db)
	ctx := t.Context()

	u, err := userStore.CreateFederated(ctx, &users.User{Email: "dave@example.com", Language: "en"})
	require.NoError(t, err)

	creds, err := s.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, creds)

	first := webauthn.Credential{ID: []byte("cred-1"), PublicKey: []byte("pk-1")}
	second := webauthn.Credential{ID: []byte("cred-2"), PublicKey: []byte("pk-2")}
	require.NoError(t, s.Put(ctx, u.ID, first))
	require.NoError(t, s.Put(ctx, u.ID, second))

	first.Authenticator.SignCount = 7
	require.NoError(t, s.Put(ctx, u.ID, first))

	creds, err = s.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, []byte("cred-1"), creds[0].ID)
	assert.Equal(t, uint32(7), creds[0].Authenticator.SignCount)
	assert.Equal(t, []byte("cred-2"), creds[1].ID)

	assert.Error(t, s.Put(ctx, "unknown-user", first), "credentials belong to an existing user")
}
