// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/fedauth/pkg/storage"
)

func ptr(s string) *string { return &s }

func TestMemoryStore_CreateAndFind(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	created, err := s.CreateFederated(t.Context(), &User{
		Email:          "Alice@Example.com",
		GivenName:      "Alice",
		Enabled:        true,
		AuthProviderID: "p1",
		FederationUID:  "sub-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byEmail, err := s.FindByEmail(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byUID, err := s.FindByFederationUID(t.Context(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUID.ID)

	byID, err := s.FindByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", byID.GivenName)

	_, err = s.CreateFederated(t.Context(), &User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestMemoryStore_NotFound(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()

	_, err := s.FindByID(t.Context(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindByEmail(t.Context(), "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindByFederationUID(t.Context(), "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.Find(t.Context(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Save(t.Context(), &User{ID: "nope"}, ""), storage.ErrNotFound)
}

func TestMemoryStore_SaveChangesEmailIndex(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	u, err := s.CreateFederated(t.Context(), &User{Email: "old@example.com"})
	require.NoError(t, err)
	other, err := s.CreateFederated(t.Context(), &User{Email: "other@example.com"})
	require.NoError(t, err)

	u.Email = "new@example.com"
	require.NoError(t, s.Save(t.Context(), u, "old@example.com"))

	_, err = s.FindByEmail(t.Context(), "old@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	found, err := s.FindByEmail(t.Context(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	other.Email = "new@example.com"
	assert.ErrorIs(t, s.Save(t.Context(), other, "other@example.com"), storage.ErrAlreadyExists)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	u, err := s.CreateFederated(t.Context(), &User{Email: "a@example.com", GivenName: "A"})
	require.NoError(t, err)

	u.GivenName = "mutated"
	again, err := s.FindByID(t.Context(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.GivenName)
}

func TestMemoryStore_UpsertMergesPresentFields(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	require.NoError(t, s.Upsert(t.Context(), "u1", &Values{Phone: ptr("+49 1"), City: ptr("Berlin")}))
	require.NoError(t, s.Upsert(t.Context(), "u1", &Values{Birthdate: ptr("1990-01-01"), City: ptr("Hamburg")}))

	v, err := s.Find(t.Context(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "+49 1", *v.Phone, "absent field keeps stored value")
	assert.Equal(t, "Hamburg", *v.City)
	assert.Equal(t, "1990-01-01", *v.Birthdate)
	assert.Nil(t, v.Street)
}

func TestValues_IsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Values{}).IsEmpty())
	assert.False(t, (&Values{Zip: ptr("10115")}).IsEmpty())
}

func TestUser_IsFederated(t *testing.T) {
	t.Parallel()

	assert.False(t, (&User{}).IsFederated())
	assert.True(t, (&User{FederationUID: "x"}).IsFederated())
}
