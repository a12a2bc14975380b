// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package mfa

import (
	"bytes"
	"context"
	"sync"

	"github.com/go-webauthn/webauthn/webauthn"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go CredentialStore

// CredentialStore persists enrolled WebAuthn credentials.
type CredentialStore interface {
	// List returns the user's credentials, empty when none are enrolled.
	List(ctx context.Context, userID string) ([]webauthn.Credential, error)
	// Put inserts the credential or replaces the one with the same ID.
	Put(ctx context.Context, userID string, cred webauthn.Credential) error
}

// MemoryCredentialStore implements CredentialStore in memory.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[string][]webauthn.Credential
}

// NewMemoryCredentialStore creates an empty MemoryCredentialStore.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{creds: make(map[string][]webauthn.Credential)}
}

// List implements CredentialStore.
func (s *MemoryCredentialStore) List(_ context.Context, userID string) ([]webauthn.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]webauthn.Credential(nil), s.creds[userID]...), nil
}

// Put implements CredentialStore.
func (s *MemoryCredentialStore) Put(_ context.Context, userID string, cred webauthn.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.creds[userID]
	for i := range list {
		if bytes.Equal(list[i].ID, cred.ID) {
			list[i] = cred
			return nil
		}
	}
	s.creds[userID] = append(list, cred)
	return nil
}
