// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package users

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/fedauth/pkg/storage"
)

// MemoryStore implements Store and ValuesStore with in-memory maps.
// It is safe for concurrent use and intended for development and tests.
type MemoryStore struct {
	mu sync.RWMutex

	users map[string]*User
	// byEmail maps lower-cased email -> user id.
	byEmail map[string]string
	values  map[string]*Values
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		values:  make(map[string]*Values),
	}
}

func emailKey(email string) string {
	return strings.ToLower(email)
}

// FindByID implements Store.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", storage.ErrNotFound, id)
	}
	return u.Clone(), nil
}

// FindByEmail implements Store.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, fmt.Errorf("%w: user with email", storage.ErrNotFound)
	}
	return s.users[id].Clone(), nil
}

// FindByFederationUID implements Store.
func (s *MemoryStore) FindByFederationUID(_ context.Context, subject string) (*User, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: empty federation uid", storage.ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.FederationUID == subject {
			return u.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: user with federation uid", storage.ErrNotFound)
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, user *User, previousEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("%w: user %s", storage.ErrNotFound, user.ID)
	}

	if !strings.EqualFold(current.Email, user.Email) {
		if owner, taken := s.byEmail[emailKey(user.Email)]; taken && owner != user.ID {
			return fmt.Errorf("%w: email", storage.ErrAlreadyExists)
		}
		delete(s.byEmail, emailKey(current.Email))
		if previousEmail != "" {
			delete(s.byEmail, emailKey(previousEmail))
		}
		s.byEmail[emailKey(user.Email)] = user.ID
	}

	s.users[user.ID] = user.Clone()
	return nil
}

// CreateFederated implements Store.
func (s *MemoryStore) CreateFederated(_ context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[emailKey(user.Email)]; taken {
		return nil, fmt.Errorf("%w: email", storage.ErrAlreadyExists)
	}

	created := user.Clone()
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if _, exists := s.users[created.ID]; exists {
		return nil, fmt.Errorf("%w: user %s", storage.ErrAlreadyExists, created.ID)
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	s.users[created.ID] = created
	s.byEmail[emailKey(created.Email)] = created.ID
	return created.Clone(), nil
}

// Find implements ValuesStore.
func (s *MemoryStore) Find(_ context.Context, userID string) (*Values, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[userID]
	if !ok {
		return nil, fmt.Errorf("%w: values for user %s", storage.ErrNotFound, userID)
	}
	c := &Values{}
	c.Merge(v)
	return c, nil
}

// Upsert implements ValuesStore.
func (s *MemoryStore) Upsert(_ context.Context, userID string, values *Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[userID]
	if !ok {
		v = &Values{}
		s.values[userID] = v
	}
	v.Merge(values)
	return nil
}
