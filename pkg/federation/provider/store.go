// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/stacklok/fedauth/pkg/storage"
)

// Store is the durable source of truth for provider configuration.
type Store interface {
	// Create inserts p, failing with storage.ErrAlreadyExists on a duplicate id.
	Create(ctx context.Context, p *Provider) error
	// Get returns the provider or storage.ErrNotFound.
	Get(ctx context.Context, id string) (*Provider, error)
	// List returns all providers ordered by name.
	List(ctx context.Context) ([]*Provider, error)
	// Update replaces an existing provider or fails with storage.ErrNotFound.
	Update(ctx context.Context, p *Provider) error
	// Delete removes the provider or fails with storage.ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	providers map[string]*Provider
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{providers: make(map[string]*Provider)}
}

func clone(p *Provider) *Provider {
	c := *p
	c.Secret = slices.Clone(p.Secret)
	c.Logo = slices.Clone(p.Logo)
	return &c
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, p *Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[p.ID]; ok {
		return fmt.Errorf("%w: provider %s", storage.ErrAlreadyExists, p.ID)
	}
	s.providers[p.ID] = clone(p)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: provider %s", storage.ErrNotFound, id)
	}
	return clone(p), nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]*Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, p *Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[p.ID]; !ok {
		return fmt.Errorf("%w: provider %s", storage.ErrNotFound, p.ID)
	}
	s.providers[p.ID] = clone(p)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[id]; !ok {
		return fmt.Errorf("%w: provider %s", storage.ErrNotFound, id)
	}
	delete(s.providers, id)
	return nil
}
