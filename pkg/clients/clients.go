// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package clients describes the relying parties that may start an upstream
// login and the policy each one carries.
package clients

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/stacklok/fedauth/pkg/storage"
)

//go:generate mockgen -destination=mocks/mock_registry.go -package=mocks -source=clients.go Registry

var (
	// ErrScopeNotAllowed is returned when a client requests a scope outside its allow-list.
	ErrScopeNotAllowed = errors.New("scope not allowed for client")

	// ErrRedirectURINotAllowed is returned for a redirect URI the client did not register.
	ErrRedirectURINotAllowed = errors.New("redirect uri not registered for client")
)

// Client is a relying party registered with this identity provider.
type Client struct {
	ID      string `json:"id" mapstructure:"id"`
	Name    string `json:"name" mapstructure:"name"`
	Enabled bool   `json:"enabled" mapstructure:"enabled"`

	// RedirectURIs must match a login's redirect URI exactly.
	RedirectURIs []string `json:"redirect_uris" mapstructure:"redirect_uris"`
	// AllowedScopes is the scope allow-list; it is also the default when a
	// login requests no scope.
	AllowedScopes []string `json:"allowed_scopes" mapstructure:"allowed_scopes"`
	// AllowedOrigins are returned for CORS on login responses.
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
	// ForceMFA requires a second factor before tokens are issued.
	ForceMFA bool `json:"force_mfa" mapstructure:"force_mfa"`
}

// NarrowScopes validates requested against the allow-list and returns the
// deduplicated scopes to record for the login. An empty request yields the
// whole allow-list.
func (c *Client) NarrowScopes(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return slices.Clone(c.AllowedScopes), nil
	}
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		if !slices.Contains(c.AllowedScopes, s) {
			return nil, fmt.Errorf("%w: %s", ErrScopeNotAllowed, s)
		}
		out = append(out, s)
	}
	return out, nil
}

// ValidateRedirectURI checks uri against the registered redirect URIs.
func (c *Client) ValidateRedirectURI(uri string) error {
	if !slices.Contains(c.RedirectURIs, uri) {
		return ErrRedirectURINotAllowed
	}
	return nil
}

// Registry looks up clients.
type Registry interface {
	// Find returns the client or storage.ErrNotFound.
	Find(ctx context.Context, clientID string) (*Client, error)
}

// MemoryRegistry is a Registry over a fixed set of clients, typically loaded
// from configuration.
type MemoryRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewMemoryRegistry creates a registry holding copies of the given clients.
func NewMemoryRegistry(clients ...*Client) (*MemoryRegistry, error) {
	r := &MemoryRegistry{clients: make(map[string]*Client, len(clients))}
	for _, c := range clients {
		if err := r.Put(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Put adds or replaces a client.
func (r *MemoryRegistry) Put(c *Client) error {
	if c == nil || c.ID == "" {
		return errors.New("client id cannot be empty")
	}
	cp := *c
	cp.RedirectURIs = slices.Clone(c.RedirectURIs)
	cp.AllowedScopes = slices.Clone(c.AllowedScopes)
	cp.AllowedOrigins = slices.Clone(c.AllowedOrigins)

	r.mu.Lock()
	r.clients[c.ID] = &cp
	r.mu.Unlock()
	return nil
}

// Find implements Registry.
func (r *MemoryRegistry) Find(_ context.Context, clientID string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: client %s", storage.ErrNotFound, clientID)
	}
	cp := *c
	return &cp, nil
}
