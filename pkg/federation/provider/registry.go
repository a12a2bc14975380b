// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/fedauth/pkg/cache"
	"github.com/stacklok/fedauth/pkg/encryption"
	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/logger"
	"github.com/stacklok/fedauth/pkg/metrics"
	"github.com/stacklok/fedauth/pkg/storage"
)

const (
	// CacheNamespace holds single providers by id plus the aggregate entries.
	CacheNamespace = "providers"

	// DefaultCacheTTL bounds how long provider configuration stays cached.
	DefaultCacheTTL = 12 * time.Hour

	cacheKeyAll       = "_all"
	cacheKeyTemplates = "_templates"
)

// Registry owns provider configuration. Reads are cache first; writes go to
// the durable store and then invalidate the cached aggregates.
type Registry struct {
	store   Store
	cache   cache.Cache
	keys    *encryption.KeyProvider
	ttl     time.Duration
	metrics *metrics.Metrics

	// mu orders cache refills after durable reads against writes on this
	// node, so a refill never re-inserts a value older than a completed write.
	mu    sync.RWMutex
	loads singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithCacheTTL overrides DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates a Registry.
func NewRegistry(store Store, c cache.Cache, keys *encryption.KeyProvider, opts ...Option) *Registry {
	r := &Registry{
		store: store,
		cache: c,
		keys:  keys,
		ttl:   DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates req, stores a new provider and caches it.
func (r *Registry) Create(ctx context.Context, req Request) (*Provider, error) {
	p, err := r.build(uuid.New().String(), req)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Create(ctx, p); err != nil {
		return nil, fderrors.NewInternalError("failed to store provider", err)
	}
	r.afterWrite(ctx, p.ID, p)

	logger.Infow("created upstream provider", "provider_id", p.ID, "name", p.Name)
	return p, nil
}

// Update re-derives the provider from req and replaces the stored record.
// Logo data is kept. A request without a secret clears the stored secret.
func (r *Registry) Update(ctx context.Context, id string, req Request) (*Provider, error) {
	p, err := r.build(id, req)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, id)
	}
	p.Logo = existing.Logo
	p.LogoType = existing.LogoType

	if err := r.store.Update(ctx, p); err != nil {
		return nil, mapStoreError(err, id)
	}
	r.afterWrite(ctx, id, p)

	logger.Infow("updated upstream provider", "provider_id", id)
	return p, nil
}

// Delete removes the provider from the store and the cache.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, id); err != nil {
		return mapStoreError(err, id)
	}
	r.afterWrite(ctx, id, nil)

	logger.Infow("deleted upstream provider", "provider_id", id)
	return nil
}

// Find returns the provider with the given id.
func (r *Registry) Find(ctx context.Context, id string) (*Provider, error) {
	var p Provider
	if r.cacheGet(ctx, id, &p) {
		return &p, nil
	}

	v, err, _ := r.loads.Do("id:"+id, func() (any, error) {
		r.mu.RLock()
		defer r.mu.RUnlock()

		loaded, err := r.store.Get(ctx, id)
		if err != nil {
			return nil, mapStoreError(err, id)
		}
		r.cachePut(ctx, id, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.(*Provider)), nil
}

// FindAll returns every configured provider.
func (r *Registry) FindAll(ctx context.Context) ([]*Provider, error) {
	var all []*Provider
	if r.cacheGet(ctx, cacheKeyAll, &all) {
		return all, nil
	}

	loaded, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Provider, len(loaded))
	for i, p := range loaded {
		out[i] = clone(p)
	}
	return out, nil
}

// Templates returns the login page projection of every provider.
func (r *Registry) Templates(ctx context.Context) ([]Template, error) {
	var templates []Template
	if r.cacheGet(ctx, cacheKeyTemplates, &templates) {
		return templates, nil
	}

	loaded, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return templatesOf(loaded), nil
}

// loadAll lists the store and refills both aggregates from that one read.
// The list and the refill happen under r.mu so a write completed before the
// refill cannot be overwritten by older data.
func (r *Registry) loadAll(ctx context.Context) ([]*Provider, error) {
	v, err, _ := r.loads.Do(cacheKeyAll, func() (any, error) {
		r.mu.RLock()
		defer r.mu.RUnlock()

		loaded, err := r.store.List(ctx)
		if err != nil {
			return nil, fderrors.NewInternalError("failed to list providers", err)
		}
		r.cachePut(ctx, cacheKeyAll, loaded)
		r.cachePut(ctx, cacheKeyTemplates, templatesOf(loaded))
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Provider), nil
}

func templatesOf(all []*Provider) []Template {
	templates := make([]Template, 0, len(all))
	for _, p := range all {
		templates = append(templates, Template{ID: p.ID, Name: p.Name, UsePKCE: p.UsePKCE})
	}
	return templates
}

// ClientSecret decrypts the provider's client secret. The plaintext must
// only be held for the duration of one outbound request.
func (r *Registry) ClientSecret(p *Provider) (string, error) {
	return DecryptSecret(r.keys, p.Secret)
}

// DecryptSecret decrypts a sealed client secret. An empty input yields an
// empty secret; a decryption failure is an internal error.
func DecryptSecret(keys *encryption.KeyProvider, sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	secret, err := keys.DecryptString(sealed)
	if err != nil {
		return "", fderrors.NewInternalError("failed to decrypt provider client secret", err)
	}
	return secret, nil
}

func (r *Registry) build(id string, req Request) (*Provider, error) {
	if err := req.Validate(); err != nil {
		return nil, fderrors.NewInvalidArgumentError(err.Error(), nil)
	}
	typ, _ := ParseType(req.Type)

	p := &Provider{
		ID:                    id,
		Name:                  req.Name,
		Type:                  typ,
		Issuer:                req.Issuer,
		AuthorizationEndpoint: req.AuthorizationEndpoint,
		TokenEndpoint:         req.TokenEndpoint,
		UserinfoEndpoint:      req.UserinfoEndpoint,
		ClientID:              req.ClientID,
		Scope:                 NormalizeScope(req.Scope),
		AllowInsecureRequests: req.AllowInsecureRequests,
		UsePKCE:               req.UsePKCE && typ.Capabilities().PKCE,
		RootPEM:               req.RootPEM,
	}
	if req.ClientSecret != nil && *req.ClientSecret != "" {
		sealed, err := r.keys.EncryptString(*req.ClientSecret)
		if err != nil {
			return nil, fderrors.NewInternalError("failed to encrypt provider client secret", err)
		}
		p.Secret = sealed
	}
	return p, nil
}

// afterWrite drops the aggregates and refreshes the single entry. Called
// with r.mu held for writing, right after the durable write succeeded.
func (r *Registry) afterWrite(ctx context.Context, id string, p *Provider) {
	for _, key := range []string{cacheKeyAll, cacheKeyTemplates} {
		if err := r.cache.Delete(ctx, CacheNamespace, key); err != nil {
			logger.Warnw("failed to invalidate provider cache", "key", key, "error", err)
		}
	}
	if p == nil {
		if err := r.cache.Delete(ctx, CacheNamespace, id); err != nil {
			logger.Warnw("failed to invalidate provider cache", "provider_id", id, "error", err)
		}
		return
	}
	r.cachePut(ctx, id, p)
}

// cacheGet reports a hit. Cache failures count as a miss so the durable
// store keeps serving logins while the cache is unavailable.
func (r *Registry) cacheGet(ctx context.Context, key string, dst any) bool {
	err := cache.GetJSON(ctx, r.cache, CacheNamespace, key, dst)
	if err == nil {
		r.metrics.IncProviderCache(true)
		return true
	}
	if !errors.Is(err, cache.ErrNotFound) {
		logger.Warnw("provider cache read failed", "key", key, "error", err)
	}
	r.metrics.IncProviderCache(false)
	return false
}

func (r *Registry) cachePut(ctx context.Context, key string, value any) {
	if err := cache.InsertJSON(ctx, r.cache, CacheNamespace, key, value, r.ttl, cache.AckQuorum); err != nil {
		// a stale single entry would outlive the write, so drop it instead
		logger.Warnw("provider cache write failed", "key", key, "error", err)
		_ = r.cache.Delete(ctx, CacheNamespace, key)
	}
}

func mapStoreError(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fderrors.NewNotFoundError(fmt.Sprintf("provider %s not found", id), err)
	}
	return fderrors.NewInternalError("provider store failure", err)
}
