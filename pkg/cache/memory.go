// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often expired entries are purged.
const DefaultCleanupInterval = time.Minute

type entryKey struct {
	namespace string
	key       string
}

type timedEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *timedEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is a single-node Cache. Both ack levels are satisfied as soon
// as the map is updated.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[entryKey]*timedEntry

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupDone     chan struct{}
	closeOnce       sync.Once
	now             func() time.Time
}

// MemoryCacheOption configures a MemoryCache instance.
type MemoryCacheOption func(*MemoryCache)

// WithCleanupInterval sets a custom cleanup interval.
func WithCleanupInterval(interval time.Duration) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.cleanupInterval = interval
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a MemoryCache and starts its cleanup goroutine.
func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		entries:         make(map[entryKey]*timedEntry),
		cleanupInterval: DefaultCleanupInterval,
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupLoop()

	return c
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, namespace, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[entryKey{namespace, key}]
	if !ok || e.expired(c.now()) {
		return nil, ErrNotFound
	}
	return slices.Clone(e.value), nil
}

// Insert implements Cache.
func (c *MemoryCache) Insert(_ context.Context, namespace, key string, value []byte, ttl time.Duration, _ AckLevel) error {
	e := &timedEntry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[entryKey{namespace, key}] = e
	c.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, namespace, key string) error {
	c.mu.Lock()
	delete(c.entries, entryKey{namespace, key})
	c.mu.Unlock()
	return nil
}

// Take implements Cache.
func (c *MemoryCache) Take(_ context.Context, namespace, key string) ([]byte, error) {
	k := entryKey{namespace, key}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return nil, ErrNotFound
	}
	delete(c.entries, k)
	if e.expired(c.now()) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
		<-c.cleanupDone
	})
	return nil
}

func (c *MemoryCache) cleanupLoop() {
	defer close(c.cleanupDone)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCleanup:
			return
		case <-ticker.C:
			c.cleanupExpired()
		}
	}
}

// cleanupExpired collects expired keys under the read lock and deletes them
// under the write lock.
func (c *MemoryCache) cleanupExpired() {
	now := c.now()

	c.mu.RLock()
	var expired []entryKey
	for k, e := range c.entries {
		if e.expired(now) {
			expired = append(expired, k)
		}
	}
	c.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	c.mu.Lock()
	for _, k := range expired {
		// re-check, the entry may have been replaced meanwhile
		if e, ok := c.entries[k]; ok && e.expired(now) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
