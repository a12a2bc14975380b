// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the shared, namespaced key/value cache used for
// ephemeral login artifacts and cached provider configuration.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AckLevel is the acknowledgment strength required before a write returns.
type AckLevel int

const (
	// AckOnce returns once the local node accepted the write. Used for
	// single-use artifacts whose loss only forces the user to retry.
	AckOnce AckLevel = iota

	// AckQuorum returns once the write is confirmed by the configured number
	// of replicas. Used for configuration whose staleness is user-visible.
	AckQuorum
)

// String returns the name of the ack level.
func (a AckLevel) String() string {
	switch a {
	case AckOnce:
		return "once"
	case AckQuorum:
		return "quorum"
	default:
		return fmt.Sprintf("AckLevel(%d)", int(a))
	}
}

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("cache entry not found")

// Cache is a namespaced key/value store with per-entry TTL.
// A ttl of zero means the entry does not expire.
type Cache interface {
	// Get returns the value stored under namespace/key or ErrNotFound.
	Get(ctx context.Context, namespace, key string) ([]byte, error)

	// Insert stores value under namespace/key, replacing any previous value.
	Insert(ctx context.Context, namespace, key string, value []byte, ttl time.Duration, ack AckLevel) error

	// Delete removes namespace/key. Deleting a missing key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// Take atomically returns and removes the value under namespace/key.
	// Of several concurrent callers at most one receives the value; the
	// others get ErrNotFound.
	Take(ctx context.Context, namespace, key string) ([]byte, error)

	// Close releases resources held by the cache.
	Close() error
}

// GetJSON reads namespace/key and unmarshals it into dst.
func GetJSON(ctx context.Context, c Cache, namespace, key string, dst any) error {
	data, err := c.Get(ctx, namespace, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal cache entry %s/%s: %w", namespace, key, err)
	}
	return nil
}

// TakeJSON atomically reads and removes namespace/key, unmarshalling it into dst.
func TakeJSON(ctx context.Context, c Cache, namespace, key string, dst any) error {
	data, err := c.Take(ctx, namespace, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal cache entry %s/%s: %w", namespace, key, err)
	}
	return nil
}

// InsertJSON marshals value and stores it under namespace/key.
func InsertJSON(ctx context.Context, c Cache, namespace, key string, value any, ttl time.Duration, ack AckLevel) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s/%s: %w", namespace, key, err)
	}
	return c.Insert(ctx, namespace, key, data, ttl, ack)
}
