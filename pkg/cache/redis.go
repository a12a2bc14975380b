// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second

	// DefaultQuorumTimeout bounds the WAIT issued for AckQuorum writes.
	DefaultQuorumTimeout = time.Second
)

// ErrQuorumNotReached is returned when fewer replicas than required
// acknowledged an AckQuorum write.
var ErrQuorumNotReached = errors.New("cache write not acknowledged by enough replicas")

// RedisConfig configures a Redis-backed cache. Setting MasterName selects
// Sentinel failover across Addrs.
type RedisConfig struct {
	Addrs      []string
	MasterName string
	Username   string
	Password   string
	DB         int

	// KeyPrefix is prepended to every key, e.g. "fedauth:".
	KeyPrefix string

	// QuorumReplicas is the replica count an AckQuorum write waits for.
	// Zero makes AckQuorum behave like AckOnce.
	QuorumReplicas int
	QuorumTimeout  time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisCache implements Cache on a Redis deployment shared by all nodes.
type RedisCache struct {
	client         redis.UniversalClient
	keyPrefix      string
	quorumReplicas int
	quorumTimeout  time.Duration
}

// NewRedisCache connects to Redis and verifies connectivity.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("at least one redis address is required")
	}
	if cfg.QuorumReplicas < 0 {
		return nil, errors.New("quorum replicas must not be negative")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		MasterName:   cfg.MasterName,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := NewRedisCacheWithClient(client, cfg.KeyPrefix, cfg.QuorumReplicas)
	if cfg.QuorumTimeout > 0 {
		c.quorumTimeout = cfg.QuorumTimeout
	}
	return c, nil
}

// NewRedisCacheWithClient creates a RedisCache with a pre-configured client.
// This is useful for testing with miniredis.
func NewRedisCacheWithClient(client redis.UniversalClient, keyPrefix string, quorumReplicas int) *RedisCache {
	return &RedisCache{
		client:         client,
		keyPrefix:      keyPrefix,
		quorumReplicas: quorumReplicas,
		quorumTimeout:  DefaultQuorumTimeout,
	}
}

func (c *RedisCache) key(namespace, key string) string {
	return c.keyPrefix + namespace + ":" + key
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", namespace, key, err)
	}
	return data, nil
}

// Insert implements Cache. AckQuorum writes are followed by WAIT on the
// same connection so the replica count refers to this write.
func (c *RedisCache) Insert(ctx context.Context, namespace, key string, value []byte, ttl time.Duration, ack AckLevel) error {
	k := c.key(namespace, key)

	if ack != AckQuorum || c.quorumReplicas == 0 {
		if err := c.client.Set(ctx, k, value, ttl).Err(); err != nil {
			return fmt.Errorf("failed to set %s/%s: %w", namespace, key, err)
		}
		return nil
	}

	// Pipeliner does not expose Wait, so WAIT is queued as a raw command.
	var waitCmd *redis.Cmd
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, k, value, ttl)
		waitCmd = pipe.Do(ctx, "wait", c.quorumReplicas, c.quorumTimeout.Milliseconds())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", namespace, key, err)
	}
	acked, err := waitCmd.Int64()
	if err != nil {
		return fmt.Errorf("failed to read replica acknowledgements for %s/%s: %w", namespace, key, err)
	}
	if acked < int64(c.quorumReplicas) {
		return fmt.Errorf("%w: %d of %d", ErrQuorumNotReached, acked, c.quorumReplicas)
	}
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, namespace, key string) error {
	if err := c.client.Del(ctx, c.key(namespace, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Take implements Cache with GETDEL.
func (c *RedisCache) Take(ctx context.Context, namespace, key string) ([]byte, error) {
	data, err := c.client.GetDel(ctx, c.key(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to take %s/%s: %w", namespace, key, err)
	}
	return data, nil
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
