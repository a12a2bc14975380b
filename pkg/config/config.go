// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config contains the server configuration and the logic to load it
// from a YAML file, environment variables and command line flags.
package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stacklok/fedauth/pkg/cache"
	"github.com/stacklok/fedauth/pkg/clients"
	"github.com/stacklok/fedauth/pkg/encryption"
	"github.com/stacklok/fedauth/pkg/federation/loginsession"
	"github.com/stacklok/fedauth/pkg/federation/provider"
	"github.com/stacklok/fedauth/pkg/federation/reconcile"
	"github.com/stacklok/fedauth/pkg/mfa"
	"github.com/stacklok/fedauth/pkg/telemetry"
)

// EnvPrefix prefixes environment overrides, e.g. FEDAUTH_PUBLIC_URL.
const EnvPrefix = "FEDAUTH"

// Back ends selectable for the cache and the durable store.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the server configuration.
type Config struct {
	// Address is the listen address of the HTTP server.
	Address string `mapstructure:"address"`
	// PublicURL is the externally reachable base URL of this server.
	PublicURL string `mapstructure:"public_url"`
	// AdminToken guards the administrative endpoints. Empty disables them.
	AdminToken string `mapstructure:"admin_token"`

	Encryption EncryptionConfig        `mapstructure:"encryption"`
	Session    SessionConfig           `mapstructure:"session"`
	Providers  ProvidersConfig         `mapstructure:"providers"`
	Cache      CacheConfig             `mapstructure:"cache"`
	Storage    StorageConfig           `mapstructure:"storage"`
	WebAuthn   mfa.Config              `mapstructure:"webauthn"`
	Languages  LanguagesConfig         `mapstructure:"languages"`
	Telemetry  telemetry.TracingConfig `mapstructure:"telemetry"`

	// Clients are the relying parties allowed to start upstream logins.
	Clients []clients.Client `mapstructure:"clients"`
}

// EncryptionConfig holds the keys sealing provider secrets at rest.
type EncryptionConfig struct {
	// Keys is a whitespace separated list of "id/base64key" entries.
	Keys string `mapstructure:"keys"`
	// ActiveKey names the key used for new ciphertexts.
	ActiveKey string `mapstructure:"active_key"`
}

// SessionConfig configures the upstream login session.
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	// CookieHashKey and CookieBlockKey are base64 encoded.
	CookieHashKey  string `mapstructure:"cookie_hash_key"`
	CookieBlockKey string `mapstructure:"cookie_block_key"`
	// VerifyIDToken checks upstream ID token signatures against the provider JWKS.
	VerifyIDToken bool `mapstructure:"verify_id_token"`
}

// ProvidersConfig configures the provider registry.
type ProvidersConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// CacheConfig selects and configures the shared cache.
type CacheConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the Redis cache back end.
type RedisConfig struct {
	Addrs          []string      `mapstructure:"addrs"`
	MasterName     string        `mapstructure:"master_name"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	QuorumReplicas int           `mapstructure:"quorum_replicas"`
	QuorumTimeout  time.Duration `mapstructure:"quorum_timeout"`
}

// StorageConfig selects the durable store.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// LanguagesConfig lists the languages new accounts can be assigned.
type LanguagesConfig struct {
	Supported []string `mapstructure:"supported"`
	Default   string   `mapstructure:"default"`
}

// NewViper returns a viper instance reading FEDAUTH_ environment overrides,
// with nested keys joined by underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers the default of every key, which also makes each key
// visible to environment overrides.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("address", ":8080")
	v.SetDefault("public_url", "")
	v.SetDefault("admin_token", "")
	v.SetDefault("encryption.keys", "")
	v.SetDefault("encryption.active_key", "")
	v.SetDefault("session.ttl", loginsession.DefaultTTL)
	v.SetDefault("session.cookie_hash_key", "")
	v.SetDefault("session.cookie_block_key", "")
	v.SetDefault("session.verify_id_token", false)
	v.SetDefault("providers.cache_ttl", provider.DefaultCacheTTL)
	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.redis.addrs", []string{})
	v.SetDefault("cache.redis.master_name", "")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key_prefix", "fedauth:")
	v.SetDefault("cache.redis.quorum_replicas", 0)
	v.SetDefault("cache.redis.quorum_timeout", time.Second)
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.path", "fedauth.db")
	v.SetDefault("webauthn.rp_id", "")
	v.SetDefault("webauthn.rp_display_name", "fedauth")
	v.SetDefault("webauthn.rp_origins", []string{})
	v.SetDefault("languages.supported", reconcile.DefaultLanguages)
	v.SetDefault("languages.default", reconcile.DefaultLanguages[0])
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sampling_rate", telemetry.DefaultSamplingRate)
	v.SetDefault("telemetry.service_name", "fedauth")
	v.SetDefault("telemetry.attributes", "")
}

// Load reads the config file set on v, if any, then unmarshals and validates.
func Load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration. The returned error describes the first problem.
func (c *Config) Validate() error {
	u, err := url.Parse(c.PublicURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("public_url must be an absolute http(s) URL")
	}
	if _, err := c.KeyProvider(); err != nil {
		return err
	}
	if _, _, err := c.CookieKeys(); err != nil {
		return err
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if len(c.Cache.Redis.Addrs) == 0 {
			return fmt.Errorf("cache.redis.addrs is required for the redis cache")
		}
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	if _, err := reconcile.NewLanguageMatcher(c.Languages.Supported, c.Languages.Default); err != nil {
		return fmt.Errorf("languages: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	seen := make(map[string]bool, len(c.Clients))
	for _, cl := range c.Clients {
		if cl.ID == "" {
			return fmt.Errorf("every client needs an id")
		}
		if seen[cl.ID] {
			return fmt.Errorf("duplicate client id %q", cl.ID)
		}
		seen[cl.ID] = true
	}
	return nil
}

// CallbackURI is the fixed redirect URI registered at every upstream.
func (c *Config) CallbackURI() string {
	return strings.TrimSuffix(c.PublicURL, "/") + loginsession.CallbackPath
}

// KeyProvider builds the key provider from the configured keys. There is no
// built-in fallback key.
func (c *Config) KeyProvider() (*encryption.KeyProvider, error) {
	if strings.TrimSpace(c.Encryption.Keys) == "" {
		return nil, fmt.Errorf("encryption.keys is required")
	}
	keys, err := encryption.ParseKeys(c.Encryption.Keys)
	if err != nil {
		return nil, fmt.Errorf("encryption.keys: %w", err)
	}
	active := c.Encryption.ActiveKey
	if active == "" && len(keys) == 1 {
		for id := range keys {
			active = id
		}
	}
	kp, err := encryption.NewKeyProvider(active, keys)
	if err != nil {
		return nil, fmt.Errorf("encryption: %w", err)
	}
	return kp, nil
}

// CookieKeys decodes the callback cookie keys.
func (c *Config) CookieKeys() (hashKey, blockKey []byte, err error) {
	hashKey, err = base64.StdEncoding.DecodeString(c.Session.CookieHashKey)
	if err != nil || len(hashKey) < 32 {
		return nil, nil, fmt.Errorf("session.cookie_hash_key must be base64 of at least 32 bytes")
	}
	blockKey, err = base64.StdEncoding.DecodeString(c.Session.CookieBlockKey)
	if err != nil {
		return nil, nil, fmt.Errorf("session.cookie_block_key is not valid base64")
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, nil, fmt.Errorf("session.cookie_block_key must decode to 16, 24 or 32 bytes")
	}
	return hashKey, blockKey, nil
}

// RedisCacheConfig converts the Redis settings for cache.NewRedisCache.
func (c *Config) RedisCacheConfig() cache.RedisConfig {
	r := c.Cache.Redis
	return cache.RedisConfig{
		Addrs:          r.Addrs,
		MasterName:     r.MasterName,
		Username:       r.Username,
		Password:       r.Password,
		DB:             r.DB,
		KeyPrefix:      r.KeyPrefix,
		QuorumReplicas: r.QuorumReplicas,
		QuorumTimeout:  r.QuorumTimeout,
	}
}

// WebAuthnEnabled reports whether a relying party is configured for step-up.
func (c *Config) WebAuthnEnabled() bool {
	return c.WebAuthn.RPID != "" && len(c.WebAuthn.RPOrigins) > 0
}
