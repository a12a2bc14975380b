// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/fedauth/pkg/api"
	v1 "github.com/stacklok/fedauth/pkg/api/v1"
	"github.com/stacklok/fedauth/pkg/cache"
	"github.com/stacklok/fedauth/pkg/clients"
	"github.com/stacklok/fedauth/pkg/config"
	"github.com/stacklok/fedauth/pkg/federation/discovery"
	"github.com/stacklok/fedauth/pkg/federation/loginsession"
	"github.com/stacklok/fedauth/pkg/federation/provider"
	"github.com/stacklok/fedauth/pkg/federation/reconcile"
	"github.com/stacklok/fedauth/pkg/logger"
	"github.com/stacklok/fedauth/pkg/metrics"
	"github.com/stacklok/fedauth/pkg/mfa"
	"github.com/stacklok/fedauth/pkg/storage/sqlite"
	"github.com/stacklok/fedauth/pkg/telemetry"
	"github.com/stacklok/fedauth/pkg/users"
)

// newServeCmd creates the serve command for starting the federation server.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the federation server",
		Long: `Start the federation server. Configuration is read from the file given by
--config and from FEDAUTH_ prefixed environment variables.`,
		RunE: runServe,
	}
	cmd.Flags().String("address", "", "Address to listen on (overrides the configuration)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	v := config.NewViper()
	if path := viper.GetString("config"); path != "" {
		logger.Infof("Loading configuration from: %s", path)
		v.SetConfigFile(path)
	}
	if f := cmd.Flags().Lookup("address"); f != nil && f.Changed {
		v.Set("address", f.Value.String())
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}

	srv, err := newServer(ctx, cfg, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer srv.close()

	return api.Serve(ctx, cfg.Address, srv.handler)
}

const tracingShutdownTimeout = 5 * time.Second

// server is the wired HTTP handler and the resources it holds.
type server struct {
	handler http.Handler
	closers []func() error
}

func (s *server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warnw("failed to release resource", "error", err)
		}
	}
}

// stores groups the durable stores of one back end.
type stores struct {
	providers   provider.Store
	users       users.Store
	values      users.ValuesStore
	credentials mfa.CredentialStore
}

// healthChecks pings every dependency and fails on the first error.
type healthChecks []v1.Pinger

func (h healthChecks) Ping(ctx context.Context) error {
	for _, p := range h {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// newServer wires the federation components for cfg and registers metrics
// with reg. On error every resource opened so far is released.
func newServer(ctx context.Context, cfg *config.Config, reg *prometheus.Registry) (_ *server, retErr error) {
	srv := &server{}
	defer func() {
		if retErr != nil {
			srv.close()
		}
	}()
	var health healthChecks

	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tp, shutdownTracing, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	srv.closers = append(srv.closers, func() error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tracingShutdownTimeout)
		defer cancel()
		return shutdownTracing(ctx)
	})

	keys, err := cfg.KeyProvider()
	if err != nil {
		return nil, err
	}
	hashKey, blockKey, err := cfg.CookieKeys()
	if err != nil {
		return nil, err
	}

	var c cache.Cache
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.RedisCacheConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		health = append(health, rc)
		c = rc
	default:
		c = cache.NewMemoryCache()
	}
	srv.closers = append(srv.closers, c.Close)

	var st stores
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, db.Close)
		health = append(health, db)
		userStore := sqlite.NewUserStore(db)
		st = stores{
			providers:   sqlite.NewProviderStore(db),
			users:       userStore,
			values:      userStore,
			credentials: sqlite.NewCredentialStore(db),
		}
	default:
		logger.Warn("Using in-memory storage, all state is lost on restart")
		userStore := users.NewMemoryStore()
		st = stores{
			providers:   provider.NewMemoryStore(),
			users:       userStore,
			values:      userStore,
			credentials: mfa.NewMemoryCredentialStore(),
		}
	}

	registry := provider.NewRegistry(st.providers, c, keys,
		provider.WithCacheTTL(cfg.Providers.CacheTTL),
		provider.WithMetrics(m),
	)

	relyingParties := make([]*clients.Client, 0, len(cfg.Clients))
	for i := range cfg.Clients {
		relyingParties = append(relyingParties, &cfg.Clients[i])
	}
	clientRegistry, err := clients.NewMemoryRegistry(relyingParties...)
	if err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	languages, err := reconcile.NewLanguageMatcher(cfg.Languages.Supported, cfg.Languages.Default)
	if err != nil {
		return nil, err
	}
	reconcilerOpts := []reconcile.Option{reconcile.WithLanguages(languages)}
	serviceOpts := []loginsession.Option{
		loginsession.WithMetrics(m),
		loginsession.WithTracerProvider(tp),
	}

	if cfg.WebAuthnEnabled() {
		stepUp, err := mfa.NewWebAuthnStepUp(cfg.WebAuthn, st.credentials, c)
		if err != nil {
			return nil, err
		}
		reconcilerOpts = append(reconcilerOpts, reconcile.WithAuthenticators(stepUp))
		serviceOpts = append(serviceOpts, loginsession.WithStepUp(stepUp))
	} else {
		logger.Info("WebAuthn is not configured, forced-MFA clients cannot log in")
	}
	reconciler := reconcile.NewReconciler(st.users, st.values, reconcilerOpts...)

	logins, err := loginsession.NewService(loginsession.Config{
		CallbackURI:    cfg.CallbackURI(),
		TTL:            cfg.Session.TTL,
		VerifyIDToken:  cfg.Session.VerifyIDToken,
		CookieHashKey:  hashKey,
		CookieBlockKey: blockKey,
	}, registry, clientRegistry, c, keys, reconciler, serviceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create login service: %w", err)
	}

	if cfg.AdminToken == "" {
		logger.Warn("No admin token configured, the administrative endpoints reject every request")
	}

	routerCfg := api.Config{
		Logins:      logins,
		Registry:    registry,
		Resolver:    discovery.NewResolver(discovery.WithMetrics(m), discovery.WithTracerProvider(tp)),
		Accounts:    reconciler,
		Gatherer:    reg,
		CallbackURI: cfg.CallbackURI(),
		AdminToken:  cfg.AdminToken,
		CORSOrigins: corsOrigins(cfg.Clients),
	}
	if len(health) > 0 {
		routerCfg.Health = health
	}
	srv.handler = api.NewRouter(routerCfg)
	return srv, nil
}

// corsOrigins collects the distinct origins registered by enabled clients.
func corsOrigins(cs []clients.Client) []string {
	var origins []string
	for _, c := range cs {
		if !c.Enabled {
			continue
		}
		for _, o := range c.AllowedOrigins {
			if !slices.Contains(origins, o) {
				origins = append(origins, o)
			}
		}
	}
	return origins
}
