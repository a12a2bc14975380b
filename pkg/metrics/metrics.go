// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides Prometheus instrumentation for upstream logins.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes recorded by ObserveLoginFinished.
const (
	OutcomeSuccess = "success"
	OutcomeStepUp  = "step_up"
)

// Metrics holds the federation counters. A nil *Metrics records nothing.
type Metrics struct {
	LoginsStarted        *prometheus.CounterVec
	LoginsFinished       *prometheus.CounterVec
	TokenExchange        prometheus.Histogram
	ProviderCacheLookups *prometheus.CounterVec
	DiscoveryLookups     *prometheus.CounterVec
}

// New registers the federation metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fedauth_upstream_logins_started_total",
			Help: "Total number of upstream logins started, by provider",
		}, []string{"provider_id"}),
		LoginsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fedauth_upstream_logins_finished_total",
			Help: "Total number of upstream login callbacks, by outcome (success, step_up or error type)",
		}, []string{"outcome"}),
		TokenExchange: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fedauth_upstream_token_exchange_duration_seconds",
			Help:    "Duration of authorization code exchanges at upstream token endpoints",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ProviderCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fedauth_provider_cache_lookups_total",
			Help: "Provider registry cache lookups, by result (hit or miss)",
		}, []string{"result"}),
		DiscoveryLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fedauth_discovery_lookups_total",
			Help: "Discovery document lookups, by outcome",
		}, []string{"outcome"}),
	}
}

// IncLoginStarted records a started login for providerID.
func (m *Metrics) IncLoginStarted(providerID string) {
	if m == nil {
		return
	}
	m.LoginsStarted.WithLabelValues(providerID).Inc()
}

// IncLoginFinished records the outcome of a login callback.
func (m *Metrics) IncLoginFinished(outcome string) {
	if m == nil {
		return
	}
	m.LoginsFinished.WithLabelValues(outcome).Inc()
}

// ObserveTokenExchange records the duration of a token exchange.
// Call with time.Now() at the start of the exchange.
func (m *Metrics) ObserveTokenExchange(start time.Time) {
	if m == nil {
		return
	}
	m.TokenExchange.Observe(time.Since(start).Seconds())
}

// IncProviderCache records a provider cache hit or miss.
func (m *Metrics) IncProviderCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ProviderCacheLookups.WithLabelValues(result).Inc()
}

// IncDiscovery records a discovery lookup outcome.
func (m *Metrics) IncDiscovery(outcome string) {
	if m == nil {
		return
	}
	m.DiscoveryLookups.WithLabelValues(outcome).Inc()
}
