// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/stacklok/fedauth/pkg/versions"
)

// DefaultSamplingRate samples 5% of traces.
const DefaultSamplingRate = 0.05

// TracingConfig configures span export over OTLP/HTTP.
type TracingConfig struct {
	// Endpoint is the OTLP collector, e.g. "otel-collector:4318". Empty
	// disables export.
	Endpoint string `mapstructure:"endpoint"`
	// Insecure uses HTTP instead of HTTPS for the endpoint.
	Insecure bool `mapstructure:"insecure"`
	// Headers are sent with every export, typically for authentication.
	Headers map[string]string `mapstructure:"headers"`
	// SamplingRate is the ratio of traces sampled (0.0-1.0).
	SamplingRate float64 `mapstructure:"sampling_rate"`
	ServiceName  string  `mapstructure:"service_name"`
	// Attributes is a comma separated list of key=value resource attributes,
	// e.g. "deployment=prod,region=eu-west-1".
	Attributes string `mapstructure:"attributes"`
}

// Validate checks the tracing configuration.
func (c TracingConfig) Validate() error {
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be between 0 and 1")
	}
	if _, err := parseAttributes(c.Attributes); err != nil {
		return err
	}
	return nil
}

// NewTracerProvider creates the tracer provider for cfg and installs the W3C
// trace context propagator. Without an endpoint it returns a no-op provider
// and a no-op shutdown function.
func NewTracerProvider(ctx context.Context, cfg TracingConfig) (trace.TracerProvider, func(context.Context) error, error) {
	noShutdown := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return tracenoop.NewTracerProvider(), noShutdown, nil
	}

	attrs, err := parseAttributes(cfg.Attributes)
	if err != nil {
		return nil, nil, err
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "fedauth"
	}
	attrs = append(attrs,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(versions.GetVersionInfo().Version),
	)
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create telemetry resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider, provider.Shutdown, nil
}

// parseAttributes parses "key=value" pairs separated by commas.
func parseAttributes(input string) ([]attribute.KeyValue, error) {
	var attrs []attribute.KeyValue
	for pair := range strings.SplitSeq(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid attribute %q: expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty attribute key in %q", pair)
		}
		attrs = append(attrs, attribute.String(key, strings.TrimSpace(value)))
	}
	return attrs, nil
}
