// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestParseAttributes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []attribute.KeyValue
		wantErr bool
	}{
		{name: "empty", input: ""},
		{
			name:  "trims and skips blanks",
			input: " deployment = prod ,, region=eu-west-1 ",
			want: []attribute.KeyValue{
				attribute.String("deployment", "prod"),
				attribute.String("region", "eu-west-1"),
			},
		},
		{
			name:  "value may contain equals",
			input: "query=a=b",
			want:  []attribute.KeyValue{attribute.String("query", "a=b")},
		},
		{name: "missing separator", input: "deployment", wantErr: true},
		{name: "empty key", input: "=prod", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseAttributes(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTracingConfig_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, TracingConfig{SamplingRate: DefaultSamplingRate}.Validate())
	assert.NoError(t, TracingConfig{SamplingRate: 1, Attributes: "a=b"}.Validate())
	assert.Error(t, TracingConfig{SamplingRate: 1.5}.Validate())
	assert.Error(t, TracingConfig{SamplingRate: -0.1}.Validate())
	assert.Error(t, TracingConfig{Attributes: "nope"}.Validate())
}

func TestNewTracerProvider_NoEndpointIsNoop(t *testing.T) {
	t.Parallel()

	tp, shutdown, err := NewTracerProvider(t.Context(), TracingConfig{})
	require.NoError(t, err)
	assert.IsType(t, tracenoop.TracerProvider{}, tp)
	assert.NoError(t, shutdown(t.Context()))
}

//nolint:paralleltest // Sets the global propagator
func TestNewTracerProvider_OTLP(t *testing.T) {
	tp, shutdown, err := NewTracerProvider(t.Context(), TracingConfig{
		Endpoint:     "localhost:4318",
		Insecure:     true,
		Headers:      map[string]string{"Authorization": "Bearer token"},
		SamplingRate: 1,
		Attributes:   "deployment=test",
	})
	require.NoError(t, err)
	assert.IsType(t, &sdktrace.TracerProvider{}, tp)

	_, span := Tracer(tp).Start(t.Context(), "probe")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	// The collector is unreachable, so the export fails or times out.
	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}

func TestNewTracerProvider_InvalidAttributes(t *testing.T) {
	t.Parallel()

	_, _, err := NewTracerProvider(t.Context(), TracingConfig{Endpoint: "localhost:4318", Attributes: "broken"})
	assert.Error(t, err)
}
