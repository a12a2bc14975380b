// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer name used by every component.
const InstrumentationName = "github.com/stacklok/fedauth"

// Span attribute keys.
var (
	AttrProviderID = attribute.Key("fedauth.provider.id")
	AttrClientID   = attribute.Key("fedauth.client.id")
	AttrIssuer     = attribute.Key("fedauth.provider.issuer")
	AttrErrorType  = attribute.Key("error.type")
)

// Tracer returns the component tracer from tp, or from the global provider
// when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName)
}

// StartSpan starts a span and returns a finish function that records the
// error pointed to by errp, if any, before ending the span.
func StartSpan(
	ctx context.Context, tracer trace.Tracer, name string, kind trace.SpanKind, attrs ...attribute.KeyValue,
) (context.Context, func(errp *error)) {
	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
