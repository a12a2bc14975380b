// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package telemetry configures OpenTelemetry tracing for the federation
// components: span helpers, attribute keys and the OTLP tracer provider.
package telemetry
