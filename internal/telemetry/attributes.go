// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys used across the daemon.
const (
	PlayerIDKey     = attribute.Key("player.id")
	SourceKindKey   = attribute.Key("source.kind")
	SourceDeviceKey = attribute.Key("source.device")
	OutputDeviceKey = attribute.Key("output.device")
	ErrorTypeKey    = attribute.Key("player.error_type")
)

func PlayerAttributes(id string) []attribute.KeyValue {
	return []attribute.KeyValue{PlayerIDKey.String(id)}
}

// SourceAttributes describes a media source without its URL.
func SourceAttributes(kind, device string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{SourceKindKey.String(kind)}
	if device != "" {
		attrs = append(attrs, SourceDeviceKey.String(device))
	}
	return attrs
}

// Annotate adds attrs to the span in ctx. A context without a recording span
// is left alone.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attrs...)
}
