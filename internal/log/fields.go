// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldPlayerID  = "player_id"
	FieldRequestID = "request_id"
	FieldNode      = "node"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldElement   = "element"
	FieldPad       = "pad"

	// Media / stream fields
	FieldSource     = "source"
	FieldSourceKind = "source_kind"
	FieldDevice     = "device"
	FieldTitle      = "title"
	FieldPositionMS = "position_ms"
	FieldDurationMS = "duration_ms"

	// State fields
	FieldOldState     = "old_state"
	FieldNewState     = "new_state"
	FieldPendingState = "pending_state"
	FieldNativeState  = "native_state"

	// Error fields
	FieldErrorKind   = "error_kind"
	FieldErrorDomain = "error_domain"
	FieldErrorCode   = "error_code"
)
