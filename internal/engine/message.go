// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"fmt"
	"strings"
)

// MessageKind enumerates the bus notifications the core subscribes to.
type MessageKind int

const (
	MessageUnknown MessageKind = iota
	MessageEOS
	MessageError
	MessageWarning
	MessageDurationChanged
	MessageBuffering
	MessageStateChanged
	MessageTag
	MessageMissingPlugin
	MessageAsyncDone
)

func (k MessageKind) String() string {
	switch k {
	case MessageEOS:
		return "eos"
	case MessageError:
		return "error"
	case MessageWarning:
		return "warning"
	case MessageDurationChanged:
		return "duration_changed"
	case MessageBuffering:
		return "buffering"
	case MessageStateChanged:
		return "state_changed"
	case MessageTag:
		return "tag"
	case MessageMissingPlugin:
		return "missing_plugin"
	case MessageAsyncDone:
		return "async_done"
	default:
		return "unknown"
	}
}

// Message is a decoded bus notification.
type Message struct {
	Kind MessageKind
	// Source is the name of the posting element.
	Source string
	// FromPipeline is true when the pipeline itself posted the message.
	FromPipeline bool

	OldState     State
	NewState     State
	PendingState State

	Percent int
	Err     *ErrorInfo
	Tags    map[string][]string

	// PluginDescription describes the missing capability for MessageMissingPlugin.
	PluginDescription string
}

// ErrorDomain mirrors the native error domains.
type ErrorDomain int

const (
	DomainCore ErrorDomain = iota + 1
	DomainLibrary
	DomainResource
	DomainStream
)

func (d ErrorDomain) String() string {
	switch d {
	case DomainCore:
		return "core"
	case DomainLibrary:
		return "library"
	case DomainResource:
		return "resource"
	case DomainStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Native error codes used by the classifier. Values match the engine enums.
const (
	CoreMissingPlugin = 12

	ResourceNotFound = 3
	ResourceBusy     = 4
	ResourceOpenRead = 5

	StreamTypeNotFound  = 4
	StreamWrongType     = 5
	StreamCodecNotFound = 6
	StreamDemux         = 9
)

// ErrorInfo carries a native error or warning.
type ErrorInfo struct {
	Domain  ErrorDomain
	Code    int
	Message string
	Debug   string
	// SinkCaps is the media type accepted by the posting element's sink pad,
	// empty when the element has none.
	SinkCaps string
}

func (e *ErrorInfo) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s error %d: %s", e.Domain, e.Code, e.Message)
}

// FromAudioSink reports whether the error was posted by an element consuming audio.
func (e *ErrorInfo) FromAudioSink() bool {
	return e != nil && strings.Contains(e.SinkCaps, "audio")
}
