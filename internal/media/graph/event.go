// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package graph

// EventKind enumerates graph notifications.
type EventKind int

const (
	EventSourceChanged EventKind = iota + 1
	EventVideoAvailable
	EventAudioSinkAdded
	EventAudioSinkRemoved
	EventVideoSinkAdded
	EventVideoSinkRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventSourceChanged:
		return "source_changed"
	case EventVideoAvailable:
		return "video_available"
	case EventAudioSinkAdded:
		return "audio_sink_added"
	case EventAudioSinkRemoved:
		return "audio_sink_removed"
	case EventVideoSinkAdded:
		return "video_sink_added"
	case EventVideoSinkRemoved:
		return "video_sink_removed"
	default:
		return "unknown"
	}
}

// Event is a graph notification; Node is the subject when relevant.
type Event struct {
	Kind EventKind
	Node *Node
}

// Structural reports whether the event changes graph topology.
func (e Event) Structural() bool {
	switch e.Kind {
	case EventAudioSinkAdded, EventAudioSinkRemoved, EventVideoSinkAdded, EventVideoSinkRemoved:
		return true
	}
	return false
}
