// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"fmt"
	"time"
)

// State is the logical playback state reported to the host.
type State int

const (
	StateLoading State = iota
	StateStopped
	StatePlaying
	StateBuffering
	StatePaused
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateBuffering:
		return "buffering"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseState maps a state name back to its value.
func ParseState(name string) (State, error) {
	for s := StateLoading; s <= StateError; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return StateError, fmt.Errorf("unknown state %q", name)
}

// ErrorType classifies the last error.
type ErrorType int

const (
	NoError ErrorType = iota
	NormalError
	FatalError
)

func (e ErrorType) String() string {
	switch e {
	case NoError:
		return "none"
	case NormalError:
		return "normal"
	case FatalError:
		return "fatal"
	default:
		return "unknown"
	}
}

func (e ErrorType) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// EventKind enumerates the signals a MediaObject emits.
type EventKind int

const (
	EventStateChanged EventKind = iota + 1
	EventTick
	EventFinished
	EventAboutToFinish
	EventPrefinishMarkReached
	EventTotalTimeChanged
	EventSeekableChanged
	EventHasVideoChanged
	EventMetaDataChanged
	EventCurrentSourceChanged
	EventBufferStatus
	EventAvailableTitlesChanged
	EventTitleChanged
)

var eventNames = map[EventKind]string{
	EventStateChanged:           "state_changed",
	EventTick:                   "tick",
	EventFinished:               "finished",
	EventAboutToFinish:          "about_to_finish",
	EventPrefinishMarkReached:   "prefinish_mark_reached",
	EventTotalTimeChanged:       "total_time_changed",
	EventSeekableChanged:        "seekable_changed",
	EventHasVideoChanged:        "has_video_changed",
	EventMetaDataChanged:        "metadata_changed",
	EventCurrentSourceChanged:   "current_source_changed",
	EventBufferStatus:           "buffer_status",
	EventAvailableTitlesChanged: "available_titles_changed",
	EventTitleChanged:           "title_changed",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return "unknown"
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event is one emitted signal. Only the fields relevant to Kind are set:
// Time carries the tick position, the total time or the prefinish remaining time.
type Event struct {
	Kind     EventKind           `json:"kind"`
	PlayerID string              `json:"playerId"`
	NewState State               `json:"newState"`
	OldState State               `json:"oldState"`
	Time     time.Duration       `json:"time,omitempty"`
	Percent  int                 `json:"percent,omitempty"`
	Flag     bool                `json:"flag,omitempty"`
	Title    int                 `json:"title,omitempty"`
	Source   *Source             `json:"source,omitempty"`
	MetaData map[string][]string `json:"metadata,omitempty"`
}

// Listener receives events synchronously on the control thread.
type Listener func(Event)
