// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package engine defines the contract the playback core consumes from a native
// media pipeline engine. It is strictly a port: element construction, linking,
// state changes and bus delivery are implemented by adapters (memengine, gstengine).
package engine

import (
	"errors"
	"time"
)

var (
	ErrLinkFailed   = errors.New("pad link failed")
	ErrNoPad        = errors.New("pad not available")
	ErrNotParented  = errors.New("element not in bin")
	ErrHasParent    = errors.New("element already has a parent")
	ErrUnknownKind  = errors.New("unknown element kind")
	ErrUnavailable  = errors.New("engine unavailable")
	ErrInvalidInput = errors.New("invalid input")
)

// State mirrors the native element state ladder.
type State int

const (
	StateVoidPending State = iota
	StateNull
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateVoidPending:
		return "VOID_PENDING"
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// StateChangeReturn is the immediate result of a state change request.
type StateChangeReturn int

const (
	StateChangeFailure StateChangeReturn = iota
	StateChangeSuccess
	StateChangeAsync
	StateChangeNoPreroll
)

func (r StateChangeReturn) String() string {
	switch r {
	case StateChangeFailure:
		return "failure"
	case StateChangeSuccess:
		return "success"
	case StateChangeAsync:
		return "async"
	case StateChangeNoPreroll:
		return "no_preroll"
	default:
		return "unknown"
	}
}

// Pad is a connection point of an element.
type Pad interface {
	Name() string
	ParentElement() Element
	Link(sink Pad) error
	Unlink(sink Pad) error
	Peer() Pad
	IsLinked() bool
}

// Element is a native pipeline element.
type Element interface {
	Name() string
	// Parent returns the bin holding the element, or nil.
	Parent() Bin
	SetState(State) StateChangeReturn
	CurrentState() State
	// StaticPad returns the always-present pad with the given name, or nil.
	StaticPad(name string) Pad
	RequestPad(template string) (Pad, error)
	ReleaseRequestPad(Pad)
}

// Bin is an element grouping other elements.
type Bin interface {
	Element
	Add(Element) error
	Remove(Element) error
}

// StreamInfo describes the elementary streams discovered during preroll.
type StreamInfo struct {
	HasAudio bool
	HasVideo bool
}

// Pipeline is the top-level container owned by a single media object.
// AudioGraph and VideoGraph are the per-kind native container graphs;
// AudioSource and VideoSource expose the decoded outputs fanned out by the graph.
type Pipeline interface {
	Bin
	AudioGraph() Bin
	VideoGraph() Bin
	AudioSource() Element
	VideoSource() Element

	SetURI(uri string) error
	QueryPosition() (time.Duration, bool)
	QueryDuration() (time.Duration, bool)
	QuerySeekable() bool
	// Seek issues a flushing seek to an absolute time.
	Seek(pos time.Duration) bool
	// SeekTrack switches to a zero-based track on multi-title media.
	SeekTrack(index int) bool
	TrackCount() (int, bool)
	StreamInfo() StreamInfo

	Bus() Bus
	// Dispose drives the pipeline to NULL and stops bus delivery.
	Dispose()
}

// Bus delivers pipeline notifications. Watch callbacks may run on an engine
// thread; consumers must hand messages to their own control thread.
type Bus interface {
	Watch(fn func(Message)) (stop func())
}

// Factory constructs native pipelines and elements.
type Factory interface {
	NewPipeline(name string) (Pipeline, error)
	// NewElement creates an element from a factory kind such as "tee",
	// "identity", "volume" or a concrete sink ("pulsesink", "xvimagesink").
	NewElement(kind, name string) (Element, error)
}
