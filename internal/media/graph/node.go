// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package graph maintains the logical media graph (one root source fanning out
// to sink nodes per media kind) and materialises it into native pipeline graphs.
package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/gstbackend/internal/engine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
)

var (
	ErrInvalidCaps      = errors.New("node cannot be both audio and video sink")
	ErrInvalidSink      = errors.New("sink node is not valid")
	ErrAlreadyConnected = errors.New("sink node already connected")
	ErrIncompatible     = errors.New("nodes have no matching media kind")
	ErrNotConnected     = errors.New("sink node not connected to this source")
	ErrBuildFailed      = errors.New("graph build failed")
	ErrNoElement        = errors.New("node has no native element")
)

// Caps is the capability bitset of a node.
type Caps uint8

const (
	AudioSource Caps = 1 << iota
	AudioSink
	VideoSource
	VideoSink
)

// Has reports whether every flag in f is set.
func (c Caps) Has(f Caps) bool { return c&f == f }

func (c Caps) String() string {
	var parts []string
	for _, f := range []struct {
		flag Caps
		name string
	}{{AudioSource, "audio-source"}, {AudioSink, "audio-sink"}, {VideoSource, "video-source"}, {VideoSink, "video-sink"}} {
		if c.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Root is the pipeline-owning node a graph hangs under.
type Root interface {
	RootNode() *Node
	AudioGraph() engine.Bin
	VideoGraph() engine.Bin
	PipelineState() engine.State
	// Quiesce takes the pipeline out of PAUSED/PLAYING before live topology changes.
	Quiesce()
	HandleNodeEvent(Event)
}

// Backing supplies the native elements of a concrete node. For a sink the
// element receives data on its "sink" pad; for a source it feeds the
// node's fan-out point from its "src" pad.
type Backing interface {
	AudioElement() engine.Element
	VideoElement() engine.Element
}

// Finalizer is implemented by nodes needing one-time setup once linked.
type Finalizer interface {
	FinalizeLink()
}

// Unlinker is implemented by nodes needing to undo FinalizeLink.
type Unlinker interface {
	PrepareToUnlink()
}

// EventHandler receives graph events propagated from the root.
type EventHandler interface {
	HandleEvent(Event)
}

type mediaKind int

const (
	kindAudio mediaKind = iota
	kindVideo
)

func (k mediaKind) String() string {
	if k == kindVideo {
		return "video"
	}
	return "audio"
}

// Node is a vertex of the logical media graph.
type Node struct {
	name    string
	caps    Caps
	valid   bool
	root    Root
	backing Backing

	audioSinks []*Node
	videoSinks []*Node
	audioTee   engine.Element
	videoTee   engine.Element
	outPads    map[*Node]outPad

	finalized bool
	logger    zerolog.Logger
}

// New creates a node and its fan-out points. A node whose fan-out point
// could not be created is returned invalid alongside the error.
func New(name string, caps Caps, backing Backing, factory engine.Factory) (*Node, error) {
	if caps.Has(AudioSink | VideoSink) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCaps, name)
	}
	n := &Node{
		name:    name,
		caps:    caps,
		valid:   true,
		backing: backing,
		outPads: make(map[*Node]outPad),
		logger: xglog.Derive(func(c *zerolog.Context) {
			*c = c.Str(xglog.FieldComponent, "graph").Str(xglog.FieldNode, name)
		}),
	}
	var errs []error
	if caps.Has(AudioSource) {
		tee, err := factory.NewElement("tee", name+"-audiotee")
		if err != nil {
			errs = append(errs, fmt.Errorf("audio tee: %w", err))
		}
		n.audioTee = tee
	}
	if caps.Has(VideoSource) {
		tee, err := factory.NewElement("tee", name+"-videotee")
		if err != nil {
			errs = append(errs, fmt.Errorf("video tee: %w", err))
		}
		n.videoTee = tee
	}
	if err := errors.Join(errs...); err != nil {
		n.valid = false
		return n, err
	}
	return n, nil
}

func (n *Node) Name() string { return n.name }

func (n *Node) Caps() Caps { return n.caps }

func (n *Node) IsValid() bool { return n.valid }

// Invalidate marks a node whose own construction failed.
func (n *Node) Invalidate() { n.valid = false }

func (n *Node) Root() Root { return n.root }

// SetRoot attaches the node under a root. Roots attach themselves at construction.
func (n *Node) SetRoot(r Root) { n.root = r }

func (n *Node) Backing() Backing { return n.backing }

func (n *Node) AudioTee() engine.Element { return n.audioTee }

func (n *Node) VideoTee() engine.Element { return n.videoTee }

func (n *Node) AudioSinks() []*Node { return append([]*Node(nil), n.audioSinks...) }

func (n *Node) VideoSinks() []*Node { return append([]*Node(nil), n.videoSinks...) }

// Finalized reports whether FinalizeLink has run since the last break.
func (n *Node) Finalized() bool { return n.finalized }

// Linked reports whether the node is currently part of a built graph.
func (n *Node) Linked() bool { return n.root != nil && n.finalized }

// Notify delivers ev to this node and everything downstream of it.
func (n *Node) Notify(ev Event) {
	if h, ok := n.backing.(EventHandler); ok {
		h.HandleEvent(ev)
	}
	for _, child := range n.audioSinks {
		child.Notify(ev)
	}
	for _, child := range n.videoSinks {
		child.Notify(ev)
	}
}

// Dispose drives the fan-out points to NULL and releases them.
func (n *Node) Dispose() {
	for _, tee := range []engine.Element{n.audioTee, n.videoTee} {
		if tee == nil {
			continue
		}
		tee.SetState(engine.StateNull)
		if parent := tee.Parent(); parent != nil {
			_ = parent.Remove(tee)
		}
	}
	n.audioTee = nil
	n.videoTee = nil
	n.valid = false
}

func (n *Node) sinkElement() engine.Element {
	if n.backing == nil {
		return nil
	}
	switch {
	case n.caps.Has(AudioSink):
		return n.backing.AudioElement()
	case n.caps.Has(VideoSink):
		return n.backing.VideoElement()
	}
	return nil
}

func (n *Node) sourceElement(kind mediaKind) engine.Element {
	if n.backing == nil {
		return nil
	}
	if kind == kindVideo {
		return n.backing.VideoElement()
	}
	return n.backing.AudioElement()
}

func (n *Node) tee(kind mediaKind) engine.Element {
	if kind == kindVideo {
		return n.videoTee
	}
	return n.audioTee
}

func (n *Node) sinks(kind mediaKind) []*Node {
	if kind == kindVideo {
		return n.videoSinks
	}
	return n.audioSinks
}

func (n *Node) graphBin(kind mediaKind) engine.Bin {
	if n.root == nil {
		return nil
	}
	if kind == kindVideo {
		return n.root.VideoGraph()
	}
	return n.root.AudioGraph()
}

// outPad is a fan-out port requested for one downstream node.
type outPad struct {
	tee engine.Element
	pad engine.Pad
}

func contains(list []*Node, n *Node) bool {
	for _, c := range list {
		if c == n {
			return true
		}
	}
	return false
}

func without(list []*Node, n *Node) ([]*Node, bool) {
	for i, c := range list {
		if c == n {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}
