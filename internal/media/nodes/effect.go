// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nodes

import (
	"fmt"

	"github.com/ManuGH/gstbackend/internal/engine"
	"github.com/ManuGH/gstbackend/internal/media/graph"
)

// Effect is an audio pass-through node: it consumes audio from upstream and
// fans its output out to its own sinks.
type Effect struct {
	kind    string
	element engine.Element
	node    *graph.Node
}

// NewEffect wraps an element of the given kind, e.g. "volume" or "equalizer-10bands".
func NewEffect(name, kind string, factory engine.Factory) (*Effect, error) {
	e := &Effect{kind: kind}
	node, err := graph.New(name, graph.AudioSource|graph.AudioSink, e, factory)
	if err != nil {
		return nil, err
	}
	e.node = node
	el, err := factory.NewElement(kind, name+"-"+kind)
	if err != nil {
		node.Invalidate()
		return e, fmt.Errorf("create effect %s: %w", kind, err)
	}
	e.element = el
	return e, nil
}

func (e *Effect) Node() *graph.Node { return e.node }

func (e *Effect) Kind() string { return e.kind }

func (e *Effect) AudioElement() engine.Element { return e.element }

func (e *Effect) VideoElement() engine.Element { return nil }

func (e *Effect) Dispose() {
	release(e.element)
	e.element = nil
	e.node.Dispose()
}

var _ graph.Backing = (*Effect)(nil)
