// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package memengine

import (
	"fmt"
	"strings"

	"github.com/ManuGH/gstbackend/internal/engine"
)

type based interface {
	base() *element
}

type element struct {
	eng    *Engine
	name   string
	kind   string
	self   engine.Element
	parent engine.Bin
	state  engine.State

	pads      map[string]*pad
	reqSeq    int
	requested []*pad
}

func newElement(eng *Engine, kind, name string) *element {
	el := &element{
		eng:   eng,
		name:  name,
		kind:  kind,
		state: engine.StateNull,
		pads:  make(map[string]*pad),
	}
	el.self = el
	switch {
	case kind == "tee":
		el.pads["sink"] = &pad{name: "sink", owner: el}
	case strings.HasSuffix(kind, "sink"):
		el.pads["sink"] = &pad{name: "sink", owner: el}
	default:
		el.pads["sink"] = &pad{name: "sink", owner: el}
		el.pads["src"] = &pad{name: "src", owner: el, src: true}
	}
	return el
}

func (e *element) base() *element { return e }

func (e *element) Name() string { return e.name }

// Kind returns the factory kind the element was created from.
func (e *element) Kind() string { return e.kind }

func (e *element) Parent() engine.Bin {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *element) SetState(s engine.State) engine.StateChangeReturn {
	if e.eng.failsState(e.name, s) {
		return engine.StateChangeFailure
	}
	e.state = s
	return engine.StateChangeSuccess
}

func (e *element) CurrentState() engine.State { return e.state }

func (e *element) StaticPad(name string) engine.Pad {
	p, ok := e.pads[name]
	if !ok {
		return nil
	}
	return p
}

func (e *element) RequestPad(template string) (engine.Pad, error) {
	if e.kind != "tee" || !strings.HasPrefix(template, "src_") {
		return nil, fmt.Errorf("%w: %s has no request template %q", engine.ErrNoPad, e.name, template)
	}
	p := &pad{name: fmt.Sprintf("src_%d", e.reqSeq), owner: e, src: true, request: true}
	e.reqSeq++
	e.requested = append(e.requested, p)
	return p, nil
}

func (e *element) ReleaseRequestPad(rp engine.Pad) {
	p, ok := rp.(*pad)
	if !ok {
		return
	}
	for i, cand := range e.requested {
		if cand != p {
			continue
		}
		if p.peer != nil {
			p.peer.peer = nil
			p.peer = nil
		}
		e.requested = append(e.requested[:i], e.requested[i+1:]...)
		return
	}
}

// unlinkAll drops every pad link, as a native bin does on removal.
func (e *element) unlinkAll() {
	for _, p := range e.pads {
		if p.peer != nil {
			p.peer.peer = nil
			p.peer = nil
		}
	}
	for _, p := range e.requested {
		if p.peer != nil {
			p.peer.peer = nil
			p.peer = nil
		}
	}
}

// RequestPadCount reports how many request pads an element currently holds.
func RequestPadCount(el engine.Element) int {
	b, ok := el.(based)
	if !ok {
		return 0
	}
	return len(b.base().requested)
}

type pad struct {
	name    string
	owner   *element
	peer    *pad
	src     bool
	request bool
}

func (p *pad) Name() string { return p.name }

func (p *pad) ParentElement() engine.Element { return p.owner.self }

func (p *pad) Link(sink engine.Pad) error {
	sp, ok := sink.(*pad)
	if !ok || sp == nil {
		return fmt.Errorf("%w: foreign pad", engine.ErrInvalidInput)
	}
	if !p.src || sp.src {
		return fmt.Errorf("%w: %s:%s -> %s:%s wrong direction", engine.ErrLinkFailed, p.owner.name, p.name, sp.owner.name, sp.name)
	}
	if p.peer != nil || sp.peer != nil {
		return fmt.Errorf("%w: %s:%s -> %s:%s already linked", engine.ErrLinkFailed, p.owner.name, p.name, sp.owner.name, sp.name)
	}
	if p.owner.eng.failsLink(sp.owner.name) {
		return fmt.Errorf("%w: %s refused caps", engine.ErrLinkFailed, sp.owner.name)
	}
	p.peer = sp
	sp.peer = p
	return nil
}

func (p *pad) Unlink(sink engine.Pad) error {
	sp, ok := sink.(*pad)
	if !ok || p.peer != sp || sp == nil {
		return fmt.Errorf("%w: not linked", engine.ErrLinkFailed)
	}
	p.peer = nil
	sp.peer = nil
	return nil
}

func (p *pad) Peer() engine.Pad {
	if p.peer == nil {
		return nil
	}
	return p.peer
}

func (p *pad) IsLinked() bool { return p.peer != nil }

type bin struct {
	element
	selfBin  engine.Bin
	children []engine.Element
}

func newBin(eng *Engine, name string) *bin {
	b := &bin{element: *newElement(eng, "bin", name)}
	b.rebind(b)
	return b
}

// rebind points the embedded element and its pads at the outer value.
func (b *bin) rebind(outer engine.Bin) {
	b.self = outer
	b.selfBin = outer
	for _, p := range b.pads {
		p.owner = &b.element
	}
}

func (b *bin) Add(el engine.Element) error {
	be, ok := el.(based)
	if !ok {
		return fmt.Errorf("%w: foreign element", engine.ErrInvalidInput)
	}
	child := be.base()
	if child.parent != nil {
		return fmt.Errorf("%w: %s in %s", engine.ErrHasParent, child.name, child.parent.Name())
	}
	child.parent = b.selfBin
	b.children = append(b.children, el)
	return nil
}

func (b *bin) Remove(el engine.Element) error {
	for i, c := range b.children {
		if c != el {
			continue
		}
		child := el.(based).base()
		child.parent = nil
		child.unlinkAll()
		b.children = append(b.children[:i], b.children[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %s not in %s", engine.ErrNotParented, el.Name(), b.name)
}

func (b *bin) SetState(s engine.State) engine.StateChangeReturn {
	if b.eng.failsState(b.name, s) {
		return engine.StateChangeFailure
	}
	b.state = s
	for _, c := range b.children {
		c.SetState(s)
	}
	return engine.StateChangeSuccess
}

// Children returns a snapshot of the elements held by a bin.
func Children(b engine.Bin) []engine.Element {
	switch v := b.(type) {
	case *bin:
		return append([]engine.Element(nil), v.children...)
	case *Pipeline:
		return append([]engine.Element(nil), v.children...)
	}
	return nil
}
