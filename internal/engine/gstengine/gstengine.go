// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build gstreamer

// Package gstengine adapts go-gst to the engine port.
package gstengine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"

	"github.com/ManuGH/gstbackend/internal/engine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
)

var gstInitOnce sync.Once

// Available reports whether this binary was built with GStreamer support.
func Available() bool { return true }

// Factory creates native GStreamer pipelines and elements.
type Factory struct {
	mu       sync.Mutex
	elements map[string]engine.Element
}

func New() (engine.Factory, error) {
	gstInitOnce.Do(func() {
		gst.Init(nil)
	})
	return &Factory{elements: make(map[string]engine.Element)}, nil
}

func (f *Factory) register(name string, el engine.Element) {
	f.mu.Lock()
	f.elements[name] = el
	f.mu.Unlock()
}

func (f *Factory) lookup(name string) engine.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elements[name]
}

func (f *Factory) NewElement(kind, name string) (engine.Element, error) {
	if kind == "bin" {
		b := gst.NewBin(name)
		w := &bin{element: element{f: f, el: b.Element}, b: b}
		w.self = w
		f.register(b.GetName(), w)
		return w, nil
	}
	var (
		el  *gst.Element
		err error
	)
	if name == "" {
		el, err = gst.NewElement(kind)
	} else {
		el, err = gst.NewElementWithName(kind, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", engine.ErrUnknownKind, kind, err)
	}
	w := &element{f: f, el: el}
	w.self = w
	f.register(el.GetName(), w)
	return w, nil
}

type element struct {
	f      *Factory
	el     *gst.Element
	self   engine.Element
	parent engine.Bin
}

func (e *element) raw() *element { return e }

func (e *element) Name() string { return e.el.GetName() }

func (e *element) Parent() engine.Bin {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *element) SetState(s engine.State) engine.StateChangeReturn {
	from := e.CurrentState()
	if err := e.el.SetState(toGst(s)); err != nil {
		return engine.StateChangeFailure
	}
	if s > from && s >= engine.StatePaused {
		return engine.StateChangeAsync
	}
	return engine.StateChangeSuccess
}

func (e *element) CurrentState() engine.State { return fromGst(e.el.GetCurrentState()) }

func (e *element) StaticPad(name string) engine.Pad {
	p := e.el.GetStaticPad(name)
	if p == nil {
		return nil
	}
	return &pad{f: e.f, p: p}
}

func (e *element) RequestPad(template string) (engine.Pad, error) {
	p := e.el.GetRequestPad(template)
	if p == nil {
		return nil, fmt.Errorf("%w: %s %s", engine.ErrNoPad, e.Name(), template)
	}
	return &pad{f: e.f, p: p}, nil
}

func (e *element) ReleaseRequestPad(p engine.Pad) {
	if gp, ok := p.(*pad); ok {
		e.el.ReleaseRequestPad(gp.p)
	}
}

type pad struct {
	f *Factory
	p *gst.Pad
}

func (p *pad) Name() string { return p.p.GetName() }

func (p *pad) ParentElement() engine.Element {
	parent := p.p.GetParentElement()
	if parent == nil {
		return nil
	}
	return p.f.lookup(parent.GetName())
}

func (p *pad) Link(sink engine.Pad) error {
	sp, ok := sink.(*pad)
	if !ok {
		return fmt.Errorf("%w: foreign pad", engine.ErrInvalidInput)
	}
	if ret := p.p.Link(sp.p); ret != gst.PadLinkOK {
		return fmt.Errorf("%w: %s -> %s: %v", engine.ErrLinkFailed, p.Name(), sp.Name(), ret)
	}
	return nil
}

func (p *pad) Unlink(sink engine.Pad) error {
	sp, ok := sink.(*pad)
	if !ok || !p.p.Unlink(sp.p) {
		return fmt.Errorf("%w: unlink %s", engine.ErrLinkFailed, p.Name())
	}
	return nil
}

func (p *pad) Peer() engine.Pad {
	peer := p.p.GetPeer()
	if peer == nil {
		return nil
	}
	return &pad{f: p.f, p: peer}
}

func (p *pad) IsLinked() bool { return p.p.IsLinked() }

type bin struct {
	element
	b *gst.Bin
}

type rawElement interface {
	raw() *element
}

func (b *bin) Add(el engine.Element) error {
	r, ok := el.(rawElement)
	if !ok {
		return fmt.Errorf("%w: foreign element", engine.ErrInvalidInput)
	}
	child := r.raw()
	if child.parent != nil {
		return fmt.Errorf("%w: %s", engine.ErrHasParent, child.Name())
	}
	if err := b.b.Add(child.el); err != nil {
		return err
	}
	child.parent = b.self.(engine.Bin)
	return nil
}

func (b *bin) Remove(el engine.Element) error {
	r, ok := el.(rawElement)
	if !ok {
		return fmt.Errorf("%w: foreign element", engine.ErrInvalidInput)
	}
	child := r.raw()
	if err := b.b.Remove(child.el); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrNotParented, err)
	}
	child.parent = nil
	return nil
}

// Pipeline wraps a uridecodebin feeding one audio and one video graph.
type Pipeline struct {
	bin
	p          *gst.Pipeline
	decoder    *gst.Element
	audioGraph *bin
	videoGraph *bin
	audioPipe  *element
	videoPipe  *element
	bus        *bus

	mu       sync.Mutex
	hasAudio bool
	hasVideo bool
}

func (f *Factory) NewPipeline(name string) (engine.Pipeline, error) {
	gp, err := gst.NewPipeline(name)
	if err != nil {
		return nil, fmt.Errorf("new pipeline: %w", err)
	}
	decoder, err := gst.NewElementWithName("uridecodebin", name+"-decodebin")
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	p := &Pipeline{p: gp, decoder: decoder}
	p.bin = bin{element: element{f: f, el: gp.Element}, b: gp.Bin}
	p.self = p

	if p.audioGraph, p.audioPipe, err = f.newGraph(name+"-audiograph", "audioconvert"); err != nil {
		return nil, err
	}
	if p.videoGraph, p.videoPipe, err = f.newGraph(name+"-videograph", "videoconvert"); err != nil {
		return nil, err
	}
	if err := gp.AddMany(decoder, p.audioGraph.el, p.videoGraph.el); err != nil {
		return nil, fmt.Errorf("assemble pipeline: %w", err)
	}
	p.audioGraph.parent = p
	p.videoGraph.parent = p

	if _, err := decoder.Connect("pad-added", p.onPadAdded); err != nil {
		return nil, fmt.Errorf("connect pad-added: %w", err)
	}
	p.bus = newBus(gp.GetPipelineBus(), name)
	f.register(name, p)
	return p, nil
}

func (f *Factory) newGraph(name, convert string) (*bin, *element, error) {
	gb := gst.NewBin(name)
	graph := &bin{element: element{f: f, el: gb.Element}, b: gb}
	graph.self = graph
	conv, err := gst.NewElementWithName(convert, name+"-pipe")
	if err != nil {
		return nil, nil, fmt.Errorf("new %s: %w", convert, err)
	}
	if err := gb.Add(conv); err != nil {
		return nil, nil, err
	}
	ghost := gst.NewGhostPad("sink", conv.GetStaticPad("sink"))
	if ghost == nil || !gb.AddPad(ghost.Pad) {
		return nil, nil, fmt.Errorf("%w: ghost pad for %s", engine.ErrNoPad, name)
	}
	pipe := &element{f: f, el: conv, parent: graph}
	pipe.self = pipe
	f.register(name, graph)
	f.register(conv.GetName(), pipe)
	return graph, pipe, nil
}

func (p *Pipeline) onPadAdded(_ *gst.Element, src *gst.Pad) {
	caps := src.GetCurrentCaps()
	if caps == nil {
		return
	}
	media := caps.GetStructureAt(0).Name()
	var target *bin
	switch {
	case strings.HasPrefix(media, "audio/"):
		target = p.audioGraph
		p.mu.Lock()
		p.hasAudio = true
		p.mu.Unlock()
	case strings.HasPrefix(media, "video/"):
		target = p.videoGraph
		p.mu.Lock()
		p.hasVideo = true
		p.mu.Unlock()
	default:
		return
	}
	sink := target.el.GetStaticPad("sink")
	if sink == nil || sink.IsLinked() {
		return
	}
	if ret := src.Link(sink); ret != gst.PadLinkOK {
		logger := xglog.WithComponent("gstengine")
		logger.Warn().
			Str("caps", media).
			Str("result", fmt.Sprint(ret)).
			Msg("decoder pad link failed")
	}
}

func (p *Pipeline) AudioGraph() engine.Bin      { return p.audioGraph }
func (p *Pipeline) VideoGraph() engine.Bin      { return p.videoGraph }
func (p *Pipeline) AudioSource() engine.Element { return p.audioPipe }
func (p *Pipeline) VideoSource() engine.Element { return p.videoPipe }
func (p *Pipeline) Bus() engine.Bus             { return p.bus }

func (p *Pipeline) SetURI(uri string) error {
	p.mu.Lock()
	p.hasAudio, p.hasVideo = false, false
	p.mu.Unlock()
	return p.decoder.SetProperty("uri", uri)
}

func (p *Pipeline) QueryPosition() (time.Duration, bool) {
	ok, pos := p.p.QueryPosition(gst.FormatTime)
	return time.Duration(pos), ok
}

func (p *Pipeline) QueryDuration() (time.Duration, bool) {
	ok, dur := p.p.QueryDuration(gst.FormatTime)
	return time.Duration(dur), ok && dur > 0
}

func (p *Pipeline) QuerySeekable() bool {
	q := gst.NewSeekingQuery(gst.FormatTime)
	if !p.p.Query(q) {
		return false
	}
	_, seekable, _, _ := q.ParseSeeking()
	return seekable
}

func (p *Pipeline) Seek(pos time.Duration) bool {
	return p.p.SeekSimple(pos.Nanoseconds(), gst.FormatTime, gst.SeekFlagFlush)
}

// SeekTrack is unsupported: uridecodebin exposes no track format.
func (p *Pipeline) SeekTrack(int) bool { return false }

func (p *Pipeline) TrackCount() (int, bool) { return 0, false }

func (p *Pipeline) StreamInfo() engine.StreamInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return engine.StreamInfo{HasAudio: p.hasAudio, HasVideo: p.hasVideo}
}

func (p *Pipeline) Dispose() {
	_ = p.p.SetState(gst.StateNull)
	p.bus.close()
}

func toGst(s engine.State) gst.State {
	switch s {
	case engine.StateNull:
		return gst.StateNull
	case engine.StateReady:
		return gst.StateReady
	case engine.StatePaused:
		return gst.StatePaused
	case engine.StatePlaying:
		return gst.StatePlaying
	default:
		return gst.VoidPending
	}
}

func fromGst(s gst.State) engine.State {
	switch s {
	case gst.StateNull:
		return engine.StateNull
	case gst.StateReady:
		return engine.StateReady
	case gst.StatePaused:
		return engine.StatePaused
	case gst.StatePlaying:
		return engine.StatePlaying
	default:
		return engine.StateVoidPending
	}
}

var _ engine.Pipeline = (*Pipeline)(nil)
