// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package memengine is an in-memory implementation of the engine port.
// It steps pipeline states deterministically, posts the same bus
// notifications a native engine would, and lets callers inject failures.
package memengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/gstbackend/internal/engine"
)

// Media describes what a URI resolves to once prerolled.
type Media struct {
	Duration time.Duration
	Seekable bool
	HasAudio bool
	HasVideo bool
	Tracks   int
	Tags     map[string][]string
	// Err is posted instead of reaching PAUSED.
	Err *engine.ErrorInfo
	// MissingPlugin, when set, is announced before a missing-plugin error.
	MissingPlugin string
}

// Engine is a factory for in-memory pipelines and elements.
type Engine struct {
	mu         sync.Mutex
	media      map[string]Media
	failLinks  map[string]bool
	failKinds  map[string]bool
	failStates map[string]map[engine.State]bool
	asyncBus   bool
	seq        int
}

// Option configures an Engine.
type Option func(*Engine)

// WithAsyncBus delivers bus messages from a dedicated goroutine, as a native
// streaming thread would.
func WithAsyncBus() Option {
	return func(e *Engine) { e.asyncBus = true }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		media:      make(map[string]Media),
		failLinks:  make(map[string]bool),
		failKinds:  make(map[string]bool),
		failStates: make(map[string]map[engine.State]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddMedia registers what a URI prerolls to.
func (e *Engine) AddMedia(uri string, m Media) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.media[uri] = m
}

// FailLinksInto makes every link into the named element's sink pad fail.
func (e *Engine) FailLinksInto(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLinks[name] = true
}

// ClearLinkFailures removes all injected link failures.
func (e *Engine) ClearLinkFailures() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLinks = make(map[string]bool)
}

// FailElementKind makes NewElement fail for kind.
func (e *Engine) FailElementKind(kind string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failKinds[kind] = true
}

// FailState makes SetState(s) on the named element or pipeline return failure.
func (e *Engine) FailState(name string, s engine.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failStates[name] == nil {
		e.failStates[name] = make(map[engine.State]bool)
	}
	e.failStates[name][s] = true
}

// ClearStateFailures removes all injected state change failures.
func (e *Engine) ClearStateFailures() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failStates = make(map[string]map[engine.State]bool)
}

func (e *Engine) failsLink(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failLinks[name]
}

func (e *Engine) failsState(name string, s engine.State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failStates[name][s]
}

func (e *Engine) lookup(uri string) (Media, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.media[uri]
	return m, ok
}

func (e *Engine) nextName(kind string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	return fmt.Sprintf("%s%d", kind, e.seq)
}

func (e *Engine) NewElement(kind, name string) (engine.Element, error) {
	e.mu.Lock()
	failed := e.failKinds[kind]
	e.mu.Unlock()
	if failed {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownKind, kind)
	}
	if name == "" {
		name = e.nextName(kind)
	}
	if kind == "bin" {
		return newBin(e, name), nil
	}
	return newElement(e, kind, name), nil
}

func (e *Engine) NewPipeline(name string) (engine.Pipeline, error) {
	if name == "" {
		name = e.nextName("pipeline")
	}
	return newPipeline(e, name), nil
}

var _ engine.Factory = (*Engine)(nil)
