// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package backend is the host-facing entry point. It creates media objects
// and output nodes, connects them, and marshals every call onto the
// control thread.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/gstbackend/internal/dispatch"
	"github.com/ManuGH/gstbackend/internal/engine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/media/devices"
	"github.com/ManuGH/gstbackend/internal/media/graph"
	"github.com/ManuGH/gstbackend/internal/media/nodes"
	"github.com/ManuGH/gstbackend/internal/media/player"
	"github.com/ManuGH/gstbackend/internal/media/pluginstall"
	"github.com/ManuGH/gstbackend/internal/pipeline/bus"
)

var (
	ErrMissingDeps   = errors.New("backend: factory, runner and bus are required")
	ErrPlayerExists  = errors.New("player already exists")
	ErrPlayerUnknown = errors.New("unknown player")
	ErrConnectFailed = errors.New("connect failed")
	ErrClosed        = errors.New("backend closed")
)

// Runner executes functions on the control thread.
type Runner interface {
	dispatch.Scheduler
	// Call runs fn on the control thread and waits for it.
	Call(ctx context.Context, fn func()) error
}

// Deps are the collaborators a Backend is built from.
type Deps struct {
	Factory   engine.Factory
	Runner    Runner
	Bus       bus.Bus
	Catalog   *devices.Catalog
	Installer pluginstall.Installer
	Tags      player.TagReader
	Settings  player.Settings
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Factory == nil || d.Runner == nil || d.Bus == nil {
		return ErrMissingDeps
	}
	return nil
}

// Backend owns every media object it created.
type Backend struct {
	deps   Deps
	logger zerolog.Logger

	mu       sync.Mutex
	players  map[string]*Player
	settings player.Settings
	closed   bool
}

func New(deps Deps) (*Backend, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.Catalog == nil {
		// an empty catalog resolves every output to the automatic device
		deps.Catalog, _ = devices.NewCatalog()
	}
	return &Backend{
		deps:     deps,
		logger:   xglog.WithComponent("backend"),
		players:  make(map[string]*Player),
		settings: deps.Settings,
	}, nil
}

// Catalog returns the device snapshot outputs are resolved against.
func (b *Backend) Catalog() *devices.Catalog { return b.deps.Catalog }

// Ping round-trips an empty task through the control loop.
func (b *Backend) Ping(ctx context.Context) error {
	return b.deps.Runner.Call(ctx, func() {})
}

// CreateMediaObject creates a player; an empty id gets a generated one.
func (b *Backend) CreateMediaObject(ctx context.Context, id string) (*Player, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	if _, ok := b.players[id]; ok && id != "" {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrPlayerExists, id)
	}
	settings := b.settings
	b.mu.Unlock()

	var (
		mo  *player.MediaObject
		err error
	)
	if callErr := b.deps.Runner.Call(ctx, func() {
		mo, err = player.New(player.Options{
			ID:        id,
			Factory:   b.deps.Factory,
			Scheduler: b.deps.Runner,
			Installer: b.deps.Installer,
			Tags:      b.deps.Tags,
			Settings:  settings,
		})
	}); callErr != nil {
		return nil, callErr
	}
	if err != nil {
		return nil, fmt.Errorf("create media object: %w", err)
	}

	p := newPlayer(mo, b.deps.Runner, b.deps.Bus)
	if err := b.deps.Runner.Call(ctx, p.bridge); err != nil {
		return nil, err
	}

	b.mu.Lock()
	if _, ok := b.players[p.ID()]; ok || b.closed {
		b.mu.Unlock()
		_ = p.dispose(ctx)
		if b.closed {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("%w: %s", ErrPlayerExists, p.ID())
	}
	b.players[p.ID()] = p
	b.mu.Unlock()

	b.logger.Info().
		Str(xglog.FieldPlayerID, p.ID()).
		Str(xglog.FieldEvent, "backend.player_created").
		Msg("media object created")
	return p, nil
}

// CreateAudioOutput creates an audio sink node on the given device.
// An empty device id selects the catalog default.
func (b *Backend) CreateAudioOutput(ctx context.Context, name, deviceID string) (*nodes.AudioOutput, error) {
	var (
		out *nodes.AudioOutput
		err error
	)
	if callErr := b.deps.Runner.Call(ctx, func() {
		out, err = nodes.NewAudioOutput(name, b.deps.Factory, b.deps.Catalog, deviceID)
	}); callErr != nil {
		return nil, callErr
	}
	return out, err
}

func (b *Backend) CreateVideoSink(ctx context.Context, name, deviceID string) (*nodes.VideoSink, error) {
	var (
		out *nodes.VideoSink
		err error
	)
	if callErr := b.deps.Runner.Call(ctx, func() {
		out, err = nodes.NewVideoSink(name, b.deps.Factory, b.deps.Catalog, deviceID)
	}); callErr != nil {
		return nil, callErr
	}
	return out, err
}

func (b *Backend) CreateEffect(ctx context.Context, name, kind string) (*nodes.Effect, error) {
	var (
		out *nodes.Effect
		err error
	)
	if callErr := b.deps.Runner.Call(ctx, func() {
		out, err = nodes.NewEffect(name, kind, b.deps.Factory)
	}); callErr != nil {
		return nil, callErr
	}
	return out, err
}

// Connect links source to sink and rebuilds the affected graph.
func (b *Backend) Connect(ctx context.Context, source, sink *graph.Node) error {
	var err error
	if callErr := b.deps.Runner.Call(ctx, func() { err = source.Connect(sink) }); callErr != nil {
		return callErr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	return nil
}

// Disconnect removes the link between source and sink.
func (b *Backend) Disconnect(ctx context.Context, source, sink *graph.Node) (bool, error) {
	var ok bool
	if err := b.deps.Runner.Call(ctx, func() { ok = source.DisconnectNode(sink) }); err != nil {
		return false, err
	}
	return ok, nil
}

// Player looks up a player by id.
func (b *Backend) Player(id string) (*Player, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerUnknown, id)
	}
	return p, nil
}

// Players returns all players ordered by id.
func (b *Backend) Players() []*Player {
	b.mu.Lock()
	out := make([]*Player, 0, len(b.players))
	for _, p := range b.players {
		out = append(out, p)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ApplySettings updates the tunables of every live player and of players
// created later.
func (b *Backend) ApplySettings(ctx context.Context, s player.Settings) error {
	b.mu.Lock()
	b.settings = s
	b.mu.Unlock()

	var errs []error
	for _, p := range b.Players() {
		if err := p.ApplySettings(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("player %s: %w", p.ID(), err))
		}
	}
	b.logger.Info().
		Dur("tick_interval", s.TickInterval).
		Dur("prefinish_mark", s.PrefinishMark).
		Dur("transition_time", s.TransitionTime).
		Bool("autoplay_titles", s.AutoplayTitles).
		Str(xglog.FieldEvent, "backend.settings_applied").
		Msg("player settings applied")
	return errors.Join(errs...)
}

// RemovePlayer disposes a player and forgets it.
func (b *Backend) RemovePlayer(ctx context.Context, id string) error {
	b.mu.Lock()
	p, ok := b.players[id]
	delete(b.players, id)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerUnknown, id)
	}
	return p.dispose(ctx)
}

// Close disposes every player. Later creations fail with ErrClosed.
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	players := b.players
	b.players = make(map[string]*Player)
	b.mu.Unlock()

	var errs []error
	for _, p := range players {
		if err := p.dispose(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetOutputDevice moves an audio output to another device on the control thread.
func (b *Backend) SetOutputDevice(ctx context.Context, out *nodes.AudioOutput, deviceID string) error {
	var err error
	if callErr := b.deps.Runner.Call(ctx, func() { err = out.SetOutputDevice(deviceID) }); callErr != nil {
		return callErr
	}
	return err
}

// AttachAudioOutput creates the player's audio output on deviceID and
// connects it to the player's root node.
func (b *Backend) AttachAudioOutput(ctx context.Context, p *Player, deviceID string) (*nodes.AudioOutput, error) {
	var (
		out *nodes.AudioOutput
		err error
	)
	if callErr := b.deps.Runner.Call(ctx, func() {
		if p.audio != nil {
			err = fmt.Errorf("%w: player %s already has an audio output", ErrConnectFailed, p.id)
			return
		}
		out, err = nodes.NewAudioOutput(p.id+"-audio", b.deps.Factory, b.deps.Catalog, deviceID)
		if err != nil {
			if out != nil {
				out.Dispose()
			}
			return
		}
		if err = p.mo.Node().Connect(out.Node()); err != nil {
			out.Dispose()
			err = fmt.Errorf("%w: %w", ErrConnectFailed, err)
			return
		}
		p.audio = out
	}); callErr != nil {
		return nil, callErr
	}
	return out, err
}

// SetPlayerDevice switches the audio output of a player.
func (b *Backend) SetPlayerDevice(ctx context.Context, p *Player, deviceID string) error {
	var err error
	if callErr := b.deps.Runner.Call(ctx, func() {
		if p.audio == nil {
			err = fmt.Errorf("%w: player %s has no audio output", ErrPlayerUnknown, p.id)
			return
		}
		err = p.audio.SetOutputDevice(deviceID)
	}); callErr != nil {
		return callErr
	}
	return err
}
