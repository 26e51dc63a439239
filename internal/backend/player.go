// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/media/graph"
	"github.com/ManuGH/gstbackend/internal/media/nodes"
	"github.com/ManuGH/gstbackend/internal/media/player"
	"github.com/ManuGH/gstbackend/internal/pipeline/bus"
)

// Player is a goroutine-safe handle on a MediaObject. Every call is run on
// the control thread; signals are offered to the bus on the player's topic.
type Player struct {
	id     string
	mo     *player.MediaObject
	runner Runner
	bus    bus.Bus
	topic  string
	logger zerolog.Logger

	unsubscribe func()
	// audio is only touched on the control thread.
	audio *nodes.AudioOutput
}

// Status is a consistent snapshot of a player's observable properties.
type Status struct {
	ID              string              `json:"id"`
	State           player.State        `json:"state"`
	PendingState    player.State        `json:"pendingState"`
	Source          player.Source       `json:"source"`
	NextSource      *player.Source      `json:"nextSource,omitempty"`
	PositionMS      int64               `json:"positionMs"`
	DurationMS      int64               `json:"durationMs"`
	RemainingMS     int64               `json:"remainingMs"`
	Seekable        bool                `json:"seekable"`
	HasVideo        bool                `json:"hasVideo"`
	BufferPercent   int                 `json:"bufferPercent"`
	CurrentTitle    int                 `json:"currentTitle"`
	AvailableTitles int                 `json:"availableTitles"`
	ErrorType       player.ErrorType    `json:"errorType"`
	ErrorString     string              `json:"error,omitempty"`
	MetaData        map[string][]string `json:"metadata,omitempty"`
	OutputDevice    string              `json:"outputDevice,omitempty"`
}

func newPlayer(mo *player.MediaObject, runner Runner, b bus.Bus) *Player {
	return &Player{
		id:     mo.ID(),
		mo:     mo,
		runner: runner,
		bus:    b,
		topic:  bus.PlayerTopic(mo.ID()),
		logger: xglog.Derive(func(c *zerolog.Context) {
			*c = c.Str(xglog.FieldComponent, "backend").Str(xglog.FieldPlayerID, mo.ID())
		}),
	}
}

// bridge runs on the control thread.
func (p *Player) bridge() {
	p.unsubscribe = p.mo.Subscribe(p.publish)
}

func (p *Player) publish(ev player.Event) {
	if p.bus.Offer(p.topic, ev) == 0 && ev.Kind != player.EventTick {
		p.logger.Trace().
			Str(xglog.FieldEvent, "backend.signal_unobserved").
			Str("signal", ev.Kind.String()).
			Msg("no subscriber received signal")
	}
}

func (p *Player) ID() string { return p.id }

// Topic is the bus topic the player's signals are offered on.
func (p *Player) Topic() string { return p.topic }

// Node is the root graph node outputs connect to.
func (p *Player) Node() *graph.Node { return p.mo.Node() }

// Subscribe returns a subscription to this player's signals.
func (p *Player) Subscribe(ctx context.Context) (bus.Subscriber, error) {
	return p.bus.Subscribe(ctx, p.topic)
}

// Do runs fn with the media object on the control thread.
func (p *Player) Do(ctx context.Context, fn func(*player.MediaObject)) error {
	return p.runner.Call(ctx, func() { fn(p.mo) })
}

func (p *Player) SetSource(ctx context.Context, src player.Source) error {
	return p.Do(ctx, func(mo *player.MediaObject) { mo.SetSource(src) })
}

func (p *Player) SetNextSource(ctx context.Context, src player.Source) error {
	return p.Do(ctx, func(mo *player.MediaObject) { mo.SetNextSource(src) })
}

func (p *Player) ClearNextSource(ctx context.Context) error {
	return p.Do(ctx, func(mo *player.MediaObject) { mo.ClearNextSource() })
}

func (p *Player) Play(ctx context.Context) error {
	return p.Do(ctx, func(mo *player.MediaObject) { mo.Play() })
}

func (p *Player) Pause(ctx context.Context) error {
	return p.Do(ctx, func(mo *player.MediaObject) { mo.Pause() })
}

func (p *Player) Stop(ctx context.Context) error {
	return p.Do(ctx, func(mo *player.MediaObject) { mo.Stop() })
}

func (p *Player) Seek(ctx context.Context, pos time.Duration) error {
	return p.Do(ctx, func(mo *player.MediaObject) { mo.Seek(pos) })
}

func (p *Player) SetCurrentTitle(ctx context.Context, title int) error {
	return p.Do(ctx, func(mo *player.MediaObject) { mo.SetCurrentTitle(title) })
}

func (p *Player) ApplySettings(ctx context.Context, s player.Settings) error {
	return p.Do(ctx, func(mo *player.MediaObject) { mo.ApplySettings(s) })
}

// Status reads all properties in one control-thread turn.
func (p *Player) Status(ctx context.Context) (Status, error) {
	var st Status
	err := p.Do(ctx, func(mo *player.MediaObject) {
		st = Status{
			ID:              mo.ID(),
			State:           mo.State(),
			PendingState:    mo.PendingState(),
			Source:          mo.Source(),
			PositionMS:      mo.CurrentTime().Milliseconds(),
			DurationMS:      mo.TotalTime().Milliseconds(),
			RemainingMS:     mo.RemainingTime().Milliseconds(),
			Seekable:        mo.IsSeekable(),
			HasVideo:        mo.HasVideo(),
			BufferPercent:   mo.BufferPercent(),
			CurrentTitle:    mo.CurrentTitle(),
			AvailableTitles: mo.AvailableTitles(),
			ErrorType:       mo.ErrorType(),
			ErrorString:     mo.ErrorString(),
			MetaData:        mo.MetaData(),
		}
		if next := mo.NextSource(); next.Playable() {
			st.NextSource = &next
		}
		if p.audio != nil {
			st.OutputDevice = p.audio.Device().ID
		}
	})
	return st, err
}

func (p *Player) dispose(ctx context.Context) error {
	return p.Do(ctx, func(mo *player.MediaObject) {
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		mo.Dispose()
		if p.audio != nil {
			p.audio.Dispose()
			p.audio = nil
		}
	})
}
