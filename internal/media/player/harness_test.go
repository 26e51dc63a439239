// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/gstbackend/internal/dispatch"
	"github.com/ManuGH/gstbackend/internal/engine/memengine"
)

const (
	songURI = "http://media.test/song.ogg"
	nextURI = "http://media.test/next.ogg"
	liveURI = "http://media.test/live"
)

func song() memengine.Media {
	return memengine.Media{
		Duration: 100 * time.Second,
		Seekable: true,
		HasAudio: true,
		Tags:     map[string][]string{"TITLE": {"Song"}},
	}
}

type harness struct {
	t      *testing.T
	eng    *memengine.Engine
	sched  *dispatch.Manual
	mo     *MediaObject
	pipe   *memengine.Pipeline
	events []Event
}

func newHarness(t *testing.T, settings Settings, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{t: t, eng: memengine.New(), sched: dispatch.NewManual()}
	opts := Options{ID: "p1", Factory: h.eng, Scheduler: h.sched, Settings: settings}
	for _, fn := range mutate {
		fn(&opts)
	}
	mo, err := New(opts)
	require.NoError(t, err)
	h.mo = mo
	pipe, ok := mo.Pipeline().(*memengine.Pipeline)
	require.True(t, ok)
	h.pipe = pipe
	mo.Subscribe(func(ev Event) { h.events = append(h.events, ev) })
	t.Cleanup(mo.Dispose)
	return h
}

// load registers media under uri, sets it as source and drains until loaded.
func (h *harness) load(uri string, media memengine.Media) {
	h.t.Helper()
	h.eng.AddMedia(uri, media)
	h.mo.SetSource(URL(uri))
	h.sched.Drain()
}

func (h *harness) play() {
	h.t.Helper()
	h.mo.Play()
	h.sched.Drain()
	require.Equal(h.t, StatePlaying, h.mo.State())
}

// tickAt moves the simulated position and lets one tick fire.
func (h *harness) tickAt(pos time.Duration) {
	h.pipe.SetPosition(pos)
	h.sched.Advance(h.mo.TickInterval())
}

func (h *harness) of(kind EventKind) []Event {
	var out []Event
	for _, ev := range h.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (h *harness) states() []State {
	var out []State
	for _, ev := range h.of(EventStateChanged) {
		out = append(out, ev.NewState)
	}
	return out
}

func (h *harness) clear() { h.events = nil }
