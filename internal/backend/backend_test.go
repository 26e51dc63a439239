// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/gstbackend/internal/config"
	"github.com/ManuGH/gstbackend/internal/dispatch"
	"github.com/ManuGH/gstbackend/internal/engine/memengine"
	"github.com/ManuGH/gstbackend/internal/media/devices"
	"github.com/ManuGH/gstbackend/internal/media/player"
	"github.com/ManuGH/gstbackend/internal/media/pluginstall"
	"github.com/ManuGH/gstbackend/internal/pipeline/bus"
)

const songURI = "http://media.test/song.ogg"

func song() memengine.Media {
	return memengine.Media{Duration: 90 * time.Second, Seekable: true, HasAudio: true}
}

// manualRunner completes every call by draining the manual scheduler.
type manualRunner struct{ *dispatch.Manual }

func (r manualRunner) Call(_ context.Context, fn func()) error {
	fn()
	r.Drain()
	return nil
}

type fixture struct {
	eng *memengine.Engine
	bus *bus.MemoryBus
	b   *Backend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := devices.NewCatalog(
		devices.Device{ID: "hdmi", Element: "pulsesink", Kind: devices.Audio, Default: true},
		devices.Device{ID: "usb", Element: "alsasink", Kind: devices.Audio},
		devices.Device{ID: "x11", Element: "xvimagesink", Kind: devices.Video},
	)
	require.NoError(t, err)

	f := &fixture{eng: memengine.New(), bus: bus.NewMemoryBus()}
	f.eng.AddMedia(songURI, song())
	f.b, err = New(Deps{
		Factory:  f.eng,
		Runner:   manualRunner{dispatch.NewManual()},
		Bus:      f.bus,
		Catalog:  catalog,
		Settings: player.Settings{TickInterval: 100 * time.Millisecond},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.b.Close(context.Background()) })
	return f
}

func drain(sub bus.Subscriber) []player.Event {
	var out []player.Event
	for {
		select {
		case msg := <-sub.C():
			out = append(out, msg.(player.Event))
		default:
			return out
		}
	}
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	require.ErrorIs(t, err, ErrMissingDeps)
}

func TestCreateMediaObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.b.CreateMediaObject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID())
	assert.Equal(t, "player.p1", p.Topic())

	_, err = f.b.CreateMediaObject(ctx, "p1")
	require.ErrorIs(t, err, ErrPlayerExists)

	anon, err := f.b.CreateMediaObject(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, anon.ID())

	got, err := f.b.Player("p1")
	require.NoError(t, err)
	assert.Same(t, p, got)
	assert.Len(t, f.b.Players(), 2)

	_, err = f.b.Player("nope")
	require.ErrorIs(t, err, ErrPlayerUnknown)
}

func TestPlayerSignalsReachBus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.b.CreateMediaObject(ctx, "p1")
	require.NoError(t, err)

	sub, err := p.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, p.SetSource(ctx, player.URL(songURI)))
	require.NoError(t, p.Play(ctx))

	var states []player.State
	for _, ev := range drain(sub) {
		assert.Equal(t, "p1", ev.PlayerID)
		if ev.Kind == player.EventStateChanged {
			states = append(states, ev.NewState)
		}
	}
	assert.Equal(t, []player.State{player.StateStopped, player.StatePlaying}, states)
}

func TestPlayerStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.b.CreateMediaObject(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, p.SetSource(ctx, player.URL(songURI)))
	require.NoError(t, p.SetNextSource(ctx, player.URL("http://media.test/next.ogg")))
	require.NoError(t, p.Play(ctx))
	require.NoError(t, p.Seek(ctx, 30*time.Second))

	st, err := p.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, player.StatePlaying, st.State)
	assert.Equal(t, player.URL(songURI), st.Source)
	require.NotNil(t, st.NextSource)
	assert.Equal(t, int64(90_000), st.DurationMS)
	assert.Equal(t, int64(30_000), st.PositionMS)
	assert.Equal(t, int64(60_000), st.RemainingMS)
	assert.True(t, st.Seekable)
	assert.Equal(t, player.NoError, st.ErrorType)

	require.NoError(t, p.ClearNextSource(ctx))
	st, err = p.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.NextSource)
}

func TestOutputsAndDeviceSwitch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.b.CreateMediaObject(ctx, "p1")
	require.NoError(t, err)

	out, err := f.b.CreateAudioOutput(ctx, "out", "")
	require.NoError(t, err)
	assert.Equal(t, "hdmi", out.Device().ID)
	fx, err := f.b.CreateEffect(ctx, "eq", "equalizer-10bands")
	require.NoError(t, err)
	video, err := f.b.CreateVideoSink(ctx, "screen", "")
	require.NoError(t, err)

	require.NoError(t, f.b.Connect(ctx, p.Node(), fx.Node()))
	require.NoError(t, f.b.Connect(ctx, fx.Node(), out.Node()))
	require.NoError(t, f.b.Connect(ctx, p.Node(), video.Node()))
	require.ErrorIs(t, f.b.Connect(ctx, fx.Node(), out.Node()), ErrConnectFailed)

	require.NoError(t, p.SetSource(ctx, player.URL(songURI)))
	require.NoError(t, p.Play(ctx))

	require.NoError(t, f.b.SetOutputDevice(ctx, out, "usb"))
	assert.Equal(t, "usb", out.Device().ID)
	st, err := p.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, player.StatePlaying, st.State)

	require.ErrorIs(t, f.b.SetOutputDevice(ctx, out, "spdif"), devices.ErrUnknownDevice)

	ok, err := f.b.Disconnect(ctx, p.Node(), video.Node())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.b.Disconnect(ctx, p.Node(), video.Node())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplySettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1, err := f.b.CreateMediaObject(ctx, "p1")
	require.NoError(t, err)

	want := player.Settings{TickInterval: 250 * time.Millisecond, PrefinishMark: 3 * time.Second, AutoplayTitles: true}
	require.NoError(t, f.b.ApplySettings(ctx, want))

	p2, err := f.b.CreateMediaObject(ctx, "p2")
	require.NoError(t, err)
	for _, p := range []*Player{p1, p2} {
		var got player.Settings
		require.NoError(t, p.Do(ctx, func(mo *player.MediaObject) { got = mo.Settings() }))
		assert.Equal(t, want, got, p.ID())
	}
}

func TestRemoveAndClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.b.CreateMediaObject(ctx, "p1")
	require.NoError(t, err)
	_, err = f.b.CreateMediaObject(ctx, "p2")
	require.NoError(t, err)

	require.NoError(t, f.b.RemovePlayer(ctx, "p1"))
	require.ErrorIs(t, f.b.RemovePlayer(ctx, "p1"), ErrPlayerUnknown)

	require.NoError(t, f.b.Close(ctx))
	assert.Empty(t, f.b.Players())
	_, err = f.b.CreateMediaObject(ctx, "p3")
	require.ErrorIs(t, err, ErrClosed)
}

func TestBackendOnControlLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	eng := memengine.New(memengine.WithAsyncBus())
	eng.AddMedia(songURI, song())
	loop := dispatch.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	b, err := New(Deps{Factory: eng, Runner: loop, Bus: bus.NewMemoryBus()})
	require.NoError(t, err)
	p, err := b.CreateMediaObject(ctx, "live")
	require.NoError(t, err)
	sub, err := p.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, p.SetSource(ctx, player.URL(songURI)))
	require.NoError(t, p.Play(ctx))

	deadline := time.After(5 * time.Second)
	for playing := false; !playing; {
		select {
		case msg := <-sub.C():
			ev := msg.(player.Event)
			playing = ev.Kind == player.EventStateChanged && ev.NewState == player.StatePlaying
		case <-deadline:
			t.Fatal("player never reached playing")
		}
	}

	require.NoError(t, b.Close(ctx))
	require.NoError(t, sub.Close())
	cancel()
	require.NoError(t, <-errc)

	_, err = p.Status(context.Background())
	require.ErrorIs(t, err, dispatch.ErrStopped)
}

func TestFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.PlayerConfig{TickInterval: time.Second, TransitionTime: time.Millisecond, AutoplayTitles: true})
	assert.Equal(t, player.Settings{TickInterval: time.Second, TransitionTime: time.Millisecond, AutoplayTitles: true}, s)

	catalog, err := CatalogFromConfig(config.DevicesConfig{
		Audio: []config.DeviceConfig{{ID: "usb", Element: "alsasink"}, {ID: "hdmi", Element: "pulsesink", Default: true}},
		Video: []config.DeviceConfig{{ID: "x11", Name: "X11", Element: "xvimagesink"}},
	})
	require.NoError(t, err)
	def, ok := catalog.Default(devices.Audio)
	require.True(t, ok)
	assert.Equal(t, "hdmi", def.ID)
	assert.Equal(t, "hdmi", def.Name)
	video, err := catalog.Lookup(devices.Video, "x11")
	require.NoError(t, err)
	assert.Equal(t, "X11", video.Name)

	_, err = CatalogFromConfig(config.DevicesConfig{Audio: []config.DeviceConfig{{ID: "a"}}})
	require.ErrorIs(t, err, devices.ErrNoElement)

	assert.IsType(t, pluginstall.None{}, InstallerFromConfig(config.PluginsConfig{Installer: config.InstallerNone}))
	static := InstallerFromConfig(config.PluginsConfig{Installer: config.InstallerStatic, Available: []string{"x"}})
	assert.Equal(t, pluginstall.StatusInstalling, static.Check([]string{"x"}))
}

func TestAttachAudioOutput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.b.CreateMediaObject(ctx, "p1")
	require.NoError(t, err)

	require.ErrorIs(t, f.b.SetPlayerDevice(ctx, p, "usb"), ErrPlayerUnknown)

	out, err := f.b.AttachAudioOutput(ctx, p, "")
	require.NoError(t, err)
	assert.Equal(t, "p1-audio-hdmi", out.AudioElement().Name())
	_, err = f.b.AttachAudioOutput(ctx, p, "usb")
	require.ErrorIs(t, err, ErrConnectFailed)

	require.NoError(t, p.SetSource(ctx, player.URL(songURI)))
	require.NoError(t, p.Play(ctx))
	require.NoError(t, f.b.SetPlayerDevice(ctx, p, "usb"))

	st, err := p.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "usb", st.OutputDevice)
	assert.Equal(t, player.StatePlaying, st.State)
}

func TestAttachAudioOutputUnknownDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.b.CreateMediaObject(ctx, "p1")
	require.NoError(t, err)

	_, err = f.b.AttachAudioOutput(ctx, p, "spdif")
	require.ErrorIs(t, err, devices.ErrUnknownDevice)

	st, err := p.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.OutputDevice)
}
