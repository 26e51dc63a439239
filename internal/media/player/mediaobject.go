// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package player implements MediaObject, the pipeline-owning root of a media
// graph. It reconciles the logical playback state with the engine's
// asynchronous state changes and decides what happens at end of stream.
//
// Every method must run on the control thread of the Scheduler passed to
// New. Engine bus messages are re-posted onto that thread before they touch
// any state.
package player

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/gstbackend/internal/dispatch"
	"github.com/ManuGH/gstbackend/internal/engine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/media/graph"
	"github.com/ManuGH/gstbackend/internal/media/pluginstall"
)

const (
	// DefaultTickInterval applies when the configured interval is not positive.
	DefaultTickInterval = 50 * time.Millisecond
	aboutToFinishTime   = 2 * time.Second
)

var ErrMissingDependency = errors.New("player: factory and scheduler are required")

// Settings are the tunables a host may change at runtime.
type Settings struct {
	TickInterval   time.Duration
	PrefinishMark  time.Duration
	TransitionTime time.Duration
	AutoplayTitles bool
}

// TagReader reads embedded tags of local files.
type TagReader interface {
	Read(path string) (map[string][]string, error)
}

type Options struct {
	// ID names the player; a UUID is generated when empty.
	ID        string
	Factory   engine.Factory
	Scheduler dispatch.Scheduler
	Installer pluginstall.Installer
	Tags      TagReader
	Settings  Settings
}

type listenerEntry struct {
	id int
	fn Listener
}

// MediaObject owns one pipeline and the root node of its media graph.
type MediaObject struct {
	id       string
	sched    dispatch.Scheduler
	pipe     engine.Pipeline
	node     *graph.Node
	plugins  *pluginstall.Workflow
	tags     TagReader
	settings Settings
	logger   zerolog.Logger

	stopWatch func()
	// epoch invalidates bus messages posted before the pipeline was reset to NULL.
	epoch    atomic.Uint64
	disposed bool

	state        State
	pendingState State
	loading      bool
	resetNeeded  bool

	atEndOfStream   bool
	atStartOfStream bool
	posAtSeek       time.Duration
	seekable        bool
	hasAudio        bool
	hasVideo        bool
	totalTime       time.Duration
	previousTick    time.Duration
	tickTimer       dispatch.Timer
	bufferPercent   int

	prefinishArmed       bool
	aboutToFinishEmitted bool

	source          Source
	nextSource      Source
	transitionTimer dispatch.Timer

	currentTitle    int
	pendingTitle    int
	availableTitles int

	errorType   ErrorType
	errorString string

	installingPlugin bool
	pluginReloaded   bool

	resumeState bool
	oldState    State
	oldPos      time.Duration

	metaData map[string][]string

	listeners []listenerEntry
	nextID    int
}

// New creates a MediaObject in the Loading state with no source.
func New(opts Options) (*MediaObject, error) {
	if opts.Factory == nil || opts.Scheduler == nil {
		return nil, ErrMissingDependency
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	pipe, err := opts.Factory.NewPipeline("mediaobject-" + id)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	m := &MediaObject{
		id:             id,
		sched:          opts.Scheduler,
		pipe:           pipe,
		tags:           opts.Tags,
		settings:       opts.Settings,
		state:          StateLoading,
		pendingState:   StateLoading,
		posAtSeek:      -1,
		totalTime:      -1,
		previousTick:   -1,
		prefinishArmed: true,
		currentTitle:   1,
		pendingTitle:   1,
		metaData:       make(map[string][]string),
		logger: xglog.Derive(func(c *zerolog.Context) {
			*c = c.Str(xglog.FieldComponent, "player").Str(xglog.FieldPlayerID, id)
		}),
	}

	node, err := graph.New("mediaobject-"+id, graph.AudioSource|graph.VideoSource, m, opts.Factory)
	if err != nil {
		pipe.Dispose()
		return nil, fmt.Errorf("create root node: %w", err)
	}
	node.SetRoot(m)
	m.node = node

	m.plugins, err = pluginstall.NewWorkflow(opts.Installer, opts.Scheduler, pluginstall.Hooks{
		Started:   m.onPluginInstallStarted,
		Succeeded: m.onPluginInstallSucceeded,
		Failed:    m.onPluginInstallFailed,
	})
	if err != nil {
		node.Dispose()
		pipe.Dispose()
		return nil, err
	}

	m.stopWatch = pipe.Bus().Watch(m.onBusMessage)
	m.logger.Debug().Str(xglog.FieldEvent, "player.created").Msg("media object created")
	return m, nil
}

// onBusMessage runs on an engine thread.
func (m *MediaObject) onBusMessage(msg engine.Message) {
	epoch := m.epoch.Load()
	m.sched.Post(func() {
		if m.disposed || epoch != m.epoch.Load() {
			return
		}
		m.handleMessage(msg)
	})
}

// resetPipeline forces NULL and drops bus messages still queued from before.
func (m *MediaObject) resetPipeline() {
	m.pipe.SetState(engine.StateNull)
	m.epoch.Add(1)
}

// Subscribe registers fn for every event; the returned func removes it.
func (m *MediaObject) Subscribe(fn Listener) func() {
	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *MediaObject) emit(ev Event) {
	ev.PlayerID = m.id
	for _, l := range append([]listenerEntry(nil), m.listeners...) {
		l.fn(ev)
	}
}

// Dispose stops timers, tears the graph down and releases the pipeline.
func (m *MediaObject) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	m.stopTick()
	if m.transitionTimer != nil {
		m.transitionTimer.Stop()
		m.transitionTimer = nil
	}
	if m.stopWatch != nil {
		m.stopWatch()
	}
	if err := m.node.BreakGraph(); err != nil {
		m.logger.Warn().Err(err).Msg("graph teardown incomplete")
	}
	m.pipe.Dispose()
	m.node.Dispose()
	m.listeners = nil
	m.logger.Debug().Str(xglog.FieldEvent, "player.disposed").Msg("media object disposed")
}

func (m *MediaObject) ID() string { return m.id }

// Node is the root graph node outputs connect to.
func (m *MediaObject) Node() *graph.Node { return m.node }

// Pipeline exposes the owned pipeline to nodes that need to quiesce it.
func (m *MediaObject) Pipeline() engine.Pipeline { return m.pipe }

func (m *MediaObject) State() State { return m.state }

func (m *MediaObject) PendingState() State { return m.pendingState }

func (m *MediaObject) Source() Source { return m.source }

func (m *MediaObject) ErrorType() ErrorType { return m.errorType }

func (m *MediaObject) ErrorString() string { return m.errorString }

func (m *MediaObject) HasVideo() bool { return m.hasVideo }
func (m *MediaObject) HasAudio() bool { return m.hasAudio }

func (m *MediaObject) IsSeekable() bool { return m.seekable }

func (m *MediaObject) BufferPercent() int { return m.bufferPercent }

func (m *MediaObject) Settings() Settings { return m.settings }

// TotalTime is negative while the duration is unknown.
func (m *MediaObject) TotalTime() time.Duration { return m.totalTime }

// CurrentTime is the playback position as the host sees it.
func (m *MediaObject) CurrentTime() time.Duration {
	if m.resumeState {
		return m.oldPos
	}
	switch m.state {
	case StatePaused, StateBuffering, StatePlaying:
		return m.pipelinePos()
	default:
		return 0
	}
}

func (m *MediaObject) RemainingTime() time.Duration {
	if m.totalTime < 0 {
		return 0
	}
	if r := m.totalTime - m.CurrentTime(); r > 0 {
		return r
	}
	return 0
}

// MetaData returns a copy of the current tag map.
func (m *MediaObject) MetaData() map[string][]string {
	out := make(map[string][]string, len(m.metaData))
	for k, v := range m.metaData {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (m *MediaObject) TickInterval() time.Duration {
	if m.settings.TickInterval <= 0 {
		return DefaultTickInterval
	}
	return m.settings.TickInterval
}

// SetTickInterval changes the tick period; a running tick is restarted.
func (m *MediaObject) SetTickInterval(d time.Duration) {
	m.settings.TickInterval = d
	if m.tickTimer != nil {
		m.stopTick()
		m.startTick()
	}
}

func (m *MediaObject) PrefinishMark() time.Duration { return m.settings.PrefinishMark }

// SetPrefinishMark changes the mark and re-arms it when playback is before it.
func (m *MediaObject) SetPrefinishMark(d time.Duration) {
	m.settings.PrefinishMark = d
	if m.totalTime > 0 && m.CurrentTime() < m.totalTime-d {
		m.prefinishArmed = true
	}
}

func (m *MediaObject) TransitionTime() time.Duration { return m.settings.TransitionTime }

func (m *MediaObject) SetTransitionTime(d time.Duration) { m.settings.TransitionTime = d }

func (m *MediaObject) AutoplayTitles() bool { return m.settings.AutoplayTitles }

func (m *MediaObject) SetAutoplayTitles(on bool) { m.settings.AutoplayTitles = on }

// ApplySettings replaces all tunables at once, e.g. after a config reload.
func (m *MediaObject) ApplySettings(s Settings) {
	m.SetTickInterval(s.TickInterval)
	m.SetPrefinishMark(s.PrefinishMark)
	m.settings.TransitionTime = s.TransitionTime
	m.settings.AutoplayTitles = s.AutoplayTitles
}

// graph.Root and graph.Backing

func (m *MediaObject) RootNode() *graph.Node { return m.node }

func (m *MediaObject) AudioGraph() engine.Bin { return m.pipe.AudioGraph() }

func (m *MediaObject) VideoGraph() engine.Bin { return m.pipe.VideoGraph() }

func (m *MediaObject) PipelineState() engine.State { return m.pipe.CurrentState() }

func (m *MediaObject) AudioElement() engine.Element { return m.pipe.AudioSource() }

func (m *MediaObject) VideoElement() engine.Element { return m.pipe.VideoSource() }

// Quiesce brings a flowing pipeline down to READY so elements can be removed.
func (m *MediaObject) Quiesce() {
	if m.pipe.CurrentState() > engine.StateReady {
		m.pipe.SetState(engine.StateReady)
	}
}

// HandleNodeEvent marks the graph dirty when sinks come or go.
func (m *MediaObject) HandleNodeEvent(ev graph.Event) {
	if ev.Structural() {
		m.resetNeeded = true
	}
}

var (
	_ graph.Root    = (*MediaObject)(nil)
	_ graph.Backing = (*MediaObject)(nil)
)
