// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"time"

	"github.com/ManuGH/gstbackend/internal/engine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/media/graph"
	"github.com/ManuGH/gstbackend/internal/media/metadata"
	"github.com/ManuGH/gstbackend/internal/metrics"
)

func (m *MediaObject) Play() {
	m.setState(StatePlaying)
	m.resumeState = false
}

func (m *MediaObject) Pause() {
	m.resumeState = false
	m.setState(StatePaused)
}

func (m *MediaObject) Stop() {
	if m.state != StateStopped {
		m.setState(StateStopped)
		m.prefinishArmed = true
	}
	m.resumeState = false
}

// Seek moves playback to pos. It is ignored for non-seekable streams and
// while loading or in error.
func (m *MediaObject) Seek(pos time.Duration) {
	m.seek(pos)
}

// setState requests a logical state. While loading the request only
// replaces the pending target.
func (m *MediaObject) setState(s State) {
	if m.disposed {
		return
	}
	if m.loading {
		m.pendingState = s
		m.logger.Debug().
			Str(xglog.FieldPendingState, s.String()).
			Str(xglog.FieldEvent, "player.state_deferred").
			Msg("state request deferred until loaded")
		return
	}
	m.logger.Debug().
		Str(xglog.FieldNewState, s.String()).
		Str(xglog.FieldEvent, "player.state_request").
		Msg("state requested")

	native := m.pipe.CurrentState()
	switch s {
	case StateBuffering:
	case StatePaused:
		m.requestNative(s, engine.StatePaused, native)
	case StateStopped:
		m.requestNative(s, engine.StateReady, native)
		m.atEndOfStream = false
	case StatePlaying:
		if m.resetNeeded {
			m.resetPipeline()
			m.resetNeeded = false
			m.node.Notify(graph.Event{Kind: graph.EventSourceChanged})
			native = m.pipe.CurrentState()
		}
		if m.atEndOfStream {
			m.logger.Debug().Str(xglog.FieldEvent, "player.play_at_eos").Msg("play ignored at end of stream")
			return
		}
		m.requestNative(s, engine.StatePlaying, native)
	case StateError, StateLoading:
		m.changeState(s)
	}
}

// requestNative commits s at once when the pipeline already sits in target,
// otherwise asks for target and leaves s pending.
func (m *MediaObject) requestNative(s State, target, native engine.State) {
	if native == target {
		m.pendingState = s
		m.changeState(s)
		return
	}
	if ret := m.pipe.SetState(target); ret == engine.StateChangeFailure {
		m.logger.Warn().
			Str(xglog.FieldNativeState, target.String()).
			Str(xglog.FieldEvent, "player.native_state_failed").
			Msg("pipeline refused state change")
		m.setError(refusedMessage(target), FatalError)
		return
	}
	m.pendingState = s
}

func refusedMessage(target engine.State) string {
	switch target {
	case engine.StatePlaying:
		return msgCannotStart
	case engine.StatePaused:
		return msgCannotPause
	}
	return msgCannotStop
}

func (m *MediaObject) changeState(s State) {
	if s == m.state {
		return
	}
	old := m.state
	m.state = s
	m.pendingState = s
	metrics.ObserveStateTransition(old.String(), s.String())
	ev := m.logger.Info()
	if s == StateError {
		ev = m.logger.Warn().Str("error", m.errorString)
	}
	ev.Str(xglog.FieldOldState, old.String()).
		Str(xglog.FieldNewState, s.String()).
		Str(xglog.FieldEvent, "player.state_changed").
		Msg("state changed")
	m.emit(Event{Kind: EventStateChanged, NewState: s, OldState: old})
}

func (m *MediaObject) handleMessage(msg engine.Message) {
	switch msg.Kind {
	case engine.MessageStateChanged:
		if msg.FromPipeline {
			m.handleStateMessage(msg)
		}
	case engine.MessageEOS:
		m.handleEndOfStream()
	case engine.MessageError:
		m.handleError(msg.Err)
	case engine.MessageWarning:
		if msg.Err != nil {
			m.logger.Warn().
				Str(xglog.FieldSource, msg.Source).
				Str(xglog.FieldErrorDomain, msg.Err.Domain.String()).
				Int(xglog.FieldErrorCode, msg.Err.Code).
				Str(xglog.FieldEvent, "player.engine_warning").
				Msg(msg.Err.Message)
		}
	case engine.MessageDurationChanged:
		m.updateTotalTime()
	case engine.MessageBuffering:
		m.handleBuffering(msg.Percent)
	case engine.MessageTag:
		m.handleTags(msg.Tags)
	case engine.MessageMissingPlugin:
		m.plugins.Add(msg.PluginDescription)
	case engine.MessageAsyncDone:
		m.posAtSeek = -1
		switch m.state {
		case StatePlaying, StatePaused, StateBuffering:
			m.startTick()
		}
	}
}

// handleStateMessage reconciles a native state report with the logical
// state. Paused and ready reports only commit when they match the pending target.
func (m *MediaObject) handleStateMessage(msg engine.Message) {
	if msg.NewState == msg.PendingState {
		return
	}
	m.logger.Debug().
		Str(xglog.FieldNativeState, msg.NewState.String()).
		Str(xglog.FieldPendingState, m.pendingState.String()).
		Str(xglog.FieldEvent, "player.native_state").
		Msg("pipeline state reached")
	m.posAtSeek = -1

	switch msg.NewState {
	case engine.StatePlaying:
		m.atStartOfStream = false
		m.startTick()
		m.changeState(StatePlaying)
		m.applyPendingTitle()
		if m.resumeState && m.oldState == StatePlaying {
			m.resumeState = false
			m.seek(m.oldPos)
		}
	case engine.StatePaused:
		m.startTick()
		switch {
		case m.state == StateLoading:
			m.loadingComplete()
		case m.resumeState && m.oldState == StatePaused:
			m.changeState(StatePaused)
			m.resumeState = false
			m.seek(m.oldPos)
		case m.pendingState == StatePaused:
			m.changeState(StatePaused)
		}
	case engine.StateReady:
		if !m.loading && m.pendingState == StateStopped {
			m.changeState(StateStopped)
		}
		m.stopTick()
		m.applyPendingTitle()
	case engine.StateNull:
		m.stopTick()
	}
}

func (m *MediaObject) handleBuffering(percent int) {
	switch {
	case percent < 100 && m.state == StatePlaying:
		m.pipe.SetState(engine.StatePaused)
		m.changeState(StateBuffering)
	case percent >= 100 && m.state == StateBuffering:
		m.pipe.SetState(engine.StatePlaying)
		m.changeState(StatePlaying)
	}
	m.bufferPercent = percent
	m.emit(Event{Kind: EventBufferStatus, Percent: percent})
}

func (m *MediaObject) handleTags(tags map[string][]string) {
	if len(tags) == 0 {
		return
	}
	if metadata.Merge(m.metaData, tags) && !m.loading {
		m.emit(Event{Kind: EventMetaDataChanged, MetaData: m.MetaData()})
	}
}

func (m *MediaObject) seek(pos time.Duration) {
	if !m.seekable {
		return
	}
	switch m.state {
	case StatePlaying, StateStopped, StatePaused, StateBuffering:
	default:
		return
	}
	if pos < 0 {
		pos = 0
	}
	m.posAtSeek = pos
	m.atStartOfStream = false
	m.stopTick()
	if !m.pipe.Seek(pos) {
		m.logger.Warn().
			Int64(xglog.FieldPositionMS, pos.Milliseconds()).
			Str(xglog.FieldEvent, "player.seek_failed").
			Msg("pipeline rejected seek")
	}
	m.atEndOfStream = false
	if m.totalTime > 0 {
		if pos < m.totalTime-m.settings.PrefinishMark {
			m.prefinishArmed = true
		}
		if pos < m.totalTime-aboutToFinishTime {
			m.aboutToFinishEmitted = false
		}
	}
}

func (m *MediaObject) startTick() {
	if m.tickTimer != nil {
		return
	}
	m.tickTimer = m.sched.Every(m.TickInterval(), m.emitTick)
}

func (m *MediaObject) stopTick() {
	if m.tickTimer != nil {
		m.tickTimer.Stop()
		m.tickTimer = nil
	}
}

func (m *MediaObject) emitTick() {
	if m.disposed || m.resumeState {
		return
	}
	pos := m.pipelinePos()
	m.updateTotalTime()
	if pos != m.previousTick {
		m.previousTick = pos
		metrics.IncTick()
		m.emit(Event{Kind: EventTick, Time: pos})
	}
	total := m.totalTime
	if m.state != StatePlaying || total <= 0 {
		return
	}
	if mark := m.settings.PrefinishMark; mark > 0 && m.prefinishArmed && pos >= total-mark {
		m.prefinishArmed = false
		m.emit(Event{Kind: EventPrefinishMarkReached, Time: total - pos})
	}
	if pos >= total-aboutToFinishTime {
		if m.titleAutoplayPending() {
			m.aboutToFinishEmitted = false
		} else if !m.aboutToFinishEmitted {
			m.aboutToFinishEmitted = true
			m.emit(Event{Kind: EventAboutToFinish})
		}
	}
}

func (m *MediaObject) pipelinePos() time.Duration {
	switch {
	case m.atStartOfStream:
		return 0
	case m.atEndOfStream:
		if m.totalTime > 0 {
			return m.totalTime
		}
		return 0
	case m.posAtSeek >= 0:
		return m.posAtSeek
	}
	if pos, ok := m.pipe.QueryPosition(); ok {
		return pos
	}
	return 0
}

func (m *MediaObject) updateTotalTime() {
	d, ok := m.pipe.QueryDuration()
	if !ok || d == m.totalTime {
		return
	}
	m.totalTime = d
	m.emit(Event{Kind: EventTotalTimeChanged, Time: d})
}

func (m *MediaObject) updateSeekable() {
	s := m.pipe.QuerySeekable()
	if s == m.seekable {
		return
	}
	m.seekable = s
	m.emit(Event{Kind: EventSeekableChanged, Flag: s})
}
