// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"errors"

	"github.com/ManuGH/gstbackend/internal/engine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/media/graph"
	"github.com/ManuGH/gstbackend/internal/media/metadata"
	"github.com/ManuGH/gstbackend/internal/metrics"
)

const (
	msgInvalidSource = "Invalid source specified."
	msgCannotOpen    = "Could not open media source."
)

// SetSource replaces the current source and starts loading it. A queued
// gapless transition is cancelled.
func (m *MediaObject) SetSource(src Source) {
	if m.disposed {
		return
	}
	if m.transitionTimer != nil {
		m.transitionTimer.Stop()
		m.transitionTimer = nil
	}
	m.pluginReloaded = false
	m.loadSource(src)
}

func (m *MediaObject) loadSource(src Source) {
	m.resetPipeline()
	m.stopTick()
	m.source = src
	srcCopy := src
	m.emit(Event{Kind: EventCurrentSourceChanged, Source: &srcCopy})
	m.logger.Info().
		Str(xglog.FieldSource, src.String()).
		Str(xglog.FieldSourceKind, src.Kind.String()).
		Str(xglog.FieldEvent, "player.source_set").
		Msg("loading source")

	m.previousTick = -1
	m.plugins.Reset()
	m.installingPlugin = false
	m.changeState(StateLoading)
	m.loading = true
	m.resumeState = false
	m.pendingState = StateStopped
	m.errorType, m.errorString = NoError, ""
	m.atEndOfStream = false
	m.atStartOfStream = true
	m.posAtSeek = -1
	m.prefinishArmed = true
	m.aboutToFinishEmitted = false
	m.bufferPercent = 0
	m.hasAudio = false
	m.totalTime = -1
	m.currentTitle, m.pendingTitle, m.availableTitles = 1, 1, 0
	m.metaData = make(map[string][]string)
	// the pipeline is NULL and relinked below
	m.resetNeeded = false

	if src.Kind == SourceEmpty {
		m.loading = false
		m.changeState(StateStopped)
		return
	}
	uri, err := src.URI()
	if err == nil {
		err = m.pipe.SetURI(uri)
	}
	if err != nil {
		m.logger.Warn().Err(err).Str(xglog.FieldSource, src.String()).Msg("source rejected")
		m.setError(msgInvalidSource, FatalError)
		return
	}

	m.node.Notify(graph.Event{Kind: graph.EventSourceChanged})
	if err := m.node.BuildGraph(); err != nil {
		m.logger.Warn().Err(err).Str(xglog.FieldEvent, "player.link_failed").Msg("could not link outputs before load")
	}
	m.beginLoad()
}

func (m *MediaObject) beginLoad() {
	if m.pipe.SetState(engine.StatePaused) == engine.StateChangeFailure {
		m.setError(msgCannotOpen, FatalError)
		return
	}
	m.logger.Debug().Str(xglog.FieldEvent, "player.load_begin").Msg("source load started")
}

// loadingComplete runs once the pipeline first reaches PAUSED for a source.
func (m *MediaObject) loadingComplete() {
	info := m.pipe.StreamInfo()
	if info.HasVideo {
		m.node.Notify(graph.Event{Kind: graph.EventVideoAvailable})
	}
	m.readStreamInfo(info)
	m.loading = false
	m.logger.Info().
		Int64(xglog.FieldDurationMS, m.totalTime.Milliseconds()).
		Bool("seekable", m.seekable).
		Bool("has_video", m.hasVideo).
		Str(xglog.FieldPendingState, m.pendingState.String()).
		Str(xglog.FieldEvent, "player.load_complete").
		Msg("source loaded")
	m.setState(m.pendingState)
	m.emit(Event{Kind: EventMetaDataChanged, MetaData: m.MetaData()})
}

func (m *MediaObject) readStreamInfo(info engine.StreamInfo) {
	m.updateSeekable()
	m.updateTotalTime()
	m.hasAudio = info.HasAudio
	if info.HasVideo != m.hasVideo {
		m.hasVideo = info.HasVideo
		m.emit(Event{Kind: EventHasVideoChanged, Flag: m.hasVideo})
	}
	if m.source.Kind == SourceDisc {
		if n, ok := m.pipe.TrackCount(); ok && n != m.availableTitles {
			m.availableTitles = n
			m.emit(Event{Kind: EventAvailableTitlesChanged, Title: n})
		}
	}
	if m.source.Kind == SourceLocalFile && m.tags != nil {
		tags, err := m.tags.Read(m.source.Location)
		switch {
		case err == nil:
			metadata.Merge(m.metaData, tags)
		case !errors.Is(err, metadata.ErrNoTags):
			m.logger.Debug().Err(err).Msg("tag read failed")
		}
	}
}

// SetNextSource queues the source to continue with at end of stream.
func (m *MediaObject) SetNextSource(src Source) {
	m.nextSource = src
}

func (m *MediaObject) NextSource() Source { return m.nextSource }

func (m *MediaObject) ClearNextSource() { m.nextSource = Source{} }

// handleEndOfStream decides between title advance, gapless handoff and finishing.
func (m *MediaObject) handleEndOfStream() {
	if m.atEndOfStream {
		return
	}
	if !m.seekable {
		m.atEndOfStream = true
	}

	if m.titleAutoplayPending() {
		metrics.IncSourceTransition("title_advance")
		m.logger.Info().Int(xglog.FieldTitle, m.currentTitle+1).Str(xglog.FieldEvent, "player.title_advance").Msg("advancing to next title")
		m.SetCurrentTitle(m.currentTitle + 1)
		return
	}

	if m.nextSource.Playable() {
		delay := m.settings.TransitionTime
		if delay < 0 {
			delay = 0
		}
		metrics.IncSourceTransition("gapless")
		m.logger.Info().
			Str(xglog.FieldSource, m.nextSource.String()).
			Dur("delay", delay).
			Str(xglog.FieldEvent, "player.transition_scheduled").
			Msg("scheduling next source")
		if m.transitionTimer != nil {
			m.transitionTimer.Stop()
		}
		m.transitionTimer = m.sched.AfterFunc(delay, m.beginPlay)
		return
	}

	metrics.IncSourceTransition("finished")
	m.pendingState = StatePaused
	m.emit(Event{Kind: EventFinished})
	if !m.seekable {
		m.setState(StateStopped)
		return
	}
	// listeners may have requested another state from the finished signal
	if m.pendingState == StatePaused {
		m.pipe.SetState(engine.StatePaused)
		m.changeState(StatePaused)
	}
}

func (m *MediaObject) beginPlay() {
	m.transitionTimer = nil
	if m.disposed {
		return
	}
	next := m.nextSource
	m.nextSource = Source{}
	m.loadSource(next)
	m.pendingState = StatePlaying
}

func (m *MediaObject) titleAutoplayPending() bool {
	return m.source.Kind == SourceDisc &&
		m.settings.AutoplayTitles &&
		m.availableTitles > 1 &&
		m.currentTitle < m.availableTitles
}

func (m *MediaObject) CurrentTitle() int { return m.currentTitle }

func (m *MediaObject) AvailableTitles() int { return m.availableTitles }

// SetCurrentTitle switches disc titles (1-based). It applies at once when
// playing or stopped; otherwise the pipeline is stopped first and the
// switch happens once READY is reached.
func (m *MediaObject) SetCurrentTitle(title int) {
	if title == m.currentTitle || title == m.pendingTitle {
		return
	}
	m.pendingTitle = title
	if m.state == StatePlaying || m.state == StateStopped {
		m.setTrack(title)
		return
	}
	m.setState(StateStopped)
}

func (m *MediaObject) applyPendingTitle() {
	if m.source.Kind == SourceDisc && m.currentTitle != m.pendingTitle {
		m.setTrack(m.pendingTitle)
	}
}

func (m *MediaObject) setTrack(title int) {
	if !m.pipe.SeekTrack(title - 1) {
		m.logger.Warn().Int(xglog.FieldTitle, title).Str(xglog.FieldEvent, "player.title_failed").Msg("title switch rejected")
		m.pendingTitle = m.currentTitle
		return
	}
	m.currentTitle = title
	m.pendingTitle = title
	m.atEndOfStream = false
	m.prefinishArmed = true
	m.aboutToFinishEmitted = false
	m.emit(Event{Kind: EventTitleChanged, Title: title})
	if d, ok := m.pipe.QueryDuration(); ok {
		m.totalTime = d
	}
	m.emit(Event{Kind: EventTotalTimeChanged, Time: m.totalTime})
}

// SaveState remembers state and position before an output reconfiguration.
// Only the first save counts, and only while heading for Playing or Paused.
func (m *MediaObject) SaveState() {
	if m.resumeState {
		return
	}
	if m.pendingState == StatePlaying || m.pendingState == StatePaused {
		m.resumeState = true
		m.oldState = m.pendingState
		m.oldPos = m.pipelinePos()
		m.logger.Debug().
			Str(xglog.FieldOldState, m.oldState.String()).
			Int64(xglog.FieldPositionMS, m.oldPos.Milliseconds()).
			Str(xglog.FieldEvent, "player.state_saved").
			Msg("playback state saved")
	}
}

// ResumeState requests the saved state again, asynchronously.
func (m *MediaObject) ResumeState() {
	if !m.resumeState {
		return
	}
	s := m.oldState
	m.sched.Post(func() { m.setState(s) })
}

// Resuming reports whether a saved state is waiting to be restored.
func (m *MediaObject) Resuming() bool { return m.resumeState }
