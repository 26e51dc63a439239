// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package memengine

import (
	"fmt"
	"time"

	"github.com/ManuGH/gstbackend/internal/engine"
)

// Pipeline is an in-memory top-level pipeline with one audio and one video graph.
type Pipeline struct {
	bin

	audioGraph *bin
	videoGraph *bin
	audioPipe  *element
	videoPipe  *element
	bus        *Bus

	uri        string
	media      Media
	mediaKnown bool
	position   time.Duration
	track      int

	holdAsync     bool
	pendingTarget engine.State
}

func newPipeline(eng *Engine, name string) *Pipeline {
	p := &Pipeline{
		bin:           bin{element: *newElement(eng, "pipeline", name)},
		bus:           newBus(eng.asyncBus),
		pendingTarget: engine.StateVoidPending,
	}
	p.rebind(p)

	p.audioGraph = newBin(eng, name+"-audiograph")
	p.videoGraph = newBin(eng, name+"-videograph")
	p.audioPipe = newElement(eng, "identity", name+"-audiopipe")
	p.videoPipe = newElement(eng, "identity", name+"-videopipe")
	_ = p.audioGraph.Add(p.audioPipe)
	_ = p.videoGraph.Add(p.videoPipe)
	_ = p.Add(p.audioGraph)
	_ = p.Add(p.videoGraph)
	return p
}

func (p *Pipeline) AudioGraph() engine.Bin      { return p.audioGraph }
func (p *Pipeline) VideoGraph() engine.Bin      { return p.videoGraph }
func (p *Pipeline) AudioSource() engine.Element { return p.audioPipe }
func (p *Pipeline) VideoSource() engine.Element { return p.videoPipe }
func (p *Pipeline) Bus() engine.Bus             { return p.bus }

func (p *Pipeline) SetURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("%w: empty uri", engine.ErrInvalidInput)
	}
	p.uri = uri
	p.media, p.mediaKnown = p.eng.lookup(uri)
	p.position = 0
	p.track = 0
	return nil
}

// URI returns the configured source URI.
func (p *Pipeline) URI() string { return p.uri }

// SetState steps the pipeline towards s, posting one state-changed message per step.
func (p *Pipeline) SetState(s engine.State) engine.StateChangeReturn {
	if p.eng.failsState(p.name, s) {
		return engine.StateChangeFailure
	}
	if p.holdAsync && s > p.state && s >= engine.StatePaused {
		p.pendingTarget = s
		return engine.StateChangeAsync
	}
	p.pendingTarget = engine.StateVoidPending
	return p.stepTo(s)
}

// HoldAsync defers upward transitions to PAUSED/PLAYING until Complete is called.
func (p *Pipeline) HoldAsync(hold bool) { p.holdAsync = hold }

// Complete finishes a held asynchronous transition.
func (p *Pipeline) Complete() {
	target := p.pendingTarget
	if target == engine.StateVoidPending {
		return
	}
	p.pendingTarget = engine.StateVoidPending
	p.stepTo(target)
}

func (p *Pipeline) stepTo(target engine.State) engine.StateChangeReturn {
	if target == p.state {
		return engine.StateChangeSuccess
	}
	up := target > p.state
	for p.state != target {
		next := p.state - 1
		if up {
			next = p.state + 1
		}
		if up && next == engine.StatePaused && p.state == engine.StateReady && !p.preroll() {
			return engine.StateChangeAsync
		}
		old := p.state
		p.setTreeState(next)
		if !up && next == engine.StateReady {
			p.position = 0
		}
		pending := target
		if next == target {
			pending = engine.StateVoidPending
		}
		p.bus.post(engine.Message{
			Kind:         engine.MessageStateChanged,
			Source:       p.name,
			FromPipeline: true,
			OldState:     old,
			NewState:     next,
			PendingState: pending,
		})
		if next == engine.StateNull {
			p.bus.flush()
		}
	}
	if up && target >= engine.StatePaused {
		return engine.StateChangeAsync
	}
	return engine.StateChangeSuccess
}

func (p *Pipeline) setTreeState(s engine.State) {
	p.state = s
	for _, c := range p.children {
		c.SetState(s)
	}
}

func (p *Pipeline) preroll() bool {
	if !p.mediaKnown {
		p.PostError(&engine.ErrorInfo{
			Domain:  engine.DomainResource,
			Code:    engine.ResourceNotFound,
			Message: fmt.Sprintf("Resource not found: %s", p.uri),
		})
		return false
	}
	if p.media.MissingPlugin != "" {
		p.bus.post(engine.Message{
			Kind:              engine.MessageMissingPlugin,
			Source:            p.name + "-decodebin",
			PluginDescription: p.media.MissingPlugin,
		})
		p.PostError(&engine.ErrorInfo{
			Domain:  engine.DomainCore,
			Code:    engine.CoreMissingPlugin,
			Message: "Your GStreamer installation is missing a plug-in.",
		})
		return false
	}
	if p.media.Err != nil {
		p.PostError(p.media.Err)
		return false
	}
	if len(p.media.Tags) > 0 {
		p.PostTags(p.media.Tags)
	}
	return true
}

func (p *Pipeline) QueryPosition() (time.Duration, bool) {
	if p.state < engine.StatePaused {
		return 0, false
	}
	return p.position, true
}

func (p *Pipeline) QueryDuration() (time.Duration, bool) {
	if !p.mediaKnown || p.media.Duration <= 0 {
		return 0, false
	}
	return p.media.Duration, true
}

func (p *Pipeline) QuerySeekable() bool {
	return p.mediaKnown && p.media.Seekable
}

func (p *Pipeline) Seek(pos time.Duration) bool {
	if !p.QuerySeekable() || pos < 0 {
		return false
	}
	p.position = pos
	p.bus.post(engine.Message{Kind: engine.MessageAsyncDone, Source: p.name, FromPipeline: true})
	return true
}

func (p *Pipeline) SeekTrack(index int) bool {
	if index < 0 || index >= p.media.Tracks {
		return false
	}
	p.track = index
	p.position = 0
	p.bus.post(engine.Message{Kind: engine.MessageAsyncDone, Source: p.name, FromPipeline: true})
	return true
}

// Track returns the zero-based active track.
func (p *Pipeline) Track() int { return p.track }

func (p *Pipeline) TrackCount() (int, bool) {
	if !p.mediaKnown || p.media.Tracks == 0 {
		return 0, false
	}
	return p.media.Tracks, true
}

func (p *Pipeline) StreamInfo() engine.StreamInfo {
	if !p.mediaKnown || p.state < engine.StatePaused {
		return engine.StreamInfo{}
	}
	return engine.StreamInfo{HasAudio: p.media.HasAudio, HasVideo: p.media.HasVideo}
}

func (p *Pipeline) Dispose() {
	p.pendingTarget = engine.StateVoidPending
	p.stepTo(engine.StateNull)
	p.bus.close()
}

// SetPosition moves the simulated playback position.
func (p *Pipeline) SetPosition(pos time.Duration) { p.position = pos }

// SetDuration changes the simulated duration and announces it.
func (p *Pipeline) SetDuration(d time.Duration) {
	p.media.Duration = d
	p.bus.post(engine.Message{Kind: engine.MessageDurationChanged, Source: p.name, FromPipeline: true})
}

// PostEOS announces end of stream.
func (p *Pipeline) PostEOS() {
	p.bus.post(engine.Message{Kind: engine.MessageEOS, Source: p.name, FromPipeline: true})
}

// PostError posts an error message as if raised by the pipeline.
func (p *Pipeline) PostError(info *engine.ErrorInfo) {
	p.PostErrorFrom(p.name+"-decodebin", info)
}

// PostErrorFrom posts an error message on behalf of a named element.
func (p *Pipeline) PostErrorFrom(source string, info *engine.ErrorInfo) {
	p.bus.post(engine.Message{Kind: engine.MessageError, Source: source, Err: info})
}

// PostWarning posts a warning message.
func (p *Pipeline) PostWarning(info *engine.ErrorInfo) {
	p.bus.post(engine.Message{Kind: engine.MessageWarning, Source: p.name, Err: info})
}

// PostBuffering posts a buffering percentage.
func (p *Pipeline) PostBuffering(percent int) {
	p.bus.post(engine.Message{Kind: engine.MessageBuffering, Source: p.name, Percent: percent})
}

// PostTags posts a tag list.
func (p *Pipeline) PostTags(tags map[string][]string) {
	p.bus.post(engine.Message{Kind: engine.MessageTag, Source: p.name, Tags: tags})
}

// Post delivers an arbitrary message.
func (p *Pipeline) Post(msg engine.Message) { p.bus.post(msg) }

var _ engine.Pipeline = (*Pipeline)(nil)
