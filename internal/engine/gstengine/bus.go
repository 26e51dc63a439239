// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build gstreamer

package gstengine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"

	"github.com/ManuGH/gstbackend/internal/engine"
)

const popTimeout = 100 * time.Millisecond

// bus polls the native bus from its own goroutine and fans decoded messages out.
type bus struct {
	gb       *gst.Bus
	pipeline string

	mu       sync.Mutex
	watchers map[int]func(engine.Message)
	seq      int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newBus(gb *gst.Bus, pipeline string) *bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &bus{gb: gb, pipeline: pipeline, watchers: make(map[int]func(engine.Message)), cancel: cancel}
	b.wg.Add(1)
	go b.run(ctx)
	return b
}

func (b *bus) Watch(fn func(engine.Message)) func() {
	b.mu.Lock()
	id := b.seq
	b.seq++
	b.watchers[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
	}
}

func (b *bus) run(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msg := b.gb.TimedPop(gst.ClockTime(popTimeout))
		if msg == nil {
			continue
		}
		decoded, ok := b.decode(msg)
		if !ok {
			continue
		}
		b.mu.Lock()
		fns := make([]func(engine.Message), 0, len(b.watchers))
		for _, fn := range b.watchers {
			fns = append(fns, fn)
		}
		b.mu.Unlock()
		for _, fn := range fns {
			fn(decoded)
		}
	}
}

func (b *bus) close() {
	b.cancel()
	b.wg.Wait()
}

func (b *bus) decode(msg *gst.Message) (engine.Message, bool) {
	out := engine.Message{Source: msg.Source()}
	out.FromPipeline = out.Source == b.pipeline
	switch msg.Type() {
	case gst.MessageEOS:
		out.Kind = engine.MessageEOS
	case gst.MessageError:
		out.Kind = engine.MessageError
		out.Err = classify(msg.ParseError(), msg.Source())
	case gst.MessageWarning:
		out.Kind = engine.MessageWarning
		out.Err = classify(msg.ParseWarning(), msg.Source())
	case gst.MessageDurationChanged:
		out.Kind = engine.MessageDurationChanged
	case gst.MessageBuffering:
		out.Kind = engine.MessageBuffering
		out.Percent = msg.ParseBuffering()
	case gst.MessageStateChanged:
		oldState, newState := msg.ParseStateChanged()
		out.Kind = engine.MessageStateChanged
		out.OldState = fromGst(oldState)
		out.NewState = fromGst(newState)
		out.PendingState = engine.StateVoidPending
	case gst.MessageAsyncDone:
		out.Kind = engine.MessageAsyncDone
	case gst.MessageTag:
		out.Kind = engine.MessageTag
		out.Tags = decodeTags(msg.ParseTags())
	case gst.MessageElement:
		st := msg.GetStructure()
		if st == nil || st.Name() != "missing-plugin" {
			return out, false
		}
		out.Kind = engine.MessageMissingPlugin
		if v, err := st.GetValue("name"); err == nil {
			if s, ok := v.(string); ok {
				out.PluginDescription = s
			}
		}
	default:
		return out, false
	}
	return out, true
}

// classify maps a GError onto domain/code using its message text; go-gst
// does not expose the quark.
func classify(gerr *gst.GError, source string) *engine.ErrorInfo {
	if gerr == nil {
		return nil
	}
	text := strings.ToLower(gerr.Message())
	info := &engine.ErrorInfo{Message: gerr.Message(), Debug: gerr.DebugString()}
	switch {
	case strings.Contains(text, "missing a plug-in"), strings.Contains(text, "no decoder available"):
		info.Domain, info.Code = engine.DomainCore, engine.CoreMissingPlugin
	case strings.Contains(text, "busy"):
		info.Domain, info.Code = engine.DomainResource, engine.ResourceBusy
	case strings.Contains(text, "not found"):
		info.Domain, info.Code = engine.DomainResource, engine.ResourceNotFound
	case strings.Contains(text, "could not open"):
		info.Domain, info.Code = engine.DomainResource, engine.ResourceOpenRead
	case strings.Contains(text, "could not determine type"):
		info.Domain, info.Code = engine.DomainStream, engine.StreamTypeNotFound
	default:
		info.Domain = engine.DomainStream
	}
	if strings.HasSuffix(source, "sink") && strings.Contains(source, "audio") ||
		strings.Contains(source, "pulse") || strings.Contains(source, "alsa") {
		info.SinkCaps = "audio/x-raw"
	}
	return info
}

func decodeTags(list *gst.TagList) map[string][]string {
	if list == nil {
		return nil
	}
	out := make(map[string][]string)
	for key, tag := range map[string]gst.Tag{
		"TITLE":       gst.TagTitle,
		"ARTIST":      gst.TagArtist,
		"ALBUM":       gst.TagAlbum,
		"GENRE":       gst.TagGenre,
		"COMMENT":     gst.TagComment,
		"TRACKNUMBER": gst.TagTrackNumber,
	} {
		if v, ok := list.GetString(tag); ok && v != "" {
			out[key] = append(out[key], v)
		}
	}
	return out
}
