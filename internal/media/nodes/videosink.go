// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nodes

import (
	"github.com/rs/zerolog"

	"github.com/ManuGH/gstbackend/internal/engine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/media/devices"
	"github.com/ManuGH/gstbackend/internal/media/graph"
)

// VideoSink is a terminal video node. It tracks whether it is linked and
// whether the current source carries video.
type VideoSink struct {
	device   devices.Device
	sink     engine.Element
	node     *graph.Node
	attached bool
	hasVideo bool
	logger   zerolog.Logger
}

func NewVideoSink(name string, factory engine.Factory, catalog *devices.Catalog, deviceID string) (*VideoSink, error) {
	dev, err := catalog.Resolve(devices.Video, deviceID)
	if err != nil {
		return nil, err
	}
	v := &VideoSink{
		device: dev,
		logger: xglog.Derive(func(c *zerolog.Context) {
			*c = c.Str(xglog.FieldComponent, "video_sink").Str(xglog.FieldNode, name)
		}),
	}
	node, err := graph.New(name, graph.VideoSink, v, factory)
	if err != nil {
		return nil, err
	}
	v.node = node
	if v.sink, err = newDeviceElement(factory, name, dev); err != nil {
		node.Invalidate()
		return v, err
	}
	return v, nil
}

func (v *VideoSink) Node() *graph.Node { return v.node }

func (v *VideoSink) Device() devices.Device { return v.device }

func (v *VideoSink) AudioElement() engine.Element { return nil }

func (v *VideoSink) VideoElement() engine.Element { return v.sink }

// Attached reports whether the sink is part of a built graph.
func (v *VideoSink) Attached() bool { return v.attached }

// HasVideo reports whether the current source was found to carry video.
func (v *VideoSink) HasVideo() bool { return v.hasVideo }

func (v *VideoSink) FinalizeLink() {
	v.attached = true
	v.logger.Debug().Str(xglog.FieldEvent, "video_sink.linked").Msg("video sink linked")
}

func (v *VideoSink) PrepareToUnlink() {
	v.attached = false
	v.logger.Debug().Str(xglog.FieldEvent, "video_sink.unlinking").Msg("video sink unlinking")
}

func (v *VideoSink) HandleEvent(ev graph.Event) {
	switch ev.Kind {
	case graph.EventSourceChanged:
		v.hasVideo = false
	case graph.EventVideoAvailable:
		v.hasVideo = true
		v.logger.Debug().Str(xglog.FieldEvent, "video_sink.video_available").Msg("source has video")
	}
}

func (v *VideoSink) Dispose() {
	release(v.sink)
	v.sink = nil
	v.node.Dispose()
}

var (
	_ graph.Backing      = (*VideoSink)(nil)
	_ graph.Finalizer    = (*VideoSink)(nil)
	_ graph.Unlinker     = (*VideoSink)(nil)
	_ graph.EventHandler = (*VideoSink)(nil)
)
