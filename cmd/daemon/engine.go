// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"time"

	"github.com/ManuGH/gstbackend/internal/config"
	"github.com/ManuGH/gstbackend/internal/engine"
	"github.com/ManuGH/gstbackend/internal/engine/gstengine"
	"github.com/ManuGH/gstbackend/internal/engine/memengine"
)

// Media the simulated engine resolves. Anything else fails to preroll.
var simMedia = map[string]memengine.Media{
	"file:///demo/tone.ogg": {
		Duration: 3 * time.Minute,
		Seekable: true,
		HasAudio: true,
		Tags:     map[string][]string{"title": {"Test Tone"}, "artist": {"gstbackend"}},
	},
	"file:///demo/clip.mkv": {
		Duration: 95 * time.Second,
		Seekable: true,
		HasAudio: true,
		HasVideo: true,
	},
	"http://radio.example/live": {
		HasAudio: true,
		Tags:     map[string][]string{"organization": {"Example Radio"}},
	},
	"cdda:///dev/cdrom": {
		Duration: 42 * time.Minute,
		Seekable: true,
		HasAudio: true,
		Tracks:   12,
	},
	"file:///demo/needs-codec.wma": {
		HasAudio:      true,
		MissingPlugin: "Windows Media Audio 9 decoder",
	},
}

func newEngine(kind config.Engine) (engine.Factory, error) {
	switch kind {
	case config.EngineGStreamer:
		return gstengine.New()
	case config.EngineSim, "":
		return newSimEngine(), nil
	default:
		return nil, fmt.Errorf("%w: engine %q", config.ErrInvalid, kind)
	}
}

func newSimEngine() *memengine.Engine {
	e := memengine.New(memengine.WithAsyncBus())
	for uri, m := range simMedia {
		e.AddMedia(uri, m)
	}
	return e
}
