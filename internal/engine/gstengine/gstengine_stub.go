// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !gstreamer

package gstengine

import (
	"fmt"

	"github.com/ManuGH/gstbackend/internal/engine"
)

// Available reports whether this binary was built with GStreamer support.
func Available() bool { return false }

// New returns ErrUnavailable unless built with -tags gstreamer.
func New() (engine.Factory, error) {
	return nil, fmt.Errorf("%w: built without gstreamer tag", engine.ErrUnavailable)
}
