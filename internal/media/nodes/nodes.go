// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package nodes provides the graph nodes hosts attach below a media object:
// audio outputs, video sinks and pass-through audio effects.
package nodes

import (
	"fmt"

	"github.com/ManuGH/gstbackend/internal/engine"
	"github.com/ManuGH/gstbackend/internal/media/devices"
)

// Suspender is implemented by roots that can save playback before an
// output is reconfigured and restore it afterwards.
type Suspender interface {
	SaveState()
	ResumeState()
}

// newDeviceElement creates the element rendering to dev. Element names
// carry the device id so a node's element is recognisable in the graph.
func newDeviceElement(factory engine.Factory, name string, dev devices.Device) (engine.Element, error) {
	el, err := factory.NewElement(dev.Element, name+"-"+dev.ID)
	if err != nil {
		return nil, fmt.Errorf("create %s for device %s: %w", dev.Element, dev.ID, err)
	}
	return el, nil
}

func release(el engine.Element) {
	if el == nil {
		return
	}
	el.SetState(engine.StateNull)
	if parent := el.Parent(); parent != nil {
		_ = parent.Remove(el)
	}
}
