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
	"github.com/ManuGH/gstbackend/internal/metrics"
)

// AudioOutput is a terminal audio node bound to one output device.
type AudioOutput struct {
	name    string
	factory engine.Factory
	catalog *devices.Catalog
	device  devices.Device
	sink    engine.Element
	node    *graph.Node
	logger  zerolog.Logger
}

// NewAudioOutput creates an output on deviceID, or on the catalog default
// when deviceID is empty. If the sink element cannot be created the output
// is returned with an invalid node alongside the error.
func NewAudioOutput(name string, factory engine.Factory, catalog *devices.Catalog, deviceID string) (*AudioOutput, error) {
	dev, err := catalog.Resolve(devices.Audio, deviceID)
	if err != nil {
		return nil, err
	}
	a := &AudioOutput{
		name:    name,
		factory: factory,
		catalog: catalog,
		device:  dev,
		logger: xglog.Derive(func(c *zerolog.Context) {
			*c = c.Str(xglog.FieldComponent, "audio_output").Str(xglog.FieldNode, name)
		}),
	}
	node, err := graph.New(name, graph.AudioSink, a, factory)
	if err != nil {
		return nil, err
	}
	a.node = node
	if a.sink, err = newDeviceElement(factory, name, dev); err != nil {
		node.Invalidate()
		return a, err
	}
	return a, nil
}

func (a *AudioOutput) Node() *graph.Node { return a.node }

func (a *AudioOutput) Device() devices.Device { return a.device }

func (a *AudioOutput) AudioElement() engine.Element { return a.sink }

func (a *AudioOutput) VideoElement() engine.Element { return nil }

// SetOutputDevice moves the output to another device. A linked output
// saves the root's playback, quiesces the pipeline, relinks the graph
// around the new sink and resumes. If relinking fails the previous device
// is restored and the error returned.
func (a *AudioOutput) SetOutputDevice(id string) error {
	dev, err := a.catalog.Lookup(devices.Audio, id)
	if err != nil {
		return err
	}
	if dev.ID == a.device.ID {
		return nil
	}
	next, err := newDeviceElement(a.factory, a.name, dev)
	if err != nil {
		metrics.IncDeviceSwitch("failure")
		return err
	}

	root := a.node.Root()
	if root == nil {
		release(a.sink)
		a.sink, a.device = next, dev
		metrics.IncDeviceSwitch("success")
		a.logSwitch(dev, false)
		return nil
	}

	suspender, _ := root.(Suspender)
	if suspender != nil {
		suspender.SaveState()
	}
	root.Quiesce()
	top := root.RootNode()
	if err := top.BreakGraph(); err != nil {
		a.logger.Warn().Err(err).Str(xglog.FieldEvent, "audio_output.unlink_incomplete").Msg("graph teardown incomplete")
	}

	prevSink, prevDev := a.sink, a.device
	a.sink, a.device = next, dev
	buildErr := top.BuildGraph()
	if buildErr != nil {
		a.sink, a.device = prevSink, prevDev
		release(next)
		if err := top.BuildGraph(); err != nil {
			a.logger.Error().Err(err).Str(xglog.FieldEvent, "audio_output.restore_failed").Msg("previous device could not be relinked")
		}
		metrics.IncDeviceSwitch("failure")
		a.logger.Warn().Err(buildErr).
			Str(xglog.FieldDevice, dev.ID).
			Str(xglog.FieldEvent, "audio_output.switch_failed").
			Msg("device switch rolled back")
	} else {
		release(prevSink)
		metrics.IncDeviceSwitch("success")
		a.logSwitch(dev, true)
	}
	if suspender != nil {
		suspender.ResumeState()
	}
	return buildErr
}

func (a *AudioOutput) logSwitch(dev devices.Device, live bool) {
	a.logger.Info().
		Str(xglog.FieldDevice, dev.ID).
		Str(xglog.FieldElement, dev.Element).
		Bool("live", live).
		Str(xglog.FieldEvent, "audio_output.device_changed").
		Msg("output device changed")
}

// Dispose releases the sink element. The node must be disconnected first.
func (a *AudioOutput) Dispose() {
	release(a.sink)
	a.sink = nil
	a.node.Dispose()
}

var _ graph.Backing = (*AudioOutput)(nil)
