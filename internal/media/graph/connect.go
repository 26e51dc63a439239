// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package graph

import (
	"errors"
	"fmt"

	"github.com/ManuGH/gstbackend/internal/engine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/metrics"
)

// ErrNoRoot is returned when building a graph that hangs under no root.
var ErrNoRoot = errors.New("node has no root")

// Connect adds sink downstream of n for every media kind they share.
// When n is already attached to a root the whole tree is rebuilt; if that
// build fails the new edge is dropped again and the previous graph stays intact.
func (n *Node) Connect(sink *Node) error {
	if sink == nil || !sink.valid {
		return ErrInvalidSink
	}
	if sink.root != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyConnected, sink.name)
	}

	var added []Event
	if n.caps.Has(AudioSource) && sink.caps.Has(AudioSink) {
		if contains(n.audioSinks, sink) {
			return fmt.Errorf("%w: %s", ErrAlreadyConnected, sink.name)
		}
		n.audioSinks = append(n.audioSinks, sink)
		added = append(added, Event{Kind: EventAudioSinkAdded, Node: sink})
	}
	if n.caps.Has(VideoSource) && sink.caps.Has(VideoSink) {
		if contains(n.videoSinks, sink) {
			n.audioSinks, _ = without(n.audioSinks, sink)
			return fmt.Errorf("%w: %s", ErrAlreadyConnected, sink.name)
		}
		n.videoSinks = append(n.videoSinks, sink)
		added = append(added, Event{Kind: EventVideoSinkAdded, Node: sink})
	}
	if len(added) == 0 {
		return fmt.Errorf("%w: %s (%s) -> %s (%s)", ErrIncompatible, n.name, n.caps, sink.name, sink.caps)
	}

	if n.root != nil {
		if err := n.root.RootNode().BuildGraph(); err != nil {
			n.audioSinks, _ = without(n.audioSinks, sink)
			n.videoSinks, _ = without(n.videoSinks, sink)
			return fmt.Errorf("connect %s -> %s: %w", n.name, sink.name, err)
		}
	}
	for _, ev := range added {
		n.emit(ev)
	}
	return nil
}

// ConnectNode is the boolean form of Connect; failures are logged, never raised.
func (n *Node) ConnectNode(sink *Node) bool {
	if err := n.Connect(sink); err != nil {
		ev := n.logger.Warn().Err(err)
		if sink != nil {
			ev = ev.Str("sink", sink.name)
		}
		ev.Str(xglog.FieldEvent, "graph.connect_failed").Msg("could not connect node")
		return false
	}
	return true
}

// DisconnectNode removes sink from n. With a root attached the pipeline is
// quiesced first, the sink's fan-out port is released and its subtree broken.
// It reports whether the graph changed.
func (n *Node) DisconnectNode(sink *Node) bool {
	if sink == nil {
		return false
	}
	inAudio := contains(n.audioSinks, sink)
	inVideo := contains(n.videoSinks, sink)
	if !inAudio && !inVideo {
		return false
	}

	if n.root != nil {
		n.root.Quiesce()
		n.detachOutput(sink)
		if err := sink.BreakGraph(); err != nil {
			n.logger.Warn().Err(err).
				Str("sink", sink.name).
				Str(xglog.FieldEvent, "graph.break_failed").
				Msg("sink subtree did not break cleanly")
		}
		sink.root = nil
	}

	n.audioSinks, _ = without(n.audioSinks, sink)
	n.videoSinks, _ = without(n.videoSinks, sink)
	if n.root != nil {
		removed := map[mediaKind]bool{kindAudio: inAudio, kindVideo: inVideo}
		for _, kind := range []mediaKind{kindAudio, kindVideo} {
			if !removed[kind] || len(n.sinks(kind)) > 0 {
				continue
			}
			if err := n.detachTee(kind); err != nil {
				n.logger.Warn().Err(err).
					Str(xglog.FieldEvent, "graph.detach_failed").
					Msg("fan-out point stayed in the native graph")
			}
		}
	}
	if inAudio {
		n.emit(Event{Kind: EventAudioSinkRemoved, Node: sink})
	}
	if inVideo {
		n.emit(Event{Kind: EventVideoSinkRemoved, Node: sink})
	}
	return true
}

// BuildGraph materialises the tree below n into the root's native graphs.
// It is all-or-nothing: on failure every element added and every port
// requested during this attempt is released again.
func (n *Node) BuildGraph() error {
	if n.root == nil {
		return ErrNoRoot
	}
	tx := &linkTx{}
	if err := n.build(tx); err != nil {
		undone := tx.len()
		tx.rollback()
		metrics.ObserveGraphBuild(false, true)
		n.logger.Warn().Err(err).
			Int("undone", undone).
			Str(xglog.FieldEvent, "graph.build_rolled_back").
			Msg("graph build failed")
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	n.finalizeTree()
	metrics.ObserveGraphBuild(true, false)
	return nil
}

func (n *Node) build(tx *linkTx) error {
	if err := n.link(tx); err != nil {
		return err
	}
	for _, kind := range []mediaKind{kindAudio, kindVideo} {
		for _, child := range n.sinks(kind) {
			if child.root != n.root {
				child, prev := child, child.root
				child.root = n.root
				tx.push(func() { child.root = prev })
			}
			if err := child.build(tx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *Node) finalizeTree() {
	if !n.finalized {
		if f, ok := n.backing.(Finalizer); ok {
			f.FinalizeLink()
		}
		n.finalized = true
	}
	for _, child := range n.audioSinks {
		child.finalizeTree()
	}
	for _, child := range n.videoSinks {
		child.finalizeTree()
	}
}

// link wires n's fan-out points to its source element and to every
// downstream sink element. A fan-out point with no sinks stays detached.
func (n *Node) link(tx *linkTx) error {
	for _, kind := range n.sourceKinds() {
		if len(n.sinks(kind)) == 0 {
			continue
		}
		tee := n.tee(kind)
		bin := n.graphBin(kind)
		if tee == nil || bin == nil {
			return fmt.Errorf("%s: no %s fan-out point", n.name, kind)
		}
		if tee.Parent() == nil {
			if err := n.attachTee(tx, kind, tee, bin); err != nil {
				return err
			}
		}
		for _, child := range n.sinks(kind) {
			if err := n.addOutput(tx, tee, bin, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *Node) attachTee(tx *linkTx, kind mediaKind, tee engine.Element, bin engine.Bin) error {
	src := n.sourceElement(kind)
	if src == nil {
		return fmt.Errorf("%w: %s has no %s source", ErrNoElement, n.name, kind)
	}
	if err := bin.Add(tee); err != nil {
		return fmt.Errorf("add %s: %w", tee.Name(), err)
	}
	tx.push(func() {
		tee.SetState(engine.StateNull)
		_ = bin.Remove(tee)
	})

	srcPad := src.StaticPad("src")
	teeSink := tee.StaticPad("sink")
	if srcPad == nil || teeSink == nil {
		return fmt.Errorf("%w: %s -> %s", engine.ErrNoPad, src.Name(), tee.Name())
	}
	if err := srcPad.Link(teeSink); err != nil {
		return err
	}
	tx.push(func() { _ = srcPad.Unlink(teeSink) })
	tee.SetState(bin.CurrentState())
	return nil
}

func (n *Node) addOutput(tx *linkTx, tee engine.Element, bin engine.Bin, child *Node) error {
	el := child.sinkElement()
	if el == nil {
		return fmt.Errorf("%w: %s", ErrNoElement, child.name)
	}
	sinkPad := el.StaticPad("sink")
	if sinkPad == nil {
		return fmt.Errorf("%w: %s:sink", engine.ErrNoPad, el.Name())
	}
	if sinkPad.IsLinked() {
		return nil
	}

	if el.Parent() == nil {
		if err := bin.Add(el); err != nil {
			return fmt.Errorf("add %s: %w", el.Name(), err)
		}
		tx.push(func() {
			el.SetState(engine.StateNull)
			_ = bin.Remove(el)
		})
	}

	srcPad, err := tee.RequestPad("src_%u")
	if err != nil {
		return err
	}
	n.outPads[child] = outPad{tee: tee, pad: srcPad}
	tx.push(func() {
		tee.ReleaseRequestPad(srcPad)
		delete(n.outPads, child)
	})
	if err := srcPad.Link(sinkPad); err != nil {
		return err
	}
	el.SetState(bin.CurrentState())
	return nil
}

// BreakGraph tears the tree below n out of the native graphs, children first.
func (n *Node) BreakGraph() error {
	if n.finalized {
		if u, ok := n.backing.(Unlinker); ok {
			u.PrepareToUnlink()
		}
		n.finalized = false
	}
	for _, kind := range []mediaKind{kindAudio, kindVideo} {
		for _, child := range n.sinks(kind) {
			if err := child.BreakGraph(); err != nil {
				return fmt.Errorf("break %s: %w", child.name, err)
			}
			child.root = nil
		}
	}
	return n.unlink()
}

// unlink removes n's fan-out points and its direct sinks from the native
// graphs. Elements parented elsewhere are left alone.
func (n *Node) unlink() error {
	var errs []error
	for _, kind := range n.sourceKinds() {
		bin := n.graphBin(kind)
		if bin == nil {
			continue
		}
		for _, child := range n.sinks(kind) {
			if out, ok := n.outPads[child]; ok {
				out.tee.ReleaseRequestPad(out.pad)
				delete(n.outPads, child)
			}
			if el := child.sinkElement(); el != nil && el.Parent() == bin {
				el.SetState(engine.StateNull)
				if err := bin.Remove(el); err != nil {
					errs = append(errs, err)
				}
			}
		}
		if err := n.detachTee(kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// detachTee pulls the fan-out point for kind out of its native graph.
func (n *Node) detachTee(kind mediaKind) error {
	tee, bin := n.tee(kind), n.graphBin(kind)
	if tee == nil || bin == nil || tee.Parent() != bin {
		return nil
	}
	tee.SetState(engine.StateNull)
	return bin.Remove(tee)
}

// detachOutput releases the fan-out port feeding sink and pulls the sink's
// element out of the native graph.
func (n *Node) detachOutput(sink *Node) {
	if out, ok := n.outPads[sink]; ok {
		out.tee.ReleaseRequestPad(out.pad)
		delete(n.outPads, sink)
	}
	el := sink.sinkElement()
	if el == nil {
		return
	}
	if parent := el.Parent(); parent != nil {
		el.SetState(engine.StateNull)
		_ = parent.Remove(el)
	}
}

func (n *Node) sourceKinds() []mediaKind {
	var kinds []mediaKind
	if n.caps.Has(AudioSource) {
		kinds = append(kinds, kindAudio)
	}
	if n.caps.Has(VideoSource) {
		kinds = append(kinds, kindVideo)
	}
	return kinds
}

func (n *Node) emit(ev Event) {
	if n.root != nil {
		n.root.HandleNodeEvent(ev)
		return
	}
	if h, ok := n.backing.(EventHandler); ok {
		h.HandleEvent(ev)
	}
}

// linkTx is the undo log of one build attempt.
type linkTx struct {
	undo []func()
}

func (tx *linkTx) push(fn func()) { tx.undo = append(tx.undo, fn) }

func (tx *linkTx) len() int { return len(tx.undo) }

func (tx *linkTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}
