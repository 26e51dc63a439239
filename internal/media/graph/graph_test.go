// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/gstbackend/internal/engine"
	"github.com/ManuGH/gstbackend/internal/engine/memengine"
)

type testRoot struct {
	node     *Node
	pipe     engine.Pipeline
	quiesced int
	events   []Event
}

func (r *testRoot) RootNode() *Node               { return r.node }
func (r *testRoot) AudioGraph() engine.Bin        { return r.pipe.AudioGraph() }
func (r *testRoot) VideoGraph() engine.Bin        { return r.pipe.VideoGraph() }
func (r *testRoot) PipelineState() engine.State   { return r.pipe.CurrentState() }
func (r *testRoot) HandleNodeEvent(ev Event)      { r.events = append(r.events, ev) }
func (r *testRoot) Quiesce()                      { r.quiesced++; r.pipe.SetState(engine.StateReady) }
func (r *testRoot) AudioElement() engine.Element  { return r.pipe.AudioSource() }
func (r *testRoot) VideoElement() engine.Element  { return r.pipe.VideoSource() }

type testBacking struct {
	audio, video engine.Element
	finalized    int
	prepared     int
	seen         []EventKind
}

func (b *testBacking) AudioElement() engine.Element { return b.audio }
func (b *testBacking) VideoElement() engine.Element { return b.video }
func (b *testBacking) FinalizeLink()                { b.finalized++ }
func (b *testBacking) PrepareToUnlink()             { b.prepared++ }
func (b *testBacking) HandleEvent(ev Event)         { b.seen = append(b.seen, ev.Kind) }

func newRoot(t *testing.T, eng *memengine.Engine) *testRoot {
	t.Helper()
	pipe, err := eng.NewPipeline("p")
	require.NoError(t, err)
	r := &testRoot{pipe: pipe}
	n, err := New("root", AudioSource|VideoSource, r, eng)
	require.NoError(t, err)
	n.SetRoot(r)
	r.node = n
	return r
}

func newSink(t *testing.T, eng *memengine.Engine, name string, caps Caps) (*Node, *testBacking) {
	t.Helper()
	kind := "fakesink"
	if caps.Has(AudioSource) || caps.Has(VideoSource) {
		kind = "volume"
	}
	el, err := eng.NewElement(kind, name)
	require.NoError(t, err)
	b := &testBacking{}
	if caps.Has(VideoSink) {
		b.video = el
	} else {
		b.audio = el
	}
	n, err := New(name, caps, b, eng)
	require.NoError(t, err)
	return n, b
}

func TestNewRejectsDualSink(t *testing.T) {
	_, err := New("both", AudioSink|VideoSink, nil, memengine.New())
	require.ErrorIs(t, err, ErrInvalidCaps)
}

func TestNewInvalidWhenTeeUnavailable(t *testing.T) {
	eng := memengine.New()
	eng.FailElementKind("tee")
	n, err := New("src", AudioSource, nil, eng)
	require.Error(t, err)
	require.NotNil(t, n)
	assert.False(t, n.IsValid())
}

func TestCapsString(t *testing.T) {
	assert.Equal(t, "audio-source|video-source", (AudioSource | VideoSource).String())
	assert.Equal(t, "none", Caps(0).String())
}

func TestConnectBuildsGraph(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	sink, b := newSink(t, eng, "asink", AudioSink)

	require.True(t, r.node.ConnectNode(sink))

	assert.Equal(t, Root(r), sink.Root())
	assert.Equal(t, r.AudioGraph(), b.audio.Parent())
	assert.Equal(t, r.AudioGraph(), r.node.AudioTee().Parent())
	assert.Equal(t, 1, memengine.RequestPadCount(r.node.AudioTee()))
	assert.True(t, b.audio.StaticPad("sink").IsLinked())
	assert.True(t, r.pipe.AudioSource().StaticPad("src").IsLinked())
	assert.Equal(t, 1, b.finalized)
	assert.True(t, sink.Linked())
	require.Len(t, r.events, 1)
	assert.Equal(t, EventAudioSinkAdded, r.events[0].Kind)
	assert.Nil(t, r.node.VideoTee().Parent(), "video fan-out stays detached until used")
}

func TestConnectSamePairTwiceFails(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	sink, b := newSink(t, eng, "asink", AudioSink)

	require.NoError(t, r.node.Connect(sink))
	err := r.node.Connect(sink)
	require.ErrorIs(t, err, ErrAlreadyConnected)

	assert.Len(t, r.node.AudioSinks(), 1)
	assert.Equal(t, 1, memengine.RequestPadCount(r.node.AudioTee()))
	assert.True(t, b.audio.StaticPad("sink").IsLinked())
	assert.Equal(t, Root(r), sink.Root())
}

func TestConnectDuplicateWithoutRoot(t *testing.T) {
	eng := memengine.New()
	fx, _ := newSink(t, eng, "fx", AudioSink|AudioSource)
	sink, _ := newSink(t, eng, "asink", AudioSink)

	require.NoError(t, fx.Connect(sink))
	require.ErrorIs(t, fx.Connect(sink), ErrAlreadyConnected)
	assert.Len(t, fx.AudioSinks(), 1)
}

func TestConnectRejectsInvalidSink(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	sink, _ := newSink(t, eng, "asink", AudioSink)
	sink.Invalidate()

	require.ErrorIs(t, r.node.Connect(sink), ErrInvalidSink)
	assert.False(t, r.node.ConnectNode(nil))
	assert.Empty(t, r.node.AudioSinks())
	assert.Empty(t, r.events)
}

func TestConnectRejectsIncompatibleKinds(t *testing.T) {
	eng := memengine.New()
	fx, _ := newSink(t, eng, "fx", AudioSink|AudioSource)
	vsink, _ := newSink(t, eng, "vsink", VideoSink)

	require.ErrorIs(t, fx.Connect(vsink), ErrIncompatible)
	assert.Empty(t, fx.VideoSinks())
}

func TestBuildGraphRollsBackFailedChain(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	keep, keepB := newSink(t, eng, "keep", AudioSink)
	require.NoError(t, r.node.Connect(keep))

	fx, fxB := newSink(t, eng, "fx", AudioSink|AudioSource)
	tail, tailB := newSink(t, eng, "tail", AudioSink)
	require.NoError(t, fx.Connect(tail))

	eng.FailLinksInto("tail")
	err := r.node.Connect(fx)
	require.ErrorIs(t, err, ErrBuildFailed)
	require.ErrorIs(t, err, engine.ErrLinkFailed)

	assert.Nil(t, fxB.audio.Parent())
	assert.Nil(t, fx.AudioTee().Parent())
	assert.Nil(t, tailB.audio.Parent())
	assert.Nil(t, fx.Root())
	assert.Nil(t, tail.Root())
	assert.Zero(t, fxB.finalized)
	assert.Zero(t, memengine.RequestPadCount(fx.AudioTee()))

	assert.Equal(t, []*Node{keep}, r.node.AudioSinks())
	assert.Equal(t, 1, memengine.RequestPadCount(r.node.AudioTee()))
	assert.True(t, keepB.audio.StaticPad("sink").IsLinked())
	assert.ElementsMatch(t,
		[]engine.Element{r.pipe.AudioSource(), r.node.AudioTee(), keepB.audio},
		memengine.Children(r.AudioGraph()))

	eng.ClearLinkFailures()
	require.NoError(t, r.node.Connect(fx))
	assert.Equal(t, r.AudioGraph(), tailB.audio.Parent())
	assert.Equal(t, Root(r), tail.Root())
	assert.Equal(t, 1, fxB.finalized)
	assert.Equal(t, 1, tailB.finalized)
}

func TestBuildGraphFirstAttemptLeavesNothingParented(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	sink, b := newSink(t, eng, "asink", AudioSink)
	r.node.audioSinks = append(r.node.audioSinks, sink)

	eng.FailLinksInto("asink")
	require.ErrorIs(t, r.node.BuildGraph(), ErrBuildFailed)

	assert.Nil(t, r.node.AudioTee().Parent())
	assert.Nil(t, b.audio.Parent())
	assert.False(t, r.pipe.AudioSource().StaticPad("src").IsLinked())
	assert.ElementsMatch(t, []engine.Element{r.pipe.AudioSource()}, memengine.Children(r.AudioGraph()))
}

func TestBuildAndBreakAreIdempotent(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	sink, b := newSink(t, eng, "asink", AudioSink)
	require.NoError(t, r.node.Connect(sink))

	require.NoError(t, r.node.BuildGraph())
	require.NoError(t, r.node.BuildGraph())
	assert.Equal(t, 1, b.finalized)
	assert.Equal(t, 1, memengine.RequestPadCount(r.node.AudioTee()))

	require.NoError(t, r.node.BreakGraph())
	require.NoError(t, r.node.BreakGraph())
	assert.Equal(t, 1, b.prepared)
	assert.Nil(t, sink.Root())
	assert.Nil(t, r.node.AudioTee().Parent())
	assert.Nil(t, b.audio.Parent())
	assert.Zero(t, memengine.RequestPadCount(r.node.AudioTee()))

	require.NoError(t, r.node.BuildGraph())
	assert.Equal(t, 2, b.finalized)
	assert.True(t, b.audio.StaticPad("sink").IsLinked())
}

func TestBuildGraphWithoutRoot(t *testing.T) {
	eng := memengine.New()
	fx, _ := newSink(t, eng, "fx", AudioSink|AudioSource)
	require.ErrorIs(t, fx.BuildGraph(), ErrNoRoot)
}

func TestDisconnectNode(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	fx, fxB := newSink(t, eng, "fx", AudioSink|AudioSource)
	tail, tailB := newSink(t, eng, "tail", AudioSink)
	require.NoError(t, r.node.Connect(fx))
	require.NoError(t, fx.Connect(tail))
	require.Equal(t, Root(r), tail.Root())

	require.True(t, r.node.DisconnectNode(fx))

	assert.Equal(t, 1, r.quiesced)
	assert.Equal(t, engine.StateReady, r.pipe.CurrentState())
	assert.Zero(t, memengine.RequestPadCount(r.node.AudioTee()))
	assert.Nil(t, r.node.AudioTee().Parent())
	assert.Nil(t, fxB.audio.Parent())
	assert.Nil(t, fx.AudioTee().Parent())
	assert.Nil(t, tailB.audio.Parent())
	assert.Nil(t, fx.Root())
	assert.Nil(t, tail.Root())
	assert.Equal(t, 1, fxB.prepared)
	assert.Equal(t, 1, tailB.prepared)
	assert.Empty(t, r.node.AudioSinks())
	assert.Equal(t, []*Node{tail}, fx.AudioSinks(), "subtree edges survive")

	last := r.events[len(r.events)-1]
	assert.Equal(t, EventAudioSinkRemoved, last.Kind)
	assert.Same(t, fx, last.Node)

	assert.False(t, r.node.DisconnectNode(fx))
	assert.False(t, r.node.DisconnectNode(nil))
}

func TestDisconnectRootlessNode(t *testing.T) {
	eng := memengine.New()
	fx, fxB := newSink(t, eng, "fx", AudioSink|AudioSource)
	tail, _ := newSink(t, eng, "tail", AudioSink)
	require.NoError(t, fx.Connect(tail))

	require.True(t, fx.DisconnectNode(tail))
	assert.Empty(t, fx.AudioSinks())
	assert.Equal(t, []EventKind{EventAudioSinkAdded, EventAudioSinkRemoved}, fxB.seen)
}

func TestVideoSinkUsesVideoGraph(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	vsink, b := newSink(t, eng, "vsink", VideoSink)

	require.NoError(t, r.node.Connect(vsink))
	assert.Equal(t, r.VideoGraph(), b.video.Parent())
	assert.Equal(t, r.VideoGraph(), r.node.VideoTee().Parent())
	assert.Nil(t, r.node.AudioTee().Parent())
	assert.Equal(t, EventVideoSinkAdded, r.events[0].Kind)
}

func TestLastSinkRemovalDetachesFanOut(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	a1, _ := newSink(t, eng, "a1", AudioSink)
	a2, _ := newSink(t, eng, "a2", AudioSink)
	vsink, _ := newSink(t, eng, "vsink", VideoSink)
	require.NoError(t, r.node.Connect(a1))
	require.NoError(t, r.node.Connect(a2))
	require.NoError(t, r.node.Connect(vsink))
	require.Equal(t, 2, memengine.RequestPadCount(r.node.AudioTee()))

	require.True(t, r.node.DisconnectNode(vsink))
	assert.Nil(t, r.node.VideoTee().Parent())
	assert.False(t, r.pipe.VideoSource().StaticPad("src").IsLinked())
	assert.Equal(t, r.AudioGraph(), r.node.AudioTee().Parent())

	require.True(t, r.node.DisconnectNode(a1))
	assert.Equal(t, r.AudioGraph(), r.node.AudioTee().Parent(), "one audio sink left")
	assert.Equal(t, 1, memengine.RequestPadCount(r.node.AudioTee()))

	require.True(t, r.node.DisconnectNode(a2))
	assert.Nil(t, r.node.AudioTee().Parent())
	assert.ElementsMatch(t, []engine.Element{r.pipe.AudioSource()}, memengine.Children(r.AudioGraph()))

	require.NoError(t, r.node.Connect(a1))
	assert.Equal(t, r.AudioGraph(), r.node.AudioTee().Parent())
	assert.Nil(t, r.node.VideoTee().Parent())
}

func TestNotifyReachesDownstream(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	fx, fxB := newSink(t, eng, "fx", AudioSink|AudioSource)
	tail, tailB := newSink(t, eng, "tail", AudioSink)
	require.NoError(t, fx.Connect(tail))
	require.NoError(t, r.node.Connect(fx))

	r.node.Notify(Event{Kind: EventSourceChanged})
	assert.Contains(t, fxB.seen, EventSourceChanged)
	assert.Contains(t, tailB.seen, EventSourceChanged)
}

func TestDisposeReleasesTees(t *testing.T) {
	eng := memengine.New()
	r := newRoot(t, eng)
	sink, _ := newSink(t, eng, "asink", AudioSink)
	require.NoError(t, r.node.Connect(sink))
	tee := r.node.AudioTee()

	require.NoError(t, r.node.BreakGraph())
	r.node.Dispose()
	assert.Nil(t, tee.Parent())
	assert.Equal(t, engine.StateNull, tee.CurrentState())
	assert.False(t, r.node.IsValid())
}
