// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startLoop(t *testing.T) (*Loop, func()) {
	t.Helper()
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	return l, func() {
		cancel()
		require.NoError(t, <-errc)
	}
}

func TestLoop_RunsPostedInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	l, stop := startLoop(t)
	defer stop()

	var got []int
	for i := 0; i < 50; i++ {
		l.Post(func() { got = append(got, i) })
	}
	require.NoError(t, l.Call(context.Background(), func() {}))

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_PostFromManyGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	l, stop := startLoop(t)
	defer stop()

	// counter is only touched on the loop goroutine
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Post(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	var total int
	require.NoError(t, l.Call(context.Background(), func() { total = counter }))
	assert.Equal(t, 800, total)
}

func TestLoop_CallAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	l, stop := startLoop(t)
	stop()

	<-l.Done()
	err := l.Call(context.Background(), func() { t.Error("ran after stop") })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestLoop_CallHonorsContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	l, stop := startLoop(t)
	defer stop()

	release := make(chan struct{})
	l.Post(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Call(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestLoop_RunTwice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	l, stop := startLoop(t)
	defer stop()

	require.NoError(t, l.Call(context.Background(), func() {}))
	assert.Error(t, l.Run(context.Background()))
}

func TestLoop_PanicDoesNotKillLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	l, stop := startLoop(t)
	defer stop()

	l.Post(func() { panic("boom") })
	ran := false
	require.NoError(t, l.Call(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestLoop_AfterFunc(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	l, stop := startLoop(t)
	defer stop()

	fired := make(chan struct{})
	l.AfterFunc(5*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	var calls atomic.Int32
	tm := l.AfterFunc(time.Hour, func() { calls.Add(1) })
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	assert.Zero(t, calls.Load())
}

func TestLoop_Every(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	l, stop := startLoop(t)
	defer stop()

	var n atomic.Int32
	reached := make(chan struct{})
	var tm Timer
	require.NoError(t, l.Call(context.Background(), func() {
		tm = l.Every(2*time.Millisecond, func() {
			if n.Add(1) == 3 {
				close(reached)
			}
		})
	}))
	select {
	case <-reached:
	case <-time.After(2 * time.Second):
		t.Fatal("periodic timer stalled")
	}
	assert.True(t, tm.Stop())

	// A stopped timer never runs again, even if a tick was already queued.
	var after int32
	require.NoError(t, l.Call(context.Background(), func() { after = n.Load() }))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, l.Call(context.Background(), func() {}))
	assert.Equal(t, after, n.Load())
}
