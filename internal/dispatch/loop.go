// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/metrics"
)

// ErrStopped is returned by Call once the loop has exited.
var ErrStopped = errors.New("dispatch loop stopped")

// Loop is a goroutine draining an unbounded FIFO of functions.
// Posting never blocks, so engine threads can always hand off.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	running atomic.Bool
	done    chan struct{}
}

func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("dispatch loop already running")
	}
	defer close(l.done)
	logger := xglog.WithComponent("dispatch")
	logger.Debug().Str("event", "dispatch.loop_start").Msg("control loop started")
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		for _, fn := range batch {
			l.runOne(fn)
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			dropped := len(l.queue)
			l.queue = nil
			l.mu.Unlock()
			logger.Debug().
				Str("event", "dispatch.loop_stop").
				Int("dropped", dropped).
				Msg("control loop stopped")
			return nil
		}
	}
}

func (l *Loop) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncDispatchPanic()
			logger := xglog.WithComponent("dispatch")
			logger.Error().
				Interface("panic", r).
				Str("event", "dispatch.panic").
				Msg("control loop task panicked")
		}
	}()
	fn()
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the control thread and waits for it to return.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.fired() {
				fn()
			}
		})
	})
	return t
}

func (l *Loop) Every(period time.Duration, fn func()) Timer {
	t := &loopTimer{}
	ticker := time.NewTicker(period)
	t.ticker = ticker
	t.quit = make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				l.Post(func() {
					if !t.isStopped() {
						fn()
					}
				})
			case <-t.quit:
				return
			case <-l.done:
				ticker.Stop()
				return
			}
		}
	}()
	return t
}

type loopTimer struct {
	mu      sync.Mutex
	t       *time.Timer
	ticker  *time.Ticker
	quit    chan struct{}
	stopped bool
	done    bool
}

// fired marks a one-shot timer as consumed; false if it was stopped first.
func (t *loopTimer) fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.done {
		return false
	}
	t.done = true
	return true
}

func (t *loopTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *loopTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.done {
		return false
	}
	t.stopped = true
	if t.t != nil {
		t.t.Stop()
	}
	if t.ticker != nil {
		t.ticker.Stop()
		close(t.quit)
	}
	return true
}

var _ Scheduler = (*Loop)(nil)
