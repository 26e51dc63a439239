// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"sync"
	"time"
)

// Manual is a deterministic Scheduler driven by a virtual clock.
// Nothing runs until the owner calls Drain or Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	queue  []func()
	timers []*manualTimer
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(period time.Duration, fn func()) Timer {
	return m.add(period, period, fn)
}

func (m *Manual) add(d, period time.Duration, fn func()) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	t := &manualTimer{m: m, due: m.now + d, period: period, fn: fn, armed: true}
	m.timers = append(m.timers, t)
	return t
}

// Drain runs queued functions, including ones they post, until the queue is empty.
// It returns how many functions ran.
func (m *Manual) Drain() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
		n++
	}
}

// Advance moves the virtual clock forward, firing due timers in order and
// draining the queue after each one.
func (m *Manual) Advance(d time.Duration) {
	m.Drain()
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()
	for {
		m.mu.Lock()
		next := m.earliestLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			break
		}
		m.now = next.due
		if next.period > 0 {
			next.due += next.period
		} else {
			next.armed = false
		}
		fn := next.fn
		m.mu.Unlock()
		fn()
		m.Drain()
	}
	m.Drain()
}

func (m *Manual) earliestLocked(limit time.Duration) *manualTimer {
	var best *manualTimer
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.armed {
			continue
		}
		live = append(live, t)
		if t.due > limit {
			continue
		}
		if best == nil || t.due < best.due {
			best = t
		}
	}
	m.timers = live
	return best
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Armed returns the number of timers still scheduled.
func (m *Manual) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if t.armed {
			n++
		}
	}
	return n
}

type manualTimer struct {
	m      *Manual
	due    time.Duration
	period time.Duration
	fn     func()
	armed  bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	was := t.armed
	t.armed = false
	return was
}

var _ Scheduler = (*Manual)(nil)
