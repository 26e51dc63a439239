// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual_DrainRunsNestedPosts(t *testing.T) {
	m := NewManual()
	var order []string
	m.Post(func() {
		order = append(order, "a")
		m.Post(func() { order = append(order, "c") })
	})
	m.Post(func() { order = append(order, "b") })

	assert.Empty(t, order)
	assert.Equal(t, 3, m.Drain())
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Zero(t, m.Drain())
}

func TestManual_AfterFuncFiresOnAdvance(t *testing.T) {
	m := NewManual()
	fired := 0
	m.AfterFunc(100*time.Millisecond, func() { fired++ })

	m.Advance(99 * time.Millisecond)
	assert.Zero(t, fired)
	assert.Equal(t, 1, m.Armed())

	m.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Zero(t, m.Armed())
	assert.Equal(t, 100*time.Millisecond, m.Now())

	m.Advance(time.Second)
	assert.Equal(t, 1, fired)
}

func TestManual_EveryAndStop(t *testing.T) {
	m := NewManual()
	var at []time.Duration
	tm := m.Every(50*time.Millisecond, func() { at = append(at, m.Now()) })

	m.Advance(160 * time.Millisecond)
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 150 * time.Millisecond}, at)

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	m.Advance(time.Second)
	assert.Len(t, at, 3)
}

func TestManual_TimersFireInDueOrder(t *testing.T) {
	m := NewManual()
	var order []string
	m.AfterFunc(30*time.Millisecond, func() { order = append(order, "late") })
	m.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "early")
		m.Post(func() { order = append(order, "posted") })
	})
	m.AfterFunc(-time.Second, func() { order = append(order, "now") })

	m.Advance(time.Minute)
	assert.Equal(t, []string{"now", "early", "posted", "late"}, order)
}

func TestManual_StopFromInsideCallback(t *testing.T) {
	m := NewManual()
	n := 0
	var tm Timer
	tm = m.Every(10*time.Millisecond, func() {
		n++
		if n == 2 {
			tm.Stop()
		}
	})
	m.Advance(time.Second)
	assert.Equal(t, 2, n)
}
