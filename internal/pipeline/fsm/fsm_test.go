// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type st string
type ev string

func TestMachineFiresKnownTransitions(t *testing.T) {
	var actions []string
	m, err := New[st, ev]("idle", []Transition[st, ev]{
		{From: "idle", Event: "start", To: "running", Action: func(_ context.Context, from, to st, _ ev) error {
			actions = append(actions, string(from)+">"+string(to))
			return nil
		}},
		{From: "running", Event: "stop", To: "idle"},
	})
	require.NoError(t, err)

	require.True(t, m.Can("start"))
	require.False(t, m.Can("stop"))

	to, err := m.Fire(context.Background(), "start")
	require.NoError(t, err)
	require.Equal(t, st("running"), to)
	require.Equal(t, []string{"idle>running"}, actions)

	_, err = m.Fire(context.Background(), "start")
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, st("running"), m.State())
}

func TestMachineGuardRejects(t *testing.T) {
	blocked := errors.New("blocked")
	m, err := New[st, ev]("idle", []Transition[st, ev]{
		{From: "idle", Event: "start", To: "running", Guard: func(context.Context, st, ev) error { return blocked }},
	})
	require.NoError(t, err)

	from, err := m.Fire(context.Background(), "start")
	require.ErrorIs(t, err, blocked)
	require.Equal(t, st("idle"), from)
	require.Equal(t, st("idle"), m.State())
}

func TestMachineRejectsDuplicateEdges(t *testing.T) {
	_, err := New[st, ev]("idle", []Transition[st, ev]{
		{From: "idle", Event: "start", To: "a"},
		{From: "idle", Event: "start", To: "b"},
	})
	require.ErrorIs(t, err, ErrDuplicateTransition)
}

func TestMachineReset(t *testing.T) {
	m, err := New[st, ev]("idle", []Transition[st, ev]{{From: "idle", Event: "start", To: "running"}})
	require.NoError(t, err)
	_, err = m.Fire(context.Background(), "start")
	require.NoError(t, err)
	m.Reset("idle")
	require.True(t, m.Can("start"))
}

func TestMachineActionErrorKeepsState(t *testing.T) {
	failed := errors.New("action failed")
	m, err := New[st, ev]("idle", []Transition[st, ev]{
		{From: "idle", Event: "start", To: "running", Action: func(context.Context, st, st, ev) error { return failed }},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), "start")
	require.ErrorIs(t, err, failed)
	require.Equal(t, st("idle"), m.State())
}

func TestMachineDetectsConcurrentMove(t *testing.T) {
	var m *Machine[st, ev]
	m, err := New[st, ev]("idle", []Transition[st, ev]{
		{From: "idle", Event: "start", To: "running", Action: func(context.Context, st, st, ev) error {
			m.Reset("stopped")
			return nil
		}},
	})
	require.NoError(t, err)

	cur, err := m.Fire(context.Background(), "start")
	require.ErrorIs(t, err, ErrConcurrentTransition)
	require.Equal(t, st("stopped"), cur)
}

func TestMachineObserversAndFromAny(t *testing.T) {
	var seen []string
	edges := append(FromAny[st, ev]([]st{"idle", "done"}, "start", "running"),
		Transition[st, ev]{From: "running", Event: "finish", To: "done"})
	m, err := New[st, ev]("idle", edges, WithObserver[st, ev](func(from, to st, event ev) {
		seen = append(seen, string(from)+"-"+string(event)+"->"+string(to))
	}))
	require.NoError(t, err)

	for _, e := range []ev{"start", "finish", "start"} {
		_, err := m.Fire(context.Background(), e)
		require.NoError(t, err)
	}
	_, err = m.Fire(context.Background(), "start")
	require.Error(t, err)
	m.Reset("idle")

	require.Equal(t, []string{"idle-start->running", "running-finish->done", "done-start->running"}, seen)
}
