// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dispatch provides the single control thread that owns player and
// graph state. Engine callbacks never touch that state directly; they Post.
package dispatch

import "time"

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the timer was still armed.
	Stop() bool
}

// Scheduler runs functions on the control thread.
type Scheduler interface {
	// Post enqueues fn and returns immediately. Safe from any goroutine.
	Post(fn func())
	// AfterFunc runs fn on the control thread once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Every runs fn on the control thread each period until stopped.
	Every(period time.Duration, fn func()) Timer
}
