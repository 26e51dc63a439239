// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pluginstall resolves missing codec/demuxer plugins. The Installer
// port is the external helper; Workflow sequences a check/install cycle on
// the control thread.
package pluginstall

import (
	"errors"
	"sync"
)

// Status is the result of checking the missing capabilities.
type Status int

const (
	// StatusMissing means the capabilities cannot be provided.
	StatusMissing Status = iota
	// StatusInstalling means an installation is in progress.
	StatusInstalling
	// StatusInstalled means everything required is present now.
	StatusInstalled
)

func (s Status) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusInstalling:
		return "installing"
	case StatusInstalled:
		return "installed"
	default:
		return "unknown"
	}
}

var (
	ErrNotInstallable = errors.New("plugin not installable")
	ErrInstallFailed  = errors.New("plugin installation failed")
)

// Installer is the plugin-installation helper. Descriptions are the
// stream-kind descriptions reported by the failing element.
type Installer interface {
	Check(descriptions []string) Status
	// Install starts installing and calls done exactly once, possibly from
	// another goroutine.
	Install(descriptions []string, done func(error))
}

// Static is an Installer over fixed capability sets.
type Static struct {
	mu          sync.Mutex
	installed   map[string]bool
	installable map[string]bool
	// FailWith makes every Install report this error.
	FailWith error
	// Async runs Install completion on its own goroutine.
	Async bool
}

// NewStatic creates an installer that can install the given descriptions.
func NewStatic(installable ...string) *Static {
	s := &Static{installed: make(map[string]bool), installable: make(map[string]bool)}
	for _, d := range installable {
		s.installable[d] = true
	}
	return s
}

// MarkInstalled records descriptions as already present.
func (s *Static) MarkInstalled(descriptions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range descriptions {
		s.installed[d] = true
	}
}

func (s *Static) Check(descriptions []string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := true
	for _, d := range descriptions {
		if s.installed[d] {
			continue
		}
		all = false
		if !s.installable[d] {
			return StatusMissing
		}
	}
	if all {
		return StatusInstalled
	}
	return StatusInstalling
}

func (s *Static) Install(descriptions []string, done func(error)) {
	finish := func() {
		s.mu.Lock()
		err := s.FailWith
		if err == nil {
			for _, d := range descriptions {
				if !s.installable[d] && !s.installed[d] {
					err = ErrNotInstallable
					break
				}
				s.installed[d] = true
			}
		}
		s.mu.Unlock()
		done(err)
	}
	if s.Async {
		go finish()
		return
	}
	finish()
}

// None is an Installer that never provides anything.
type None struct{}

func (None) Check([]string) Status { return StatusMissing }

func (None) Install(_ []string, done func(error)) { done(ErrNotInstallable) }

var (
	_ Installer = (*Static)(nil)
	_ Installer = None{}
)
