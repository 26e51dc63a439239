// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pluginstall

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/gstbackend/internal/dispatch"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/metrics"
	"github.com/ManuGH/gstbackend/internal/pipeline/fsm"
)

// Phase is the workflow state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseChecking   Phase = "checking"
	PhaseInstalling Phase = "installing"
	PhaseInstalled  Phase = "installed"
	PhaseMissing    Phase = "missing"
	PhaseFailed     Phase = "failed"
)

type trigger string

const (
	trCheck   trigger = "check"
	trFound   trigger = "found"
	trMissing trigger = "missing"
	trInstall trigger = "install"
	trSucceed trigger = "succeed"
	trFail    trigger = "fail"
)

// Hooks are called on the control thread.
type Hooks struct {
	Started   func()
	Succeeded func()
	Failed    func(err error)
}

// Workflow collects missing-plugin descriptions for the current source and
// runs one check/install cycle over them.
type Workflow struct {
	inst    Installer
	sched   dispatch.Scheduler
	hooks   Hooks
	machine *fsm.Machine[Phase, trigger]
	pending []string
	logger  zerolog.Logger
}

func transitions() []fsm.Transition[Phase, trigger] {
	ts := fsm.FromAny([]Phase{PhaseIdle, PhaseInstalled, PhaseMissing, PhaseFailed}, trCheck, PhaseChecking)
	return append(ts,
		fsm.Transition[Phase, trigger]{From: PhaseChecking, Event: trFound, To: PhaseInstalled},
		fsm.Transition[Phase, trigger]{From: PhaseChecking, Event: trMissing, To: PhaseMissing},
		fsm.Transition[Phase, trigger]{From: PhaseChecking, Event: trInstall, To: PhaseInstalling},
		fsm.Transition[Phase, trigger]{From: PhaseInstalling, Event: trSucceed, To: PhaseInstalled},
		fsm.Transition[Phase, trigger]{From: PhaseInstalling, Event: trFail, To: PhaseFailed},
	)
}

// NewWorkflow wires inst to the control thread. A nil installer behaves as None.
func NewWorkflow(inst Installer, sched dispatch.Scheduler, hooks Hooks) (*Workflow, error) {
	if inst == nil {
		inst = None{}
	}
	w := &Workflow{
		inst:   inst,
		sched:  sched,
		hooks:  hooks,
		logger: xglog.WithComponent("pluginstall"),
	}
	m, err := fsm.New(PhaseIdle, transitions(), fsm.WithObserver[Phase, trigger](w.observe))
	if err != nil {
		return nil, fmt.Errorf("plugin workflow: %w", err)
	}
	w.machine = m
	return w, nil
}

// observe records every committed phase change.
func (w *Workflow) observe(from, to Phase, event trigger) {
	w.logger.Debug().
		Str(xglog.FieldEvent, "plugin.phase").
		Str(xglog.FieldOldState, string(from)).
		Str(xglog.FieldNewState, string(to)).
		Str("trigger", string(event)).
		Msg("plugin workflow phase changed")
	switch to {
	case PhaseInstalling:
		metrics.IncPluginInstall("started")
	case PhaseInstalled:
		if from == PhaseInstalling {
			metrics.IncPluginInstall("succeeded")
		}
	case PhaseMissing:
		metrics.IncPluginInstall("missing")
	case PhaseFailed:
		metrics.IncPluginInstall("failed")
	}
}

// Add records a missing capability description once.
func (w *Workflow) Add(description string) {
	if description == "" {
		return
	}
	for _, d := range w.pending {
		if d == description {
			return
		}
	}
	w.pending = append(w.pending, description)
}

func (w *Workflow) Pending() []string { return append([]string(nil), w.pending...) }

func (w *Workflow) Phase() Phase { return w.machine.State() }

// Reset forgets collected descriptions; used when the source changes.
func (w *Workflow) Reset() {
	w.pending = nil
	if w.machine.State() != PhaseInstalling {
		w.machine.Reset(PhaseIdle)
	}
}

// Check asks the installer about the collected descriptions. On Installing
// an install is started; its outcome arrives later through Hooks.
func (w *Workflow) Check() Status {
	if w.machine.State() == PhaseInstalling {
		return StatusInstalling
	}
	ctx := context.Background()
	if _, err := w.machine.Fire(ctx, trCheck); err != nil {
		w.logger.Warn().Err(err).Msg("plugin check rejected")
		return StatusMissing
	}
	descs := w.Pending()
	status := w.inst.Check(descs)
	w.logger.Info().
		Str(xglog.FieldEvent, "plugin.check").
		Strs("plugins", descs).
		Str("status", status.String()).
		Msg("missing plugin check")

	switch status {
	case StatusInstalled:
		_, _ = w.machine.Fire(ctx, trFound)
	case StatusInstalling:
		_, _ = w.machine.Fire(ctx, trInstall)
		if w.hooks.Started != nil {
			w.hooks.Started()
		}
		w.inst.Install(descs, func(err error) {
			w.sched.Post(func() { w.finish(err) })
		})
	default:
		_, _ = w.machine.Fire(ctx, trMissing)
	}
	return status
}

func (w *Workflow) finish(err error) {
	ctx := context.Background()
	if err != nil {
		if _, ferr := w.machine.Fire(ctx, trFail); ferr != nil {
			return
		}
		w.logger.Warn().Err(err).Str(xglog.FieldEvent, "plugin.install_failed").Msg("plugin installation failed")
		if w.hooks.Failed != nil {
			w.hooks.Failed(fmt.Errorf("%w: %w", ErrInstallFailed, err))
		}
		return
	}
	if _, ferr := w.machine.Fire(ctx, trSucceed); ferr != nil {
		return
	}
	w.logger.Info().Str(xglog.FieldEvent, "plugin.installed").Msg("plugin installation finished")
	w.pending = nil
	if w.hooks.Succeeded != nil {
		w.hooks.Succeeded()
	}
}
