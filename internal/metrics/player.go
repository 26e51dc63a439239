// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlayerStateTransitions counts committed logical state changes.
	PlayerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gstb_player_state_transitions_total",
		Help: "Committed player state changes by source and target state",
	}, []string{"from", "to"})

	// PlayerErrors counts classified errors surfaced to the host.
	PlayerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gstb_player_errors_total",
		Help: "Player errors by classification",
	}, []string{"kind"})

	// PlayerSourceTransitions counts end-of-stream outcomes.
	PlayerSourceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gstb_player_source_transitions_total",
		Help: "End-of-stream handling outcomes (gapless, title_advance, finished)",
	}, []string{"kind"})

	// GraphBuilds counts graph build attempts by result.
	GraphBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gstb_graph_builds_total",
		Help: "Media graph build attempts by result",
	}, []string{"result"})

	// GraphRollbacks counts partial builds undone after a link failure.
	GraphRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gstb_graph_rollbacks_total",
		Help: "Media graph builds rolled back after a link failure",
	})

	// PluginInstalls counts plugin-install workflow outcomes.
	PluginInstalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gstb_plugin_installs_total",
		Help: "Missing-plugin workflow outcomes (started, succeeded, failed, missing)",
	}, []string{"result"})

	// PlayerTicks counts tick notifications emitted to listeners.
	PlayerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gstb_player_ticks_total",
		Help: "Tick notifications emitted by players",
	})

	// DeviceSwitches counts output device changes on live outputs.
	DeviceSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gstb_device_switches_total",
		Help: "Output device switches by result",
	}, []string{"result"})

	// HTTPRequests counts control API requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gstb_http_requests_total",
		Help: "Control API requests by route and status class",
	}, []string{"route", "status"})

	// DispatchPanics counts control-loop tasks that panicked.
	DispatchPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gstb_dispatch_panics_total",
		Help: "Control loop tasks that panicked",
	})
)

func ObserveStateTransition(from, to string) {
	PlayerStateTransitions.WithLabelValues(from, to).Inc()
}

func IncPlayerError(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	PlayerErrors.WithLabelValues(kind).Inc()
}

func IncSourceTransition(kind string) {
	PlayerSourceTransitions.WithLabelValues(kind).Inc()
}

// ObserveGraphBuild records a build attempt; rolledBack marks an undone partial build.
func ObserveGraphBuild(ok, rolledBack bool) {
	if ok {
		GraphBuilds.WithLabelValues("success").Inc()
		return
	}
	GraphBuilds.WithLabelValues("failure").Inc()
	if rolledBack {
		GraphRollbacks.Inc()
	}
}

func IncPluginInstall(result string) {
	PluginInstalls.WithLabelValues(result).Inc()
}

func IncTick() {
	PlayerTicks.Inc()
}

func IncDispatchPanic() {
	DispatchPanics.Inc()
}

func IncDeviceSwitch(result string) {
	DeviceSwitches.WithLabelValues(result).Inc()
}

func IncHTTPRequest(route, status string) {
	HTTPRequests.WithLabelValues(route, status).Inc()
}
