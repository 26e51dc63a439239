// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"time"

	"github.com/ManuGH/gstbackend/internal/validate"
)

const (
	maxTickInterval   = 10 * time.Second
	maxPrefinishMark  = 10 * time.Minute
	maxTransitionTime = time.Minute
)

// Validate checks the merged configuration. All failures are reported at once
// and wrap ErrInvalid.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", "must be one of trace, debug, info, warn, error", cfg.LogLevel)
	}
	v.OneOf("engine", string(cfg.Engine), []string{string(EngineSim), string(EngineGStreamer)})
	v.ListenAddr("listenAddr", cfg.ListenAddr)

	// zero selects the player default
	v.DurationRange("player.tickInterval", cfg.Player.TickInterval, 0, maxTickInterval)
	v.DurationRange("player.prefinishMark", cfg.Player.PrefinishMark, 0, maxPrefinishMark)
	v.DurationRange("player.transitionTime", cfg.Player.TransitionTime, 0, maxTransitionTime)

	validateDevices(v, "devices.audio", cfg.Devices.Audio)
	validateDevices(v, "devices.video", cfg.Devices.Video)

	v.OneOf("plugins.installer", cfg.Plugins.Installer, []string{InstallerNone, InstallerStatic})
	for i, desc := range cfg.Plugins.Available {
		v.NotEmpty(fmt.Sprintf("plugins.available[%d]", i), desc)
	}

	v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{ExporterGRPC, ExporterHTTP})
		v.Endpoint("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func validateDevices(v *validate.Validator, field string, devices []DeviceConfig) {
	seen := make(map[string]struct{}, len(devices))
	defaults := 0
	for i, d := range devices {
		f := fmt.Sprintf("%s[%d]", field, i)
		v.NotEmpty(f+".id", d.ID)
		v.NotEmpty(f+".element", d.Element)
		if _, dup := seen[d.ID]; dup && d.ID != "" {
			v.AddError(f+".id", "duplicate device id", d.ID)
		}
		seen[d.ID] = struct{}{}
		if d.Default {
			defaults++
		}
	}
	if defaults > 1 {
		v.AddError(field, "at most one device may be marked default", defaults)
	}
}
