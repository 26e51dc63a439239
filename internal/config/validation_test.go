// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/gstbackend/internal/validate"
)

func validConfig() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		Engine:     EngineSim,
		ListenAddr: ":8088",
		Player:     PlayerConfig{TickInterval: 50 * time.Millisecond},
		Devices: DevicesConfig{
			Audio: []DeviceConfig{{ID: "hdmi", Element: "pulsesink", Default: true}, {ID: "usb", Element: "alsasink"}},
		},
		Plugins:   PluginsConfig{Installer: InstallerNone},
		Telemetry: TelemetryConfig{Exporter: ExporterGRPC, Endpoint: "localhost:4317", SamplingRate: 1},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"zero tick selects default", func(c *AppConfig) { c.Player.TickInterval = 0 }, ""},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "verbose" }, "logLevel"},
		{"bad engine", func(c *AppConfig) { c.Engine = "xine" }, "engine"},
		{"bad listen addr", func(c *AppConfig) { c.ListenAddr = "8088" }, "listenAddr"},
		{"negative tick", func(c *AppConfig) { c.Player.TickInterval = -time.Millisecond }, "player.tickInterval"},
		{"huge prefinish", func(c *AppConfig) { c.Player.PrefinishMark = time.Hour }, "player.prefinishMark"},
		{"negative transition", func(c *AppConfig) { c.Player.TransitionTime = -time.Second }, "player.transitionTime"},
		{"empty device id", func(c *AppConfig) { c.Devices.Audio[1].ID = "" }, "devices.audio[1].id"},
		{"empty element", func(c *AppConfig) { c.Devices.Audio[1].Element = " " }, "devices.audio[1].element"},
		{"duplicate id", func(c *AppConfig) { c.Devices.Audio[1].ID = "hdmi" }, "devices.audio[1].id"},
		{"two defaults", func(c *AppConfig) { c.Devices.Audio[1].Default = true }, "devices.audio"},
		{"bad installer", func(c *AppConfig) { c.Plugins.Installer = "apt" }, "plugins.installer"},
		{"empty plugin", func(c *AppConfig) { c.Plugins.Available = []string{""} }, "plugins.available[0]"},
		{"sampling above one", func(c *AppConfig) { c.Telemetry.SamplingRate = 1.5 }, "telemetry.samplingRate"},
		{"disabled telemetry ignores exporter", func(c *AppConfig) { c.Telemetry.Exporter = "zipkin" }, ""},
		{"bad exporter", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }, "telemetry.exporter"},
		{"endpoint without host", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Endpoint = ":4317" }, "telemetry.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalid)

			var verr validate.ValidationError
			require.True(t, errors.As(err, &verr))
			fields := make([]string, 0, len(verr.Errors()))
			for _, e := range verr.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidate_ReportsAllFailures(t *testing.T) {
	cfg := validConfig()
	cfg.Engine = ""
	cfg.ListenAddr = ""
	cfg.Devices.Video = []DeviceConfig{{ID: "x11"}}

	var verr validate.ValidationError
	require.ErrorAs(t, Validate(cfg), &verr)
	assert.Len(t, verr.Errors(), 3)
}
