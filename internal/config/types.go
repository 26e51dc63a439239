// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Engine names the pipeline engine the daemon runs on.
type Engine string

const (
	EngineSim       Engine = "sim"
	EngineGStreamer Engine = "gstreamer"
)

// Installer names the plugin installer implementation.
const (
	InstallerNone   = "none"
	InstallerStatic = "static"
)

// Exporter names the OTLP trace transport.
const (
	ExporterGRPC = "grpc"
	ExporterHTTP = "http"
)

const (
	DefaultListenAddr     = ":8088"
	DefaultTickInterval   = 50 * time.Millisecond
	DefaultPrefinishMark  = 0
	DefaultTransitionTime = 0

	DefaultOTelEndpoint    = "localhost:4317"
	DefaultOTelEnvironment = "production"
)

// AppConfig is the effective, merged configuration.
type AppConfig struct {
	Version    string
	LogLevel   string
	LogService string
	Engine     Engine
	ListenAddr string
	Player     PlayerConfig
	Devices    DevicesConfig
	Plugins    PluginsConfig
	Telemetry  TelemetryConfig
}

// PlayerConfig holds the tunables applied to every media object.
type PlayerConfig struct {
	TickInterval   time.Duration
	PrefinishMark  time.Duration
	TransitionTime time.Duration
	AutoplayTitles bool
}

type DevicesConfig struct {
	Audio []DeviceConfig
	Video []DeviceConfig
}

// DeviceConfig describes one output device and the sink element backing it.
type DeviceConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name,omitempty"`
	Element string `yaml:"element"`
	Default bool   `yaml:"default,omitempty"`
}

type PluginsConfig struct {
	Installer string
	// Available lists plugin descriptions the static installer can provide.
	Available []string
}

// TelemetryConfig controls OTLP tracing of the HTTP surface.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	Environment  string
	SamplingRate float64
}

// FileConfig mirrors the YAML file. Pointer fields distinguish unset from zero.
type FileConfig struct {
	LogLevel   string               `yaml:"logLevel,omitempty"`
	LogService string               `yaml:"logService,omitempty"`
	Engine     string               `yaml:"engine,omitempty"`
	ListenAddr string               `yaml:"listenAddr,omitempty"`
	Player     *PlayerFileConfig    `yaml:"player,omitempty"`
	Devices    *DevicesFileConfig   `yaml:"devices,omitempty"`
	Plugins    *PluginsFileConfig   `yaml:"plugins,omitempty"`
	Telemetry  *TelemetryFileConfig `yaml:"telemetry,omitempty"`
}

type PlayerFileConfig struct {
	TickInterval   *time.Duration `yaml:"tickInterval,omitempty"`
	PrefinishMark  *time.Duration `yaml:"prefinishMark,omitempty"`
	TransitionTime *time.Duration `yaml:"transitionTime,omitempty"`
	AutoplayTitles *bool          `yaml:"autoplayTitles,omitempty"`
}

type DevicesFileConfig struct {
	Audio []DeviceConfig `yaml:"audio,omitempty"`
	Video []DeviceConfig `yaml:"video,omitempty"`
}

type PluginsFileConfig struct {
	Installer string   `yaml:"installer,omitempty"`
	Available []string `yaml:"available,omitempty"`
}

type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
