// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys understood by the loader.
const (
	EnvLogLevel       = "GSTB_LOG_LEVEL"
	EnvEngine         = "GSTB_ENGINE"
	EnvListen         = "GSTB_LISTEN"
	EnvTickInterval   = "GSTB_TICK_INTERVAL"
	EnvPrefinishMark  = "GSTB_PREFINISH_MARK"
	EnvTransitionTime = "GSTB_TRANSITION_TIME"
	EnvAutoplayTitles = "GSTB_AUTOPLAY_TITLES"

	EnvOTelEnabled      = "GSTB_OTEL_ENABLED"
	EnvOTelExporter     = "GSTB_OTEL_EXPORTER"
	EnvOTelEndpoint     = "GSTB_OTEL_ENDPOINT"
	EnvOTelEnvironment  = "GSTB_OTEL_ENVIRONMENT"
	EnvOTelSamplingRate = "GSTB_OTEL_SAMPLING_RATE"
)

// EnvKeys lists every environment key the loader reads.
var EnvKeys = []string{
	EnvLogLevel, EnvEngine, EnvListen,
	EnvTickInterval, EnvPrefinishMark, EnvTransitionTime, EnvAutoplayTitles,
	EnvOTelEnabled, EnvOTelExporter, EnvOTelEndpoint, EnvOTelEnvironment, EnvOTelSamplingRate,
}

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}

	// 1. Set defaults
	l.setDefaults(&cfg)

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	// 3. Override with environment variables
	l.mergeEnvConfig(&cfg)

	// 4. Validate final configuration
	if err := Validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.Version = l.version
	cfg.LogLevel = "info"
	cfg.LogService = "gstbackend"
	cfg.Engine = EngineSim
	cfg.ListenAddr = DefaultListenAddr
	cfg.Player = PlayerConfig{
		TickInterval:   DefaultTickInterval,
		PrefinishMark:  DefaultPrefinishMark,
		TransitionTime: DefaultTransitionTime,
	}
	cfg.Plugins.Installer = InstallerNone
	cfg.Telemetry = TelemetryConfig{
		Exporter:     ExporterGRPC,
		Endpoint:     DefaultOTelEndpoint,
		Environment:  DefaultOTelEnvironment,
		SamplingRate: 1.0,
	}
}

// loadFile parses a single strict YAML document.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	// Check file extension
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, src *FileConfig) {
	if src.LogLevel != "" {
		cfg.LogLevel = src.LogLevel
	}
	if src.LogService != "" {
		cfg.LogService = src.LogService
	}
	if src.Engine != "" {
		cfg.Engine = Engine(src.Engine)
	}
	if src.ListenAddr != "" {
		cfg.ListenAddr = src.ListenAddr
	}
	if p := src.Player; p != nil {
		if p.TickInterval != nil {
			cfg.Player.TickInterval = *p.TickInterval
		}
		if p.PrefinishMark != nil {
			cfg.Player.PrefinishMark = *p.PrefinishMark
		}
		if p.TransitionTime != nil {
			cfg.Player.TransitionTime = *p.TransitionTime
		}
		if p.AutoplayTitles != nil {
			cfg.Player.AutoplayTitles = *p.AutoplayTitles
		}
	}
	if d := src.Devices; d != nil {
		cfg.Devices.Audio = append([]DeviceConfig(nil), d.Audio...)
		cfg.Devices.Video = append([]DeviceConfig(nil), d.Video...)
	}
	if p := src.Plugins; p != nil {
		if p.Installer != "" {
			cfg.Plugins.Installer = p.Installer
		}
		cfg.Plugins.Available = append([]string(nil), p.Available...)
	}
	if t := src.Telemetry; t != nil {
		if t.Enabled != nil {
			cfg.Telemetry.Enabled = *t.Enabled
		}
		if t.Exporter != "" {
			cfg.Telemetry.Exporter = t.Exporter
		}
		if t.Endpoint != "" {
			cfg.Telemetry.Endpoint = t.Endpoint
		}
		if t.Environment != "" {
			cfg.Telemetry.Environment = t.Environment
		}
		if t.SamplingRate != nil {
			cfg.Telemetry.SamplingRate = *t.SamplingRate
		}
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.Engine = Engine(l.envString(EnvEngine, string(cfg.Engine)))
	cfg.ListenAddr = l.envString(EnvListen, cfg.ListenAddr)
	cfg.Player.TickInterval = l.envDuration(EnvTickInterval, cfg.Player.TickInterval)
	cfg.Player.PrefinishMark = l.envDuration(EnvPrefinishMark, cfg.Player.PrefinishMark)
	cfg.Player.TransitionTime = l.envDuration(EnvTransitionTime, cfg.Player.TransitionTime)
	cfg.Player.AutoplayTitles = l.envBool(EnvAutoplayTitles, cfg.Player.AutoplayTitles)
	cfg.Telemetry.Enabled = l.envBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvOTelExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = l.envString(EnvOTelEnvironment, cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvOTelSamplingRate, cfg.Telemetry.SamplingRate)
}
