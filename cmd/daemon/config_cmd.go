// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/gstbackend/internal/config"
	"github.com/ManuGH/gstbackend/internal/validate"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  gstbackend config validate --file|-f config.yaml")
	fmt.Fprintln(w, "  gstbackend config dump --effective [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gstbackend config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := strings.TrimSpace(file)
	if configPath == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		return 2
	}

	if _, err := config.NewLoader(configPath, version).Load(); err != nil {
		printConfigError(stderr, configPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "%s is valid\n", configPath)
	return 0
}

// printConfigError lists each failed field on its own line.
func printConfigError(w io.Writer, path string, err error) {
	fmt.Fprintf(w, "Configuration error in %s:\n", path)
	var verr validate.ValidationError
	if !errors.As(err, &verr) {
		fmt.Fprintf(w, "  %v\n", err)
		return
	}
	for _, e := range verr.Errors() {
		fmt.Fprintf(w, "  %s: %s\n", e.Field, e.Message)
	}
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gstbackend config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	var format string
	var effective bool

	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	fs.BoolVar(&effective, "effective", false, "dump effective configuration (defaults + file + env)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !effective {
		fmt.Fprintln(stderr, "Error: --effective is required")
		return 2
	}

	configPath := strings.TrimSpace(file)
	cfg, err := config.NewLoader(configPath, version).Load()
	if err != nil {
		printConfigError(stderr, configPath, err)
		return 1
	}

	fileCfg := fileConfigFromAppConfig(cfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

func fileConfigFromAppConfig(cfg config.AppConfig) config.FileConfig {
	tick := cfg.Player.TickInterval
	prefinish := cfg.Player.PrefinishMark
	transition := cfg.Player.TransitionTime
	autoplay := cfg.Player.AutoplayTitles
	tracing := cfg.Telemetry.Enabled
	sampling := cfg.Telemetry.SamplingRate

	out := config.FileConfig{
		LogLevel:   cfg.LogLevel,
		LogService: cfg.LogService,
		Engine:     string(cfg.Engine),
		ListenAddr: cfg.ListenAddr,
		Player: &config.PlayerFileConfig{
			TickInterval:   &tick,
			PrefinishMark:  &prefinish,
			TransitionTime: &transition,
			AutoplayTitles: &autoplay,
		},
		Plugins: &config.PluginsFileConfig{
			Installer: cfg.Plugins.Installer,
			Available: cfg.Plugins.Available,
		},
		Telemetry: &config.TelemetryFileConfig{
			Enabled:      &tracing,
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			Environment:  cfg.Telemetry.Environment,
			SamplingRate: &sampling,
		},
	}
	if len(cfg.Devices.Audio) > 0 || len(cfg.Devices.Video) > 0 {
		out.Devices = &config.DevicesFileConfig{
			Audio: cfg.Devices.Audio,
			Video: cfg.Devices.Video,
		}
	}
	return out
}
