// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/gstbackend/internal/config"
	"github.com/ManuGH/gstbackend/internal/engine"
	"github.com/ManuGH/gstbackend/internal/engine/gstengine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range config.EnvKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfigValidate(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer
	good := writeFile(t, "engine: sim\nplayer:\n  tickInterval: 20ms\n")
	assert.Equal(t, 0, configCLI([]string{"validate", "-f", good}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "is valid")

	stdout.Reset()
	bad := writeFile(t, "engine: vlc\n")
	assert.Equal(t, 1, configCLI([]string{"validate", "--file", bad}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "engine")

	stderr.Reset()
	multi := writeFile(t, "engine: vlc\ntelemetry:\n  enabled: true\n  exporter: zipkin\n")
	assert.Equal(t, 1, configCLI([]string{"validate", "-f", multi}, &stdout, &stderr))
	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	require.Len(t, lines, 3, stderr.String())
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[1]), "engine: "), lines[1])
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[2]), "telemetry.exporter: "), lines[2])

	assert.Equal(t, 2, configCLI([]string{"validate"}, &stdout, &stderr))
	assert.Equal(t, 2, configCLI([]string{"lint"}, &stdout, &stderr))
	assert.Equal(t, 0, configCLI(nil, &stdout, &stderr))
}

func TestConfigDump(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
player:
  tickInterval: 100ms
devices:
  audio:
    - id: hdmi
      element: pulsesink
      default: true
`)

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, configCLI([]string{"dump", "-f", path}, &stdout, &stderr))

	require.Equal(t, 0, configCLI([]string{"dump", "--effective", "-f", path}, &stdout, &stderr), stderr.String())
	var dumped config.FileConfig
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &dumped))
	assert.Equal(t, "sim", dumped.Engine)
	assert.Equal(t, config.DefaultListenAddr, dumped.ListenAddr)
	require.NotNil(t, dumped.Player)
	require.NotNil(t, dumped.Player.TickInterval)
	assert.Equal(t, 100*time.Millisecond, *dumped.Player.TickInterval)
	require.NotNil(t, dumped.Devices)
	require.Len(t, dumped.Devices.Audio, 1)
	assert.Equal(t, "hdmi", dumped.Devices.Audio[0].ID)
	require.NotNil(t, dumped.Telemetry)
	assert.Equal(t, config.ExporterGRPC, dumped.Telemetry.Exporter)
	require.NotNil(t, dumped.Telemetry.Enabled)
	assert.False(t, *dumped.Telemetry.Enabled)

	// The dump is itself a loadable config.
	roundTrip := writeFile(t, stdout.String())
	stdout.Reset()
	assert.Equal(t, 0, configCLI([]string{"validate", "-f", roundTrip}, &stdout, &stderr), stderr.String())

	stdout.Reset()
	require.Equal(t, 0, configCLI([]string{"dump", "--effective", "--format=json"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(stdout.String()), "{"))

	assert.Equal(t, 2, configCLI([]string{"dump", "--effective", "--format=toml"}, &stdout, &stderr))
}

func TestNewEngine(t *testing.T) {
	f, err := newEngine(config.EngineSim)
	require.NoError(t, err)
	require.NotNil(t, f)

	_, err = newEngine("vlc")
	assert.ErrorIs(t, err, config.ErrInvalid)

	if gstengine.Available() {
		t.Skip("built with gstreamer support")
	}
	_, err = newEngine(config.EngineGStreamer)
	assert.ErrorIs(t, err, engine.ErrUnavailable)
}

func TestSimMediaPrerolls(t *testing.T) {
	e := newSimEngine()
	p, err := e.NewPipeline("probe")
	require.NoError(t, err)
	defer p.Dispose()

	require.NoError(t, p.SetURI("file:///demo/tone.ogg"))
	assert.NotEqual(t, engine.StateChangeFailure, p.SetState(engine.StatePaused))
	d, ok := p.QueryDuration()
	require.True(t, ok)
	assert.Equal(t, 3*time.Minute, d)
}

func TestHealthcheck(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/readyz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	assert.NoError(t, healthcheck(addr, "/readyz", time.Second))

	assert.Error(t, healthcheck(addr, "/healthz", time.Second))

	status.Store(http.StatusServiceUnavailable)
	assert.Error(t, healthcheck(addr, "/readyz", time.Second))
	assert.Error(t, healthcheck("127.0.0.1:1", "/readyz", 200*time.Millisecond))
}

func TestRunShutsDownOnCancel(t *testing.T) {
	clearEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	t.Setenv(config.EnvListen, addr)
	cfg, err := config.NewLoader("", "test").Load()
	require.NoError(t, err)
	require.Equal(t, addr, cfg.ListenAddr)

	holder := config.NewConfigHolder(cfg, config.NewLoader("", "test"), "")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, holder, xglog.WithComponent("test")) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.True(t, errors.Is(ctx.Err(), context.DeadlineExceeded))
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestTelemetryConfig(t *testing.T) {
	cfg := config.AppConfig{
		Version:    "v9",
		LogService: "living-room",
		Telemetry: config.TelemetryConfig{
			Enabled:      true,
			Exporter:     config.ExporterHTTP,
			Endpoint:     "collector:4318",
			Environment:  "staging",
			SamplingRate: 0.1,
		},
	}
	tc := telemetryConfig(cfg)
	assert.True(t, tc.Enabled)
	assert.Equal(t, "living-room", tc.ServiceName)
	assert.Equal(t, "v9", tc.ServiceVersion)
	assert.Equal(t, "staging", tc.Environment)
	assert.Equal(t, "http", tc.Exporter)
	assert.Equal(t, "collector:4318", tc.Endpoint)
	assert.Equal(t, 0.1, tc.SamplingRate)
}
