// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"
)

// writeValidConfig marshals a minimal valid config with the given tick interval.
func writeValidConfig(t *testing.T, path string, tick time.Duration) {
	t.Helper()
	cfg := map[string]interface{}{
		"engine": "sim",
		"player": map[string]interface{}{
			"tickInterval": tick.String(),
		},
		"devices": map[string]interface{}{
			"audio": []map[string]interface{}{{"id": "hdmi", "element": "pulsesink"}},
		},
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func newTestHolder(t *testing.T, tick time.Duration) (*ConfigHolder, string) {
	t.Helper()
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeValidConfig(t, path, tick)

	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	return NewConfigHolder(initial, loader, path), path
}

func TestConfigHolder_Get(t *testing.T) {
	h, _ := newTestHolder(t, 40*time.Millisecond)

	got := h.Get()
	assert.Equal(t, 40*time.Millisecond, got.Player.TickInterval)

	got.Player.TickInterval = time.Second
	assert.Equal(t, 40*time.Millisecond, h.Get().Player.TickInterval, "Get must return a copy")
}

func TestConfigHolder_Reload_Success(t *testing.T) {
	h, path := newTestHolder(t, 40*time.Millisecond)
	writeValidConfig(t, path, 80*time.Millisecond)

	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, 80*time.Millisecond, h.Get().Player.TickInterval)
}

func TestConfigHolder_Reload_KeepsOldConfigOnFailure(t *testing.T) {
	tests := map[string]string{
		"validation":   "player:\n  tickInterval: 1h\n",
		"strict parse": "player:\n  tickRate: 10ms\n",
		"type":         "player:\n  autoplayTitles: often\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			h, path := newTestHolder(t, 40*time.Millisecond)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			require.Error(t, h.Reload(context.Background()))
			assert.Equal(t, 40*time.Millisecond, h.Get().Player.TickInterval)
		})
	}
}

func TestConfigHolder_RegisterListener(t *testing.T) {
	h, path := newTestHolder(t, 40*time.Millisecond)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	writeValidConfig(t, path, 60*time.Millisecond)
	require.NoError(t, h.Reload(context.Background()))

	select {
	case got := <-ch:
		assert.Equal(t, 60*time.Millisecond, got.Player.TickInterval)
	default:
		t.Fatal("listener did not receive config update")
	}
}

func TestConfigHolder_NotifyListeners_NonBlocking(t *testing.T) {
	h, path := newTestHolder(t, 40*time.Millisecond)
	h.RegisterListener(make(chan AppConfig))

	writeValidConfig(t, path, 60*time.Millisecond)
	require.NoError(t, h.Reload(context.Background()))
}

func TestConfigHolder_StartWatcher_EmptyPath(t *testing.T) {
	clearEnv(t)
	h := NewConfigHolder(AppConfig{}, NewLoader("", "test"), "")
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}

func TestConfigHolder_StartWatcher_MissingFile(t *testing.T) {
	h := NewConfigHolder(AppConfig{}, NewLoader("", "test"), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, h.StartWatcher(context.Background()))
}

func TestConfigHolder_WatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h, path := newTestHolder(t, 40*time.Millisecond)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.StartWatcher(ctx))

	writeValidConfig(t, path, 70*time.Millisecond)

	select {
	case got := <-ch:
		assert.Equal(t, 70*time.Millisecond, got.Player.TickInterval)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload the config")
	}

	cancel()
	h.Stop()
}
