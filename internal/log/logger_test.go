// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureAttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "svc", Version: "v9"})
	t.Cleanup(func() { Configure(Config{Level: "info"}) })

	l := WithComponent("player")
	l.Info().Str(FieldEvent, "test.event").Msg("x")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for key, want := range map[string]string{
		"service":      "svc",
		"version":      "v9",
		FieldComponent: "player",
		FieldEvent:     "test.event",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("global level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestConfigureIgnoresInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "loud", Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: "info"}) })
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("global level = %v, want info", zerolog.GlobalLevel())
	}
}

func TestDeriveAppliesBuilder(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: "info"}) })

	l := Derive(func(c *zerolog.Context) { *c = c.Str(FieldNode, "audio-out") })
	l.Info().Msg("x")
	if !bytes.Contains(buf.Bytes(), []byte(`"node":"audio-out"`)) {
		t.Errorf("missing node field in %s", buf.String())
	}
}
