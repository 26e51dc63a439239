// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// setOrUnset sets key when value is non-nil; otherwise the variable stays unset
// for the duration of the test.
func setOrUnset(t *testing.T, key string, value *string) {
	t.Helper()
	if value != nil {
		t.Setenv(key, *value)
	}
}

func ptr(s string) *string { return &s }

func TestParseString(t *testing.T) {
	const key = "GSTB_TEST_STRING"
	for name, tc := range map[string]struct {
		env  *string
		want string
	}{
		"set":   {ptr("pulsesink"), "pulsesink"},
		"empty": {ptr(""), "autoaudiosink"},
		"unset": {nil, "autoaudiosink"},
	} {
		t.Run(name, func(t *testing.T) {
			setOrUnset(t, key, tc.env)
			assert.Equal(t, tc.want, ParseString(key, "autoaudiosink"))
		})
	}
}

func TestParseDuration(t *testing.T) {
	const key = "GSTB_TEST_DURATION"
	for name, tc := range map[string]struct {
		env  *string
		want time.Duration
	}{
		"milliseconds":   {ptr("250ms"), 250 * time.Millisecond},
		"minutes":        {ptr("2m"), 2 * time.Minute},
		"words":          {ptr("soon"), time.Second},
		"bare number":    {ptr("100"), time.Second},
		"empty":          {ptr(""), time.Second},
		"unset":          {nil, time.Second},
		"negative value": {ptr("-5s"), -5 * time.Second},
	} {
		t.Run(name, func(t *testing.T) {
			setOrUnset(t, key, tc.env)
			assert.Equal(t, tc.want, ParseDuration(key, time.Second))
		})
	}
}

func TestParseBool(t *testing.T) {
	const key = "GSTB_TEST_BOOL"
	for _, tc := range []struct {
		env  string
		def  bool
		want bool
	}{
		{"Yes", false, true},
		{"1", false, true},
		{"TRUE", false, true},
		{"no", true, false},
		{"0", true, false},
		{"False", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
		{"", true, true},
	} {
		t.Run(tc.env, func(t *testing.T) {
			t.Setenv(key, tc.env)
			assert.Equal(t, tc.want, ParseBool(key, tc.def))
		})
	}
}

func TestParseFloat(t *testing.T) {
	const key = "GSTB_TEST_FLOAT"
	for name, tc := range map[string]struct {
		env  *string
		want float64
	}{
		"fraction": {ptr("0.25"), 0.25},
		"padded":   {ptr(" 1 "), 1},
		"garbage":  {ptr("half"), 0.5},
		"unset":    {nil, 0.5},
	} {
		t.Run(name, func(t *testing.T) {
			setOrUnset(t, key, tc.env)
			assert.Equal(t, tc.want, ParseFloat(key, 0.5))
		})
	}
}
