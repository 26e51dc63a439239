// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/gstbackend/internal/log"
)

// lookupEnv returns the parsed value of key, or def when the variable is
// unset, empty or unparsable. The chosen source is logged at debug level.
func lookupEnv[T any](key string, def T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		logger.Debug().Str("key", key).Interface("default", def).Str("source", "default").Msg("using default value")
		return def
	}
	v, err := parse(raw)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Str("value", raw).Interface("default", def).
			Msg("ignoring invalid environment variable")
		return def
	}
	logger.Debug().Str("key", key).Interface("value", v).Str("source", "environment").Msg("using environment variable")
	return v
}

// ParseString reads key, falling back to def when unset or empty.
func ParseString(key, def string) string {
	return lookupEnv(key, def, func(s string) (string, error) { return s, nil })
}

// ParseDuration reads key in time.ParseDuration syntax ("250ms", "2m").
func ParseDuration(key string, def time.Duration) time.Duration {
	return lookupEnv(key, def, time.ParseDuration)
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, def bool) bool {
	return lookupEnv(key, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("not a boolean: %q", s)
	})
}

// ParseFloat reads key as a decimal number.
func ParseFloat(key string, def float64) float64 {
	return lookupEnv(key, def, func(s string) (float64, error) {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	})
}
