// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the backend daemon configuration.
//
// Precedence is ENV > YAML file > defaults. The file is parsed strictly:
// unknown keys and trailing documents are rejected. ConfigHolder keeps the
// active AppConfig and reloads it when the file changes.
package config
