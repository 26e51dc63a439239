// SPDX-License-Identifier: MIT
package validate

import "strings"

// LogLevel is a logger verbosity accepted in configuration.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogLevels lists the accepted levels from most to least verbose.
var LogLevels = []LogLevel{LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	for _, known := range LogLevels {
		if l == known {
			return true
		}
	}
	return false
}

func (l LogLevel) String() string {
	return string(l)
}

// ParseLogLevel normalizes case and surrounding space before checking s.
func ParseLogLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if !level.IsValid() {
		return "", ErrInvalidLogLevel
	}
	return level, nil
}

var ErrInvalidLogLevel = &Error{
	Field:   "logLevel",
	Message: "invalid log level (must be: trace, debug, info, warn, error)",
}
