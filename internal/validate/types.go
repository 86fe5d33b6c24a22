// SPDX-License-Identifier: MIT

package validate

import "strings"

// LogLevel is a verbosity accepted by -v/--verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelAliases = map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}

// ErrInvalidLogLevel is returned by ParseLogLevel.
var ErrInvalidLogLevel = &Error{
	Field:   "verbosity",
	Message: "invalid log level (must be: debug, info, warn, error)",
}

// IsValid reports whether l is one of the canonical levels.
func (l LogLevel) IsValid() bool {
	canonical, ok := logLevelAliases[string(l)]
	return ok && canonical == l
}

func (l LogLevel) String() string { return string(l) }

// ParseLogLevel accepts a level name in any case. "warning" is read as warn.
func ParseLogLevel(s string) (LogLevel, error) {
	level, ok := logLevelAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", ErrInvalidLogLevel
	}
	return level, nil
}
