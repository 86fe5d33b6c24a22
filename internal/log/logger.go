// SPDX-License-Identifier: MIT

// Package log wraps zerolog with a process-wide base logger.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultService = "flameeyes-paperless"

// Config selects level, format and destination of the base logger.
type Config struct {
	Level   string    // falls back to LOG_LEVEL, then info
	Format  string    // "console" (default) or "json"
	Output  io.Writer // defaults to os.Stderr
	Service string
	Version string
}

var (
	mu   sync.RWMutex
	base zerolog.Logger
)

func init() {
	Configure(Config{})
}

// Configure replaces the base logger. The CLI calls it again once flags
// are parsed.
func Configure(cfg Config) {
	zerolog.SetGlobalLevel(level(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	service := cfg.Service
	if service == "" {
		service = defaultService
	}
	zctx := zerolog.New(writer(cfg)).With().Timestamp().Str(FieldService, service)
	if cfg.Version != "" {
		zctx = zctx.Str(FieldVersion, cfg.Version)
	}

	mu.Lock()
	base = zctx.Logger()
	mu.Unlock()
}

// level resolves the flag value, then LOG_LEVEL. Unparseable values mean info.
func level(flag string) zerolog.Level {
	for _, v := range []string{flag, os.Getenv("LOG_LEVEL")} {
		if v == "" {
			continue
		}
		if l, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			return l
		}
		break
	}
	return zerolog.InfoLevel
}

func writer(cfg Config) io.Writer {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "json") {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
}

// Base returns the current base logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child of Base tagged with component.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}
