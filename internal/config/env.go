// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
)

// Environment variables recognised by the loader.
const (
	EnvConfigPath = "PAPERLESS_AUTOMATION_CONFIG"
	EnvURL        = "PAPERLESS_URL"
	EnvUsername   = "PAPERLESS_USERNAME"
	EnvPassword   = "PAPERLESS_PASSWORD"
	EnvToken      = "PAPERLESS_TOKEN"
	EnvTimeout    = "PAPERLESS_TIMEOUT"
	EnvMaxRetries = "PAPERLESS_MAX_RETRIES"
	EnvRateLimit  = "PAPERLESS_RATE_LIMIT"
)

// Values of variables whose name contains one of these are never logged.
var sensitiveMarkers = []string{"token", "password"}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, m := range sensitiveMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ParseString returns the value of key, or defaultValue when it is unset or
// empty.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitiveKey(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", value)
	}
	ev.Msg("using environment variable")
	return value
}

// envValue parses key with parse. Unset or empty variables yield
// defaultValue; values that do not parse are logged and ignored.
func envValue[T any](key string, defaultValue T, kind string, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	logger := log.WithComponent("config")
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", raw).
			Interface("default", defaultValue).
			Msgf("invalid %s in environment variable, using default", kind)
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Interface("value", v).
		Str("source", "environment").
		Msg("using environment variable")
	return v
}

// ParseInt reads an integer from key.
func ParseInt(key string, defaultValue int) int {
	return envValue(key, defaultValue, "integer", strconv.Atoi)
}

// ParseDuration reads a Go duration ("5s", "1m30s") from key.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return envValue(key, defaultValue, "duration", time.ParseDuration)
}

// ParseFloat reads a float from key.
func ParseFloat(key string, defaultValue float64) float64 {
	return envValue(key, defaultValue, "float", func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ResolvePath picks the configuration file: explicit flag value, then
// PAPERLESS_AUTOMATION_CONFIG, then DefaultPath.
func ResolvePath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return ParseString(EnvConfigPath, DefaultPath)
}
