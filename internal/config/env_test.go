// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		envSet       bool
		want         string
	}{
		{"environment variable set", "TEST_STRING", "default", "from-env", true, "from-env"},
		{"environment variable not set", "TEST_STRING_UNSET", "default", "", false, "default"},
		{"environment variable empty string", "TEST_STRING_EMPTY", "default", "", true, "default"},
		{"sensitive variable (password)", "TEST_PASSWORD", "default", "secret123", true, "secret123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, ParseString(tt.key, tt.defaultValue))
		})
	}
}

func TestParseString_MasksSensitiveValues(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	t.Setenv("TEST_API_TOKEN", "super-secret")
	got := parseStringWithLogger(logger, "TEST_API_TOKEN", "")

	assert.Equal(t, "super-secret", got)
	assert.NotContains(t, buf.String(), "super-secret")
	assert.Contains(t, buf.String(), `"sensitive":true`)

	buf.Reset()
	t.Setenv("TEST_API_URL", "http://paperless.local")
	parseStringWithLogger(logger, "TEST_API_URL", "")
	assert.Contains(t, buf.String(), `"value":"http://paperless.local"`)
}

func TestParseInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, ParseInt("TEST_INT", 7))

	t.Setenv("TEST_INT", "forty-two")
	assert.Equal(t, 7, ParseInt("TEST_INT", 7))

	assert.Equal(t, 7, ParseInt("TEST_INT_UNSET", 7))
}

func TestParseDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "1m30s")
	assert.Equal(t, 90*time.Second, ParseDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Second, ParseDuration("TEST_DURATION", time.Second))
}

func TestParseFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", " 0.25 ")
	assert.InDelta(t, 0.25, ParseFloat("TEST_FLOAT", 1), 0.0001)

	t.Setenv("TEST_FLOAT", "NaN-ish")
	assert.InDelta(t, 1.0, ParseFloat("TEST_FLOAT", 1), 0.0001)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))

	t.Setenv(EnvConfigPath, "/etc/paperless/automation.toml")
	assert.Equal(t, "/etc/paperless/automation.toml", ResolvePath("  "))
	assert.Equal(t, "custom.toml", ResolvePath("custom.toml"))
}
