// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load is a shorthand for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal Duration) Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return Duration(ParseDuration(key, defaultVal.Std()))
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The file is parsed strictly, then the environment is applied, then the
// result is validated.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		cfg.Path = l.configPath
	}

	l.mergeEnv(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFile decodes a TOML file on top of cfg with STRICT parsing.
// Unknown fields cause an error to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".toml" {
		return fmt.Errorf("unsupported config format: %s (only TOML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: %s", ErrUnknownConfigField, strings.TrimSpace(strict.String()))
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return fmt.Errorf("parse %s:%d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.URL = l.envString(EnvURL, cfg.URL)
	cfg.Username = l.envString(EnvUsername, cfg.Username)
	cfg.Password = l.envString(EnvPassword, cfg.Password)
	cfg.Token = l.envString(EnvToken, cfg.Token)
	cfg.HTTP.Timeout = l.envDuration(EnvTimeout, cfg.HTTP.Timeout)
	cfg.HTTP.MaxRetries = l.envInt(EnvMaxRetries, cfg.HTTP.MaxRetries)
	cfg.HTTP.RateLimit = l.envFloat(EnvRateLimit, cfg.HTTP.RateLimit)
}

// normalize fills derived defaults that cannot be pre-seeded before decoding.
func normalize(cfg *Config) {
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if len(cfg.Watch.Tasks) == 0 {
		cfg.Watch.Tasks = append([]string(nil), DefaultWatchTasks...)
	}
	for i := range cfg.Rules {
		if len(cfg.Rules[i].DateFormats) == 0 {
			cfg.Rules[i].DateFormats = append([]string(nil), DefaultDateFormats...)
		}
	}
}
