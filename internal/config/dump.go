// SPDX-License-Identifier: MIT

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const maskedValue = "***"

// Masked returns a copy of the configuration with credentials replaced.
func (c Config) Masked() Config {
	out := c
	if out.Password != "" {
		out.Password = maskedValue
	}
	if out.Token != "" {
		out.Token = maskedValue
	}
	return out
}

// Encode writes the configuration in the requested format (toml, yaml or json).
func (c Config) Encode(w io.Writer, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "toml":
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(c)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		b, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	default:
		return fmt.Errorf("%w: %q (use toml, yaml or json)", ErrUnsupportedFormat, format)
	}
}
