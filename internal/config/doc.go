// SPDX-License-Identifier: MIT

// Package config loads the automation configuration.
//
// The configuration is read from a TOML file (paperless-automation.toml by
// default) and may be overridden by PAPERLESS_* environment variables.
// Precedence is ENV > file > defaults.
package config
