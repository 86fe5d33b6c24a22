// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"time"
)

// Task names accepted by [watch] tasks.
const (
	TaskSortScanned = "sort-scanned"
	TaskIdentifyAll = "identify-all"
)

// Config is the effective automation configuration.
type Config struct {
	URL      string `toml:"url" yaml:"url" json:"url"`
	Username string `toml:"username,omitempty" yaml:"username,omitempty" json:"username,omitempty"`
	Password string `toml:"password,omitempty" yaml:"password,omitempty" json:"password,omitempty"`
	Token    string `toml:"token,omitempty" yaml:"token,omitempty" json:"token,omitempty"`

	ObjectOwner    string `toml:"object_owner" yaml:"object_owner" json:"object_owner"`
	AllAccessGroup string `toml:"all_access_group" yaml:"all_access_group" json:"all_access_group"`

	ScanSoftware []string `toml:"scan_software,omitempty" yaml:"scan_software,omitempty" json:"scan_software,omitempty"`

	PredefinedTags         PredefinedTags         `toml:"predefined_tags" yaml:"predefined_tags" json:"predefined_tags"`
	PredefinedStoragePaths PredefinedStoragePaths `toml:"predefined_storage_paths" yaml:"predefined_storage_paths" json:"predefined_storage_paths"`
	Aliases                Aliases                `toml:"aliases" yaml:"aliases" json:"aliases"`

	HTTP      HTTPConfig      `toml:"http" yaml:"http" json:"http"`
	Rules     []Rule          `toml:"rules,omitempty" yaml:"rules,omitempty" json:"rules,omitempty"`
	Journal   JournalConfig   `toml:"journal" yaml:"journal" json:"journal"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry" json:"telemetry"`
	Watch     WatchConfig     `toml:"watch" yaml:"watch" json:"watch"`

	// Path is the file the configuration was loaded from.
	Path string `toml:"-" yaml:"-" json:"-"`
}

// PredefinedTags names the tags the automation reads and writes.
type PredefinedTags struct {
	Identified string `toml:"identified,omitempty" yaml:"identified,omitempty" json:"identified,omitempty"`
	Inbox      string `toml:"inbox,omitempty" yaml:"inbox,omitempty" json:"inbox,omitempty"`
	Scanned    string `toml:"scanned,omitempty" yaml:"scanned,omitempty" json:"scanned,omitempty"`
}

// PredefinedStoragePaths names the storage paths used by sort-scanned.
type PredefinedStoragePaths struct {
	Unsorted string `toml:"unsorted,omitempty" yaml:"unsorted,omitempty" json:"unsorted,omitempty"`
	Scanned  string `toml:"scanned,omitempty" yaml:"scanned,omitempty" json:"scanned,omitempty"`
}

// Aliases rewrite identified names before they are applied to documents.
type Aliases struct {
	AccountHolder map[string]string `toml:"account_holder,omitempty" yaml:"account_holder,omitempty" json:"account_holder,omitempty"`
	Correspondent map[string]string `toml:"correspondent,omitempty" yaml:"correspondent,omitempty" json:"correspondent,omitempty"`
	DocumentType  map[string]string `toml:"document_type,omitempty" yaml:"document_type,omitempty" json:"document_type,omitempty"`
}

// HTTPConfig tunes the Paperless API client.
type HTTPConfig struct {
	Timeout        Duration `toml:"timeout" yaml:"timeout" json:"timeout"`
	MaxRetries     int      `toml:"max_retries" yaml:"max_retries" json:"max_retries"`
	Backoff        Duration `toml:"backoff" yaml:"backoff" json:"backoff"`
	MaxBackoff     Duration `toml:"max_backoff" yaml:"max_backoff" json:"max_backoff"`
	RateLimit      float64  `toml:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	RateLimitBurst int      `toml:"rate_limit_burst" yaml:"rate_limit_burst" json:"rate_limit_burst"`
	UserAgent      string   `toml:"user_agent,omitempty" yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// Rule describes how to recognise one kind of document from its text content.
type Rule struct {
	Name                string   `toml:"name" yaml:"name" json:"name"`
	ServiceName         string   `toml:"service_name" yaml:"service_name" json:"service_name"`
	DocumentType        string   `toml:"document_type" yaml:"document_type" json:"document_type"`
	Match               []string `toml:"match" yaml:"match" json:"match"`
	MimeTypes           []string `toml:"mime_types,omitempty" yaml:"mime_types,omitempty" json:"mime_types,omitempty"`
	Date                string   `toml:"date" yaml:"date" json:"date"`
	DateFormats         []string `toml:"date_formats,omitempty" yaml:"date_formats,omitempty" json:"date_formats,omitempty"`
	AccountHolder       string   `toml:"account_holder,omitempty" yaml:"account_holder,omitempty" json:"account_holder,omitempty"`
	FixedAccountHolders []string `toml:"fixed_account_holders,omitempty" yaml:"fixed_account_holders,omitempty" json:"fixed_account_holders,omitempty"`
	AccountNumber       string   `toml:"account_number,omitempty" yaml:"account_number,omitempty" json:"account_number,omitempty"`
	DocumentNumber      string   `toml:"document_number,omitempty" yaml:"document_number,omitempty" json:"document_number,omitempty"`
}

// JournalConfig locates the local change journal. An empty path disables it.
type JournalConfig struct {
	Path string `toml:"path" yaml:"path" json:"path"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `toml:"enabled" yaml:"enabled" json:"enabled"`
	Exporter     string  `toml:"exporter,omitempty" yaml:"exporter,omitempty" json:"exporter,omitempty"`
	Endpoint     string  `toml:"endpoint,omitempty" yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	SamplingRate float64 `toml:"sampling_rate" yaml:"sampling_rate" json:"sampling_rate"`
}

// WatchConfig controls the periodic automation loop.
type WatchConfig struct {
	Interval Duration `toml:"interval" yaml:"interval" json:"interval"`
	Listen   string   `toml:"listen,omitempty" yaml:"listen,omitempty" json:"listen,omitempty"`
	Tasks    []string `toml:"tasks,omitempty" yaml:"tasks,omitempty" json:"tasks,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("30s", "15m").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(parsed)
	return nil
}
