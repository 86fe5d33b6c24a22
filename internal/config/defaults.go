// SPDX-License-Identifier: MIT

package config

import "time"

const (
	// DefaultPath is the configuration file looked up in the working directory.
	DefaultPath = "paperless-automation.toml"

	// DefaultJournalPath is the sqlite journal used when [journal] is not configured.
	DefaultJournalPath = "paperless-automation.db"

	// MaxHTTPRetries bounds [http] max_retries.
	MaxHTTPRetries = 10
)

// DefaultDateFormats are tried when a rule does not list its own date_formats.
var DefaultDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// DefaultWatchTasks are run by watch when [watch] tasks is empty.
var DefaultWatchTasks = []string{TaskSortScanned, TaskIdentifyAll}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:        Duration(30 * time.Second),
			MaxRetries:     2,
			Backoff:        Duration(200 * time.Millisecond),
			MaxBackoff:     Duration(2 * time.Second),
			RateLimit:      10,
			RateLimitBurst: 20,
		},
		Journal: JournalConfig{
			Path: DefaultJournalPath,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			SamplingRate: 1.0,
		},
		Watch: WatchConfig{
			Interval: Duration(15 * time.Minute),
		},
	}
}
