// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/validate"
)

// Validate checks a Config using the centralized validation package.
func Validate(cfg *Config) error {
	v := validate.New()

	v.URL("url", cfg.URL, []string{"http", "https"})

	// Either token auth or basic auth must be fully configured.
	if strings.TrimSpace(cfg.Token) == "" &&
		(strings.TrimSpace(cfg.Username) == "" || cfg.Password == "") {
		v.AddError("auth", "either token or both username and password must be set", "")
	}

	v.NotEmpty("object_owner", cfg.ObjectOwner)
	v.NotEmpty("all_access_group", cfg.AllAccessGroup)

	for i, sw := range cfg.ScanSoftware {
		v.NotEmpty(fmt.Sprintf("scan_software[%d]", i), sw)
	}

	v.NonNegativeDuration("http.timeout", cfg.HTTP.Timeout.Std())
	v.Range("http.max_retries", cfg.HTTP.MaxRetries, 0, MaxHTTPRetries)
	v.NonNegativeDuration("http.backoff", cfg.HTTP.Backoff.Std())
	v.NonNegativeDuration("http.max_backoff", cfg.HTTP.MaxBackoff.Std())
	if cfg.HTTP.RateLimit < 0 {
		v.AddError("http.rate_limit", "rate limit cannot be negative", cfg.HTTP.RateLimit)
	}
	v.NonNegative("http.rate_limit_burst", cfg.HTTP.RateLimitBurst)

	validateRules(v, cfg.Rules)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.sampling_rate", "must be between 0.0 and 1.0", cfg.Telemetry.SamplingRate)
		}
	}

	if cfg.Watch.Interval.Std() <= 0 {
		v.AddError("watch.interval", "interval must be positive", cfg.Watch.Interval.String())
	}
	for i, task := range cfg.Watch.Tasks {
		v.OneOf(fmt.Sprintf("watch.tasks[%d]", i), task, []string{TaskSortScanned, TaskIdentifyAll})
	}

	return v.Err()
}

func validateRules(v *validate.Validator, rules []Rule) {
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		field := fmt.Sprintf("rules[%d]", i)
		v.NotEmpty(field+".name", r.Name)
		if _, dup := seen[r.Name]; dup && r.Name != "" {
			v.AddError(field+".name", fmt.Sprintf("duplicate rule name %q", r.Name), r.Name)
		}
		seen[r.Name] = struct{}{}

		v.NotEmpty(field+".service_name", r.ServiceName)
		v.NotEmpty(field+".document_type", r.DocumentType)

		if len(r.Match) == 0 {
			v.AddError(field+".match", "at least one match expression is required", "")
		}
		for j, m := range r.Match {
			v.Regexp(fmt.Sprintf("%s.match[%d]", field, j), m)
		}

		v.Regexp(field+".date", r.Date, "date")
		for j, layout := range r.DateFormats {
			v.NotEmpty(fmt.Sprintf("%s.date_formats[%d]", field, j), layout)
		}

		if r.AccountHolder != "" {
			v.Regexp(field+".account_holder", r.AccountHolder, "holder")
		}
		if r.AccountNumber != "" {
			v.Regexp(field+".account_number", r.AccountNumber, "value")
		}
		if r.DocumentNumber != "" {
			v.Regexp(field+".document_number", r.DocumentNumber, "value")
		}
	}
}
