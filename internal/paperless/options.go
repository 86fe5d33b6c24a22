// SPDX-License-Identifier: MIT

package paperless

import (
	"net/http"
	"strings"
	"time"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/resilience"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/version"
	"golang.org/x/time/rate"
)

// Options configures a Session.
type Options struct {
	BaseURL  string
	Username string
	Password string
	Token    string

	// ObjectOwner and AllAccessGroup name the defaults applied to created objects.
	ObjectOwner    string
	AllAccessGroup string

	Timeout        time.Duration
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	UserAgent      string

	// Traced wraps the transport with OpenTelemetry instrumentation.
	Traced bool

	// HTTPClient replaces the client built from Timeout.
	HTTPClient *http.Client

	// Breaker is shared between sessions so that state survives reopening,
	// as the watch loop does every cycle. A fresh one is created when nil.
	Breaker *resilience.CircuitBreaker
}

const (
	defaultTimeout        = 30 * time.Second
	defaultBackoff        = 200 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
	defaultRateLimit      = 10
	defaultRateLimitBurst = 20

	breakerName      = "paperless"
	breakerThreshold = 5
	breakerReset     = 30 * time.Second
)

// OptionsFromConfig builds session options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:        cfg.URL,
		Username:       cfg.Username,
		Password:       cfg.Password,
		Token:          cfg.Token,
		ObjectOwner:    cfg.ObjectOwner,
		AllAccessGroup: cfg.AllAccessGroup,
		Timeout:        cfg.HTTP.Timeout.Std(),
		MaxRetries:     cfg.HTTP.MaxRetries,
		Backoff:        cfg.HTTP.Backoff.Std(),
		MaxBackoff:     cfg.HTTP.MaxBackoff.Std(),
		RateLimit:      rate.Limit(cfg.HTTP.RateLimit),
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		UserAgent:      cfg.HTTP.UserAgent,
		Traced:         cfg.Telemetry.Enabled,
	}
}

// NewBreaker returns the circuit breaker used for Paperless requests.
func NewBreaker() *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(breakerName, breakerThreshold, breakerReset,
		resilience.WithFailurePredicate(countsAsOutage))
}

func normalizeOptions(opts Options) Options {
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxBackoff < opts.Backoff {
		opts.MaxBackoff = opts.Backoff
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "flameeyes-paperless/" + version.Version
	}
	return opts
}
