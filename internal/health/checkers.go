// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"
)

// PingChecker reports the result of a probe function, for example a
// lightweight request against the Paperless API.
type PingChecker struct {
	name    string
	timeout time.Duration
	ping    func(ctx context.Context) error
}

// NewPingChecker creates a checker that calls ping with the given timeout.
func NewPingChecker(name string, timeout time.Duration, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, timeout: timeout, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// LastRunChecker reports the outcome of the most recent automation run.
type LastRunChecker struct {
	name       string
	maxAge     time.Duration
	getLastRun func() (lastSuccess time.Time, lastErr error)
	now        func() time.Time
}

// NewLastRunChecker creates a checker that is unhealthy until a run succeeds
// and degrades when the last successful run is older than maxAge.
func NewLastRunChecker(name string, maxAge time.Duration, getLastRun func() (time.Time, error)) *LastRunChecker {
	return &LastRunChecker{name: name, maxAge: maxAge, getLastRun: getLastRun, now: time.Now}
}

func (c *LastRunChecker) Name() string { return c.name }

func (c *LastRunChecker) Check(_ context.Context) CheckResult {
	lastSuccess, lastErr := c.getLastRun()

	if lastErr != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Error:   lastErr.Error(),
			Message: "last run failed",
		}
	}
	if lastSuccess.IsZero() {
		return CheckResult{Status: StatusUnhealthy, Message: "no run completed yet"}
	}

	if age := c.now().Sub(lastSuccess); c.maxAge > 0 && age > c.maxAge {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last successful run %s ago", age.Truncate(time.Second)),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "last run successful"}
}
