// SPDX-License-Identifier: MIT

// Package health reports liveness and readiness of the watch loop.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
)

// Status of a component or of the whole process.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so that the worst one wins.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	}
	return 0
}

// CheckResult is what a Checker reports.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the body served by both endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one component probed by the readiness endpoint.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs registered checkers.
type Manager struct {
	version string

	mu       sync.RWMutex
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds c; checkers run in parallel on every readiness probe.
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Health is the liveness view. Component checks only run when verbose is set.
func (m *Manager) Health(ctx context.Context, verbose bool) Response {
	if !verbose {
		return m.response(nil)
	}
	return m.response(m.runChecks(ctx))
}

// Ready runs every checker. Any unhealthy component makes the process not ready.
func (m *Manager) Ready(ctx context.Context) Response {
	return m.response(m.runChecks(ctx))
}

func (m *Manager) runChecks(ctx context.Context) map[string]CheckResult {
	m.mu.RLock()
	checkers := slices.Clone(m.checkers)
	m.mu.RUnlock()
	if len(checkers) == 0 {
		return nil
	}

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]CheckResult, len(checkers))
	for i, c := range checkers {
		out[c.Name()] = results[i]
	}
	return out
}

func (m *Manager) response(checks map[string]CheckResult) Response {
	resp := Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Timestamp: time.Now(),
		Checks:    checks,
	}
	for _, r := range checks {
		if r.Status.severity() > resp.Status.severity() {
			resp.Status = r.Status
		}
	}
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// ServeHealth answers liveness probes with 200. ?verbose=true adds the checks.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	m.write(w, r, "health", m.Health(r.Context(), verbose), http.StatusOK)
}

// ServeReady answers readiness probes, with 503 when not ready.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	m.write(w, r, "readiness", resp, code)
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, probe string, resp Response, code int) {
	logger := log.WithComponentFromContext(r.Context(), "health")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("probe", probe).Msg("encode health response")
		return
	}
	logger.Debug().
		Str("probe", probe).
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("health probe answered")
}
