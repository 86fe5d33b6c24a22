// SPDX-License-Identifier: MIT

package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/metrics"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/resilience"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "flameeyes-paperless/paperless"

type request struct {
	method string
	url    *url.URL
	accept string
	body   []byte
}

func (r request) operation() string {
	return r.method + " " + r.url.Path
}

// getJSON fetches ref (relative to the API root) and decodes the body into out.
func (s *Session) getJSON(ctx context.Context, ref string, query url.Values, out any) error {
	u, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req := request{method: http.MethodGet, url: u, accept: s.versionAccept()}
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return decodeJSON(req, resp, out)
}

// sendJSON issues a POST or PATCH with in as JSON body and decodes the
// response into out when it is non-nil.
func (s *Session) sendJSON(ctx context.Context, method, ref string, in, out any) error {
	u, err := s.resolve(ref)
	if err != nil {
		return err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s body: %w", ref, err)
	}

	req := request{method: method, url: u, accept: s.versionAccept(), body: body}
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		drainAndClose(resp)
		return nil
	}
	return decodeJSON(req, resp, out)
}

func decodeJSON(req request, resp *http.Response, out any) error {
	defer drainAndClose(resp)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: req.operation(), Status: resp.StatusCode, Err: err}
	}
	return nil
}

// do sends req through the circuit breaker and returns a 2xx response. The
// caller owns the response body.
func (s *Session) do(ctx context.Context, req request) (*http.Response, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	var resp *http.Response
	err := s.breaker.Execute(func() error {
		var err error
		resp, err = s.doWithRetries(ctx, req)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: req.operation(), Err: err}
	}
	return resp, err
}

func (s *Session) doWithRetries(ctx context.Context, req request) (*http.Response, error) {
	tracer := telemetry.Tracer(tracerName)
	route, urlLabel := traceLabels(req.url)
	ctx, span := tracer.Start(ctx, "paperless.request", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String(telemetry.HTTPMethodKey, req.method),
		attribute.String(telemetry.HTTPRouteKey, route),
		attribute.String(telemetry.HTTPURLKey, urlLabel),
		attribute.Int(telemetry.PaperlessAPIVersionKey, s.apiVersion),
	)
	defer span.End()

	logger := log.FromContext(ctx)

	// Writes are not idempotent: a timed-out PATCH may still have been applied.
	maxAttempts := 1
	if req.method == http.MethodGet {
		maxAttempts = s.maxRetries + 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := s.attempt(ctx, tracer, req, route, urlLabel, attempt, attempt < maxAttempts)
		if err == nil {
			span.SetAttributes(telemetry.HTTPAttributes(req.method, route, urlLabel, resp.StatusCode)...)
			span.SetStatus(codes.Ok, "")
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == maxAttempts {
			break
		}

		wait := s.backoffFor(attempt - 1)
		ev := logger.Debug().
			Err(err).
			Str(log.FieldMethod, req.method).
			Str(log.FieldPath, route).
			Int(log.FieldAttempt, attempt)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status > 0 {
			ev = ev.Int(log.FieldStatus, apiErr.Status)
		}
		ev.Dur("backoff", wait).Msg("retrying paperless request")
		if err := sleepWithContext(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return nil, lastErr
}

func (s *Session) attempt(ctx context.Context, tracer trace.Tracer, req request, route, urlLabel string, attempt int, canRetry bool) (*http.Response, error) {
	attemptCtx, span := tracer.Start(ctx, "paperless.request.attempt", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.Int("attempt", attempt),
		attribute.Bool("retry", attempt > 1),
	)

	if err := s.limiter.Wait(attemptCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: req.operation(), Err: err}
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, req.url.String(), body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("build %s: %w", req.operation(), err)
	}
	s.applyHeaders(httpReq, req)
	otel.GetTextMapPropagator().Inject(attemptCtx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	span.SetAttributes(telemetry.HTTPAttributes(req.method, route, urlLabel, status)...)

	if err != nil {
		apiErr := &APIError{Sentinel: ErrUpstreamUnavailable, Operation: req.operation(), Err: err}
		metrics.RecordAPIAttempt(req.method, route, status, duration, err, canRetry && retryable(apiErr))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apiErr
	}

	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		metrics.RecordAPIAttempt(req.method, route, status, duration, nil, false)
		span.SetStatus(codes.Ok, "")
		return resp, nil
	}

	apiErr := &APIError{
		Sentinel:  sentinelForStatus(status),
		Operation: req.operation(),
		Status:    status,
		Body:      readErrorBody(resp),
	}
	metrics.RecordAPIAttempt(req.method, route, status, duration, nil, canRetry && retryable(apiErr))
	span.SetStatus(codes.Error, http.StatusText(status))
	return nil, apiErr
}

func (s *Session) applyHeaders(httpReq *http.Request, req request) {
	if s.userAgent != "" {
		httpReq.Header.Set("User-Agent", s.userAgent)
	}
	if req.accept != "" {
		httpReq.Header.Set("Accept", req.accept)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	switch {
	case s.token != "":
		httpReq.Header.Set("Authorization", "Token "+s.token)
	case s.username != "" || s.password != "":
		httpReq.SetBasicAuth(s.username, s.password)
	}
}

// retryable reports whether a failed attempt may succeed when repeated.
// Cancellation of the caller's context is checked separately by the loop.
func retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(apiErr.Sentinel, ErrUpstreamUnavailable) {
		return true
	}
	return apiErr.Status >= http.StatusInternalServerError
}

func (s *Session) backoffFor(attempt int) time.Duration {
	wait := s.backoff * time.Duration(1<<attempt)
	if wait > s.maxBackoff || wait <= 0 {
		wait = s.maxBackoff
	}
	jitter := time.Duration(s.randInt63n(int64(wait/5 + 1)))
	return wait + jitter
}

func (s *Session) randInt63n(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Int63n(n)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func readErrorBody(resp *http.Response) string {
	defer drainAndClose(resp)
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.TrimSpace(string(b))
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// traceLabels returns a low-cardinality route (ids replaced by {id}) and a
// URL label without query values.
func traceLabels(u *url.URL) (string, string) {
	route := u.Path
	if route == "" {
		route = "/"
	}
	for numericSegment.MatchString(route) {
		route = numericSegment.ReplaceAllString(route, "/{id}$1")
	}
	urlLabel := route
	if u.RawQuery != "" {
		urlLabel += "?"
	}
	return route, urlLabel
}
