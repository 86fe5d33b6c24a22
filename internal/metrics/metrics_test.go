// SPDX-License-Identifier: MIT

package metrics

import (
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		err    error
		status int
		want   string
	}{
		{errors.New("dial"), 0, "error"},
		{nil, 503, "5xx"},
		{nil, 404, "4xx"},
		{nil, 302, "3xx"},
		{nil, 200, "2xx"},
		{nil, 101, "1xx"},
		{nil, 0, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusClass(tt.err, tt.status))
	}
}

func TestRecordAPIAttempt(t *testing.T) {
	before := testutil.ToFloat64(apiRequestErrors.WithLabelValues("GET", "/api/tags/", "5xx"))
	retriesBefore := testutil.ToFloat64(apiRequestRetries.WithLabelValues("GET", "/api/tags/", "5xx"))

	RecordAPIAttempt("GET", "/api/tags/", 503, 20*time.Millisecond, nil, true)
	RecordAPIAttempt("GET", "/api/tags/", 200, 10*time.Millisecond, nil, false)

	assert.InDelta(t, before+1, testutil.ToFloat64(apiRequestErrors.WithLabelValues("GET", "/api/tags/", "5xx")), 0.001)
	assert.InDelta(t, retriesBefore+1, testutil.ToFloat64(apiRequestRetries.WithLabelValues("GET", "/api/tags/", "5xx")), 0.001)
	assert.Zero(t, testutil.ToFloat64(apiRequestErrors.WithLabelValues("GET", "/api/tags/", "2xx")))
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("paperless-test", "open")
	assert.InDelta(t, 1.0, testutil.ToFloat64(breakerState.WithLabelValues("paperless-test", "open")), 0.001)
	assert.Zero(t, testutil.ToFloat64(breakerState.WithLabelValues("paperless-test", "closed")))

	SetCircuitBreakerState("paperless-test", "closed")
	assert.Zero(t, testutil.ToFloat64(breakerState.WithLabelValues("paperless-test", "open")))
}

func TestRecordTaskRun(t *testing.T) {
	RecordTaskRun("sort-scanned-test", time.Second, nil)
	RecordTaskRun("sort-scanned-test", time.Second, errors.New("boom"))

	assert.InDelta(t, 1.0, testutil.ToFloat64(taskRuns.WithLabelValues("sort-scanned-test", "success")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(taskRuns.WithLabelValues("sort-scanned-test", "failure")), 0.001)
	assert.Greater(t, testutil.ToFloat64(taskLastSuccess.WithLabelValues("sort-scanned-test")), 0.0)
}

func TestRecordDocumentAndObjects(t *testing.T) {
	RecordDocument("identify-test", OutcomeSkipped)
	RecordObjectCreated("tags-test")
	RecordConfigReload(nil)

	assert.InDelta(t, 1.0, testutil.ToFloat64(documentsProcessed.WithLabelValues("identify-test", OutcomeSkipped)), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(objectsCreated.WithLabelValues("tags-test")), 0.001)
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "textfile_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	path := filepath.Join(t.TempDir(), "automation.prom")
	require.NoError(t, writeTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "textfile_test_total 3")

	err = writeTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"), reg)
	assert.Error(t, err)
}

func TestDefaultGathererExposesNamespace(t *testing.T) {
	RecordDocument("gather-test", OutcomeUpdated)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "paperless_automation_documents_processed_total" {
			found = mf
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, dto.MetricType_COUNTER, found.GetType())

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
}
