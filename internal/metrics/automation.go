// SPDX-License-Identifier: MIT

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Document outcomes recorded by RecordDocument.
const (
	OutcomeUpdated = "updated"
	OutcomeDryRun  = "dry_run"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var (
	documentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_processed_total",
		Help:      "Documents considered by an automation task, by outcome",
	}, []string{"task", "outcome"})

	objectsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "objects_created_total",
		Help:      "Paperless objects created by the automation, by object type",
	}, []string{"object_type"})

	taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_runs_total",
		Help:      "Automation task runs by result",
	}, []string{"task", "result"}) // result=success|failure

	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Wall-clock duration of automation task runs",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2.0, 10),
	}, []string{"task"})

	taskLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "task_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run of each task",
	}, []string{"task"})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "config_reloads_total",
		Help:      "Configuration reloads performed by watch, by result",
	}, []string{"result"})
)

// RecordDocument counts one document decision of a task.
func RecordDocument(task, outcome string) {
	documentsProcessed.WithLabelValues(task, outcome).Inc()
}

// RecordObjectCreated counts a created tag, correspondent, document type or custom field.
func RecordObjectCreated(objectType string) {
	objectsCreated.WithLabelValues(objectType).Inc()
}

// RecordTaskRun records the result and duration of a task run.
func RecordTaskRun(task string, duration time.Duration, err error) {
	taskDuration.WithLabelValues(task).Observe(duration.Seconds())
	if err != nil {
		taskRuns.WithLabelValues(task, "failure").Inc()
		return
	}
	taskRuns.WithLabelValues(task, "success").Inc()
	taskLastSuccess.WithLabelValues(task).SetToCurrentTime()
}

// RecordConfigReload counts a configuration reload attempt.
func RecordConfigReload(err error) {
	if err != nil {
		configReloads.WithLabelValues("failure").Inc()
		return
	}
	configReloads.WithLabelValues("success").Inc()
}
