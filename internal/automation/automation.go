// SPDX-License-Identifier: MIT

// Package automation implements the housekeeping tasks run against a
// Paperless-ngx instance: setup normalisation, document identification and
// sorting of scanned documents.
package automation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/identify"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/journal"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/telemetry"
)

const tracerName = "flameeyes-paperless/automation"

// Task names, used for logging, metrics and the journal.
const (
	TaskEnsureSetup = "ensure-setup"
	TaskIdentify    = "identify"
	TaskIdentifyAll = config.TaskIdentifyAll
	TaskSortScanned = config.TaskSortScanned
	TaskDownload    = "download"
)

// Options are the flags shared by every task.
type Options struct {
	// Execute applies changes. Without it tasks only log what they would do.
	Execute bool
}

// UsageError reports an invalid combination of flags and configuration.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// Runner runs tasks against one session.
type Runner struct {
	session *paperless.Session
	cfg     *config.Config
	engine  *identify.Engine
	journal *journal.Journal
	opts    Options

	// ensureMu serialises lookup-or-create of correspondents and document
	// types when documents are identified concurrently.
	ensureMu sync.Mutex
}

// NewRunner compiles the identification rules of cfg. j may be nil.
func NewRunner(s *paperless.Session, cfg *config.Config, j *journal.Journal, opts Options) (*Runner, error) {
	engine, err := identify.NewEngine(cfg.Rules)
	if err != nil {
		return nil, err
	}
	return &Runner{session: s, cfg: cfg, engine: engine, journal: j, opts: opts}, nil
}

// Summary counts the documents a task looked at.
type Summary struct {
	Considered int
	Updated    int
	DryRun     int
	Skipped    int
	Failed     int
}

func (r *Runner) logger(ctx context.Context) zerolog.Logger {
	return log.WithComponentFromContext(ctx, "automation").With().
		Bool(log.FieldExecute, r.opts.Execute).
		Logger()
}

// perDocument runs fn inside a span describing doc and tags the span with
// the outcome fn reports.
func perDocument(ctx context.Context, task string, doc paperless.Document, fn func(context.Context) (string, error)) (string, error) {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, task+".document",
		trace.WithAttributes(telemetry.DocumentAttributes(doc.ID, doc.Title)...))
	defer span.End()

	outcome, err := fn(ctx)
	span.SetAttributes(attribute.String(telemetry.TaskOutcomeKey, outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return outcome, err
}

// record writes an applied change to the journal. Journal failures are
// logged and do not fail the task.
func (r *Runner) record(ctx context.Context, objType paperless.ObjectType, id int, summary string) {
	err := r.journal.Record(ctx, journal.Change{
		ObjectType: string(objType),
		ObjectID:   id,
		Summary:    summary,
	})
	if err != nil {
		l := r.logger(ctx)
		l.Warn().Err(err).Str(log.FieldObjectType, string(objType)).Int(log.FieldObjectID, id).Msg("could not record change")
	}
}
