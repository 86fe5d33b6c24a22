// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/automation"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/journal"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/metrics"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/telemetry"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/validate"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/version"
)

const (
	serviceName = "flameeyes-paperless"
	tracerName  = "flameeyes-paperless/cli"

	telemetryShutdownTimeout = 5 * time.Second
)

// cli holds the global flags and the state shared by subcommands of one
// invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	execute     bool
	verbosity   string
	logFormat   string
	configPath  string
	metricsFile string

	cfg *config.Config
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdout: stdout, stderr: stderr}
}

func (a *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Automate housekeeping of a Paperless-ngx instance",
		Long: "Automate housekeeping of a Paperless-ngx instance.\n\n" +
			"Commands that change documents or objects only report what they would\n" +
			"do unless --execute is given.",
		Args:              cobra.ArbitraryArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &automation.UsageError{Msg: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.BoolVar(&a.execute, "execute", false, "apply changes (default is a dry run)")
	flags.StringVarP(&a.verbosity, "verbosity", "v", "info", "log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "console", "log format: console or json")
	flags.StringVar(&a.configPath, "config", "", "configuration file (default $"+config.EnvConfigPath+" or ./"+config.DefaultPath+")")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when the command completes")

	root.AddCommand(
		a.ensureSetupCommand(),
		a.identifyCommand(),
		a.identifyAllCommand(),
		a.sortScannedCommand(),
		a.downloadCommand(),
		a.configCommand(),
		a.historyCommand(),
		a.watchCommand(),
		a.versionCommand(),
	)
	return root
}

// preRun configures logging and tags the invocation with a run id.
func (a *cli) preRun(cmd *cobra.Command, _ []string) error {
	level := ""
	if f := cmd.Flag("verbosity"); f != nil && f.Changed {
		parsed, err := validate.ParseLogLevel(a.verbosity)
		if err != nil {
			return usageErrorf("invalid value %q for --verbosity: must be debug, info, warn or error", a.verbosity)
		}
		level = parsed.String()
	}
	format := strings.ToLower(strings.TrimSpace(a.logFormat))
	if format != "console" && format != "json" {
		return usageErrorf("invalid value %q for --log-format: must be console or json", a.logFormat)
	}

	log.Configure(log.Config{
		Level:   level,
		Format:  format,
		Output:  a.stderr,
		Service: serviceName,
		Version: version.Get().Version,
	})

	ctx := log.ContextWithRunID(cmd.Context(), log.NewRunID())
	cmd.SetContext(ctx)
	return nil
}

// loadConfig loads the configuration once per invocation.
func (a *cli) loadConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	path := config.ResolvePath(a.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("configuration error in %s: %w", path, err)
	}
	logger := log.WithComponent("cli")
	logger.Debug().
		Str(log.FieldEvent, "config.loaded").
		Str(log.FieldPath, path).
		Msg("loaded configuration from file")
	a.cfg = cfg
	return cfg, nil
}

// startTelemetry installs the tracer provider described by cfg and returns
// its shutdown function.
func (a *cli) startTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version.Get().Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("start telemetry: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger := log.WithComponent("telemetry")
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}, nil
}

// runTask connects to Paperless, opens the journal and runs fn as task.
func (a *cli) runTask(cmd *cobra.Command, task string, fn func(context.Context, *automation.Runner) error) error {
	ctx := log.ContextWithTask(cmd.Context(), task)
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	shutdown, err := a.startTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	s, err := paperless.Open(ctx, paperless.OptionsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("connect to paperless: %w", err)
	}
	defer func() { _ = s.Close() }()

	j, err := journal.Open(ctx, cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	runner, err := automation.NewRunner(s, cfg, j, automation.Options{Execute: a.execute})
	if err != nil {
		return err
	}
	return timeTask(ctx, task, a.execute, func(ctx context.Context) error {
		return fn(ctx, runner)
	})
}

// timeTask wraps fn in a span and records its duration and outcome.
func timeTask(ctx context.Context, task string, execute bool, fn func(context.Context) error) error {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, task,
		trace.WithAttributes(telemetry.TaskAttributes(task, log.RunIDFromContext(ctx), execute)...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordTaskRun(task, time.Since(start), err)
	if err == nil {
		span.SetAttributes(attribute.String(telemetry.TaskOutcomeKey, "success"))
		return nil
	}
	span.SetAttributes(attribute.String(telemetry.TaskOutcomeKey, "failure"))
	span.SetAttributes(telemetry.ErrorAttributes(err, errorType(err))...)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// errorType classifies a task failure for span attributes.
func errorType(err error) string {
	var usage *automation.UsageError
	var api *paperless.APIError
	switch {
	case errors.As(err, &usage):
		return "usage"
	case errors.As(err, &api):
		return "paperless"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}

func logSummary(ctx context.Context, task string, s automation.Summary) {
	logger := log.WithComponentFromContext(ctx, "cli")
	logger.Info().
		Str(log.FieldTask, task).
		Int("considered", s.Considered).
		Int("updated", s.Updated).
		Int("dry_run", s.DryRun).
		Int("skipped", s.Skipped).
		Int("failed", s.Failed).
		Msg("task finished")
}

func (a *cli) writeMetrics() error {
	if a.metricsFile == "" {
		return nil
	}
	return metrics.WriteTextfile(a.metricsFile)
}

