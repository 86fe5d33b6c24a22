// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/automation"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/health"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/journal"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/resilience"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/version"
)

const (
	taskWatch = "watch"

	pingTimeout       = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second

	// Requests per minute and client address on the status endpoints.
	statusRateLimit = 120
)

var errNotConnected = errors.New("no Paperless session yet")

type watchOptions struct {
	interval time.Duration
	listen   string
	once     bool
}

func (a *cli) watchCommand() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   taskWatch,
		Short: "Run the configured tasks periodically",
		Long: "Run the tasks listed in [watch] tasks every interval. The configuration file\n" +
			"is reloaded when it changes. With --listen (or [watch] listen) the health,\n" +
			"readiness and metrics endpoints are served.",
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.interval < 0 {
				return usageErrorf("--interval must not be negative")
			}
			if !cmd.Flags().Changed("interval") {
				opts.interval = 0
			}
			return a.runWatch(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.DurationVar(&opts.interval, "interval", config.Defaults().Watch.Interval.Std(), "time between runs (overrides [watch] interval)")
	flags.StringVar(&opts.listen, "listen", "", "address for /healthz, /readyz and /metrics (overrides [watch] listen)")
	flags.BoolVar(&opts.once, "once", false, "run the tasks once and exit")
	return cmd
}

func (a *cli) runWatch(ctx context.Context, opts watchOptions) error {
	ctx = log.ContextWithTask(ctx, taskWatch)
	logger := log.WithComponentFromContext(ctx, taskWatch)

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	shutdown, err := a.startTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	j, err := journal.Open(ctx, cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	holder := config.NewHolder(cfg, cfg.Path)
	if !opts.once {
		if err := holder.StartWatcher(ctx); err != nil {
			logger.Warn().Err(err).Msg("config file will not be reloaded")
		}
	}

	w := &watcher{
		execute: a.execute,
		holder:  holder,
		breaker: paperless.NewBreaker(),
		journal: j,
		logger:  logger,
	}
	defer w.close()

	listen := opts.listen
	if listen == "" {
		listen = cfg.Watch.Listen
	}
	serverErr := make(chan error, 1)
	if listen != "" && !opts.once {
		srv := &http.Server{
			Addr:              listen,
			Handler:           newStatusRouter(w.healthManager(opts.interval)),
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go func() {
			logger.Info().Str("addr", listen).Msg("status server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("status server: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	for {
		err := w.runCycle(ctx)
		if opts.once {
			return err
		}
		if err != nil {
			logger.Error().Err(err).Str(log.FieldEvent, "watch.cycle_failed").Msg("automation run failed")
		}

		interval := w.interval(opts.interval)
		logger.Debug().Dur("interval", interval).Msg("waiting for next run")
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info().Msg("shutdown signal received")
			return nil
		case err := <-serverErr:
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// watcher runs automation cycles with the current configuration and keeps
// the state reported by the status endpoints.
type watcher struct {
	execute bool
	holder  *config.Holder
	breaker *resilience.CircuitBreaker
	journal *journal.Journal
	logger  zerolog.Logger

	mu          sync.Mutex
	session     *paperless.Session
	sessionCfg  *config.Config
	lastSuccess time.Time
	lastErr     error
}

func (w *watcher) interval(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if d := w.holder.Get().Watch.Interval.Std(); d > 0 {
		return d
	}
	return config.Defaults().Watch.Interval.Std()
}

// currentSession returns a session for the current configuration, replacing
// the previous one after a reload. Only the loop goroutine calls it.
func (w *watcher) currentSession(ctx context.Context) (*paperless.Session, *config.Config, error) {
	cfg := w.holder.Get()

	w.mu.Lock()
	s, sCfg := w.session, w.sessionCfg
	w.mu.Unlock()
	if s != nil && sCfg == cfg {
		return s, cfg, nil
	}

	opts := paperless.OptionsFromConfig(cfg)
	opts.Breaker = w.breaker
	next, err := paperless.Open(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to paperless: %w", err)
	}

	w.mu.Lock()
	w.session, w.sessionCfg = next, cfg
	w.mu.Unlock()
	if s != nil {
		_ = s.Close()
		w.logger.Info().Str(log.FieldBaseURL, next.BaseURL()).Msg("reconnected with reloaded configuration")
	}
	return next, cfg, nil
}

// runCycle runs every configured task once. Task failures do not stop the
// remaining tasks.
func (w *watcher) runCycle(ctx context.Context) error {
	ctx = log.ContextWithRunID(ctx, log.NewRunID())

	err := w.cycle(ctx)
	w.mu.Lock()
	w.lastErr = err
	if err == nil {
		w.lastSuccess = time.Now()
	}
	w.mu.Unlock()
	return err
}

func (w *watcher) cycle(ctx context.Context) error {
	s, cfg, err := w.currentSession(ctx)
	if err != nil {
		return err
	}
	runner, err := automation.NewRunner(s, cfg, w.journal, automation.Options{Execute: w.execute})
	if err != nil {
		return err
	}

	var errs []error
	for _, task := range cfg.Watch.Tasks {
		if ctx.Err() != nil {
			break
		}
		tctx := log.ContextWithTask(ctx, task)
		err := timeTask(tctx, task, w.execute, func(ctx context.Context) error {
			return runWatchTask(ctx, runner, task)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", task, err))
		}
	}
	return errors.Join(errs...)
}

func runWatchTask(ctx context.Context, r *automation.Runner, task string) error {
	var (
		summary automation.Summary
		err     error
	)
	switch task {
	case config.TaskSortScanned:
		summary, err = r.SortScanned(ctx, true)
	case config.TaskIdentifyAll:
		summary, err = r.IdentifyAll(ctx, automation.DefaultIdentifyFilter())
	default:
		return fmt.Errorf("unknown watch task %q", task)
	}
	logSummary(ctx, task, summary)
	return err
}

func (w *watcher) ping(ctx context.Context) error {
	w.mu.Lock()
	s := w.session
	w.mu.Unlock()
	if s == nil {
		return errNotConnected
	}
	return s.Ping(ctx)
}

func (w *watcher) lastCycleErr(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *watcher) lastRun() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSuccess, nil
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session != nil {
		_ = w.session.Close()
		w.session = nil
	}
}

func (w *watcher) healthManager(override time.Duration) *health.Manager {
	m := health.NewManager(version.Get().Version)
	m.RegisterChecker(health.NewPingChecker("paperless", pingTimeout, w.ping))
	m.RegisterChecker(health.NewPingChecker("last_run", 0, w.lastCycleErr))
	m.RegisterChecker(health.NewLastRunChecker("freshness", 3*w.interval(override), w.lastRun))
	if w.journal != nil {
		m.RegisterChecker(health.NewPingChecker("journal", pingTimeout, w.journal.Check))
	}
	return m
}

func newStatusRouter(m *health.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(httprate.Limit(
		statusRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	))
	r.Get("/healthz", m.ServeHealth)
	r.Get("/readyz", m.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	return otelhttp.NewHandler(r, "status")
}
