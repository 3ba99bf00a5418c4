package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/Podjisin/saresari-pos/internal/config"
	"github.com/Podjisin/saresari-pos/internal/ledger"
	"github.com/Podjisin/saresari-pos/internal/metrics"
	"github.com/Podjisin/saresari-pos/internal/settings"
	"github.com/Podjisin/saresari-pos/internal/store"
)

// app is the composition root shared by every command: one connection
// manager, the ledger service and the settings store on top of it.
type app struct {
	conns    *store.Manager
	ledger   *ledger.Service
	settings *settings.Store
	out      *OutputFormatter
	logger   *slog.Logger
	now      func() time.Time
	registry *prometheus.Registry
	opts     *RootOptions
}

// openApp loads configuration, configures logging and opens the database.
// The returned close function must be called when the command finishes.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg, opts)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid log configuration", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	opIDs := opts.OpIDs
	if opIDs == nil {
		opIDs = ledger.UUIDv7Generator{}
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	conns := store.NewManager(cfg.Database.Path,
		store.WithConfig(cfg.Store()),
		store.WithLogger(logger),
		store.WithMetrics(m),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Debug("opening database", "path", cfg.Database.Path)
	if _, err := conns.Acquire(ctx); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	a := &app{
		conns: conns,
		ledger: ledger.New(conns,
			ledger.WithClock(now),
			ledger.WithLogger(logger),
			ledger.WithMetrics(m),
			ledger.WithOpIDs(opIDs),
		),
		settings: settings.New(conns,
			settings.WithClock(now),
			settings.WithLogger(logger),
			settings.WithMetrics(m),
			settings.WithWriteTimeout(cfg.Settings.WriteTimeout),
		),
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
		logger:   logger,
		now:      now,
		registry: registry,
		opts:     opts,
	}

	closeFn := func() {
		a.settings.Close()
		if opts.Metrics {
			if err := dumpMetrics(cmd.ErrOrStderr(), registry); err != nil {
				logger.Warn("metrics dump failed", "error", err)
			}
		}
		if err := conns.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}
	return a, closeFn, nil
}

// withApp adapts a command body that needs the opened application.
func withApp(opts *RootOptions, run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		defer closeFn()
		return run(cmd.Context(), a, args)
	}
}

func newLogger(w io.Writer, cfg config.Config, opts *RootOptions) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}
	return slog.New(handler), nil
}

func dumpMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
