package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/yeardle/internal/config"
	"github.com/roach88/yeardle/internal/day"
	"github.com/roach88/yeardle/internal/derive"
	"github.com/roach88/yeardle/internal/game"
	"github.com/roach88/yeardle/internal/observability"
	"github.com/roach88/yeardle/internal/puzzle"
	"github.com/roach88/yeardle/internal/session"
	"github.com/roach88/yeardle/internal/sources"
	"github.com/roach88/yeardle/internal/store"
)

// app is everything one command invocation needs, built from config.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	clock   day.Clock
	ids     puzzle.IDGenerator
	store   *store.Store
	local   *session.Store
	service *game.Service
	metrics *observability.Collector
	out     *OutputFormatter
}

func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := observability.NewLogger(cfg.Environment, level)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create logger", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = day.System{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = puzzle.UUIDv7Generator{}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
	}
	st, err := store.Open(cfg.DatabasePath, store.WithClock(clock))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", zap.String("path", cfg.DatabasePath))

	local := session.NewFile(cfg.SessionPath)
	metrics := observability.NewCollector("yeardle")
	svc := game.New(game.Options{
		Board:   derive.NewBoard(),
		Remote:  st,
		Local:   local,
		Clock:   clock,
		Logger:  logger,
		Metrics: metrics,
		Limits:  cfg.Limits(),
		Breaker: cfg.Breaker,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		ids:     ids,
		store:   st,
		local:   local,
		service: svc,
		metrics: metrics,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

// close flushes this invocation's metrics, when configured, and releases
// the database.
func (a *app) close() {
	if a.cfg.MetricsPath != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsPath); err != nil {
			a.logger.Warn("metrics not exported", zap.String("path", a.cfg.MetricsPath), zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) identity() *sources.TokenIdentity {
	return sources.NewTokenIdentity(a.local.Token, a.cfg.JWT.Secret, a.cfg.JWT.Issuer).WithClock(a.clock)
}

func (a *app) readers() sources.Readers {
	return sources.Readers{
		Puzzles:  a.store,
		Identity: a.identity(),
		Progress: a.store,
		Session:  a.local,
	}
}

// load observes today's puzzle, or puzzle #number when number > 0.
func (a *app) load(ctx context.Context, number int) derive.GameState {
	sel := sources.Daily(day.Today(a.clock))
	if number > 0 {
		sel = sources.ByNumber(number)
	}
	return a.service.Load(ctx, a.readers(), sel)
}

// signedIn returns the persistence id of the current session, if any.
func (a *app) signedIn(ctx context.Context) (string, bool) {
	ident, err := a.identity().Identity(ctx)
	if err != nil {
		a.logger.Debug("session token rejected", zap.Error(err))
	}
	return ident.PersistenceID()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runWithApp opens the app, runs fn and closes it.
func runWithApp(opts *RootOptions, cmd *cobra.Command, fn func(context.Context, *app) error) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(commandContext(cmd), a)
}
