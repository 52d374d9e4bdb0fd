package helpers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/bigsql/pgadmin4/internal/config"
	"github.com/bigsql/pgadmin4/internal/database"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/logging"
	"github.com/bigsql/pgadmin4/internal/plprofiler"
	"github.com/bigsql/pgadmin4/internal/profiler"
	"github.com/bigsql/pgadmin4/internal/render"
	"github.com/bigsql/pgadmin4/internal/reportstore"
	"github.com/bigsql/pgadmin4/internal/retry"
	"github.com/bigsql/pgadmin4/internal/session"
)

// GlobalFlags are the persistent flags of the root command.
type GlobalFlags struct {
	ConfigDir string
	LogLevel  string
	DSN       string
}

var globals GlobalFlags

// BindGlobalFlags registers the persistent flags on flags.
func BindGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&globals.ConfigDir, "config", "", "Configuration directory (default $"+config.EnvConfigDir+" or ~/.pgprof)")
	flags.StringVar(&globals.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&globals.DSN, "dsn", "", "PostgreSQL connection string (overrides postgres.dsn)")
}

// Loader returns the config loader selected by --config.
func Loader() *config.Loader {
	if globals.ConfigDir != "" {
		return config.NewLoaderAt(globals.ConfigDir)
	}
	return config.NewLoader()
}

// LoadConfig loads the configuration with flag overrides applied.
func LoadConfig() (*config.Config, error) {
	cfg, err := Loader().Load()
	if err != nil {
		return nil, err
	}
	if globals.LogLevel != "" {
		cfg.Logging.Level = globals.LogLevel
	}
	if globals.DSN != "" {
		cfg.Postgres.DSN = globals.DSN
	}
	return cfg, nil
}

// App holds the components a command needs. Fields a command did not ask
// for are nil.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	DB    *database.Database
	Store *reportstore.Store

	Pool     *plprofiler.Pool
	Sessions *session.Manager
	Runner   *profiler.Runner

	redis redis.UniversalClient
}

// OpenStore opens the report index and store only.
func OpenStore() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: logging.New(logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty, Output: os.Stderr}),
	}

	renderer, err := render.New(cfg.Storage.Format)
	if err != nil {
		return nil, err
	}

	app.DB, err = database.New(cfg.IndexPath(), app.Logger)
	if err != nil {
		return nil, err
	}

	app.Store, err = reportstore.New(app.DB, cfg.Storage.Dir, renderer, app.Logger)
	if err != nil {
		_ = app.DB.Close()
		return nil, err
	}
	return app, nil
}

// Open opens everything a profiling run needs: the store, a PostgreSQL pool,
// the session store and the runner.
func Open(ctx context.Context) (*App, error) {
	app, err := OpenStore()
	if err != nil {
		return nil, err
	}
	if err := app.openProfiler(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (a *App) openProfiler(ctx context.Context) error {
	cfg := a.Config
	if cfg.Postgres.DSN == "" {
		return pgerrors.Errorf(pgerrors.KindConfiguration, "cli.Open",
			"no PostgreSQL connection configured, set postgres.dsn, $PGPROF_DSN or --dsn")
	}

	pool, err := plprofiler.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, a.Logger)
	if err != nil {
		return err
	}
	a.Pool = pool

	store, err := a.sessionStore(ctx)
	if err != nil {
		return err
	}
	a.Sessions = session.NewManager(store, pool, a.Logger)

	a.Runner = profiler.New(a.Sessions, profiler.NewPoolBackend(pool), a.Store, a.Logger,
		profiler.WithArgumentStore(a.DB),
		profiler.WithTopK(cfg.Profiler.TopK),
		profiler.WithRetry(retry.Config{
			MaxRetries:     cfg.Profiler.Retry.MaxRetries,
			InitialBackoff: cfg.Profiler.Retry.InitialBackoff,
			MaxBackoff:     cfg.Profiler.Retry.MaxBackoff,
		}),
		profiler.WithMaxDuration(cfg.Monitor.MaxDuration),
		profiler.WithReportDefaults(session.ReportDefaults{
			TabStop:     cfg.ReportDefaults.TabStop,
			SVGWidth:    cfg.ReportDefaults.SVGWidth,
			TableWidth:  cfg.ReportDefaults.TableWidth,
			Description: cfg.ReportDefaults.Description,
		}),
	)
	return nil
}

// OpenSessions opens the session store without a PostgreSQL pool. Closing a
// session then only removes its record.
func OpenSessions(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app := &App{
		Config: cfg,
		Logger: logging.New(logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty, Output: os.Stderr}),
	}
	store, err := app.sessionStore(ctx)
	if err != nil {
		return nil, err
	}
	app.Sessions = session.NewManager(store, nil, app.Logger)
	return app, nil
}

func (a *App) sessionStore(ctx context.Context) (session.Store, error) {
	sc := a.Config.Sessions
	if sc.Backend != config.BackendRedis {
		return session.NewMemoryStore(), nil
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{sc.Redis.Addr},
		Password: sc.Redis.Password,
		DB:       sc.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, pgerrors.E(pgerrors.KindDataSource, "cli.sessionStore",
			fmt.Errorf("failed to connect to redis at %s: %w", sc.Redis.Addr, err))
	}
	a.redis = rdb

	var opts []session.RedisOption
	if sc.Redis.KeyPrefix != "" {
		opts = append(opts, session.WithKeyPrefix(sc.Redis.KeyPrefix))
	}
	if sc.Redis.TTL > 0 {
		opts = append(opts, session.WithTTL(sc.Redis.TTL))
	}
	return session.NewRedisStore(rdb, opts...), nil
}

// Close tears down whatever was opened. Sessions owned by this process are
// closed first so their connections go back before the pool shuts down.
func (a *App) Close(ctx context.Context) {
	if a.Sessions != nil && a.Pool != nil {
		res, err := a.Sessions.CloseAll(ctx)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close sessions")
		} else if len(res.Failed) > 0 {
			a.Logger.Warn().Int("failed", len(res.Failed)).Msg("Some sessions did not close cleanly")
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.redis != nil {
		pgerrors.DeferClose(a.Logger, a.redis, "failed to close redis client")
	}
	if a.DB != nil {
		pgerrors.DeferClose(a.Logger, a.DB, "failed to close report index")
	}
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	case pgerrors.KindOf(err) == pgerrors.KindConfiguration,
		pgerrors.KindOf(err) == pgerrors.KindNotFound,
		pgerrors.KindOf(err) == pgerrors.KindRoutineNotFound:
		return 2
	default:
		return 1
	}
}
