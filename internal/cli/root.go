// Package cli implements the phstats command line: offline leaderboard and
// song queries against the SQLite store, sample data seeding and the probe.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/repository"
	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/config"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
)

// rootOptions carries the persistent flags and the loaded configuration.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	dbPath     string

	cfg *config.Config
}

// New builds the phstats command tree.
func New() *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:   "phstats",
		Short: "Concert analytics: Jam Intensity Score and WAR leaderboards",
		Long: `phstats scores every song performance with a Jam Intensity Score (JIS)
and aggregates songs into WAR leaderboards over a SQLite performance store.

Run "phstats seed" to populate a database with synthetic shows, then query it
with "phstats leaderboard" or "phstats song".`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: o.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configFile, "config", "", "YAML config file (default: $"+config.EnvConfigFile+")")
	pf.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&o.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&o.dbPath, "db", "", "SQLite database path (overrides db_path)")

	root.AddCommand(
		newLeaderboardCommand(o),
		newSongCommand(o),
		newSeedCommand(o),
		newProbeCommand(o),
	)
	return root
}

// setup loads configuration and initializes logging to stderr so stdout
// stays clean for tables and JSON.
func (o *rootOptions) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(ctx, o.configFile)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	o.cfg = cfg
	return nil
}

// openEngine opens the configured store and loads it into a started engine.
// The returned func closes the store.
func (o *rootOptions) openEngine(ctx context.Context) (*service.Engine, func(), error) {
	store, err := repository.NewSQLiteStore(ctx, o.cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			logger.Get().Warn(ctx, "close store", logger.Error(err))
		}
	}

	engine := service.New(
		service.WithSource(store),
		service.WithCacheSize(0),
		service.WithWeights(o.cfg.Weights()),
		service.WithParallelThreshold(o.cfg.ParallelThreshold),
		service.WithScale(o.cfg.WARScale),
	)
	if err := engine.Start(ctx); err != nil {
		closeStore()
		return nil, nil, err
	}
	return engine, closeStore, nil
}
