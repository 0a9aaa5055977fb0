package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/repository"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/ingest"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/sampledata"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
)

// Seed defaults.
const (
	defaultSeedShows     = 120
	defaultSeedValue     = 1983
	defaultSeedFrom      = 2015
	defaultSeedTo        = 2019
	defaultSeedBatchSize = 500
	defaultSeedWriters   = 2
)

type seedOptions struct {
	shows      int
	seed       uint64
	from       int
	to         int
	defectRate float64
	batchSize  int
	writers    int
}

func newSeedCommand(root *rootOptions) *cobra.Command {
	o := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the store with synthetic shows",
		Long: `Generates deterministic synthetic setlists and writes them to the SQLite
store through the batched ingest pipeline. Re-running with the same seed
upserts the same rows.

Example:
  phstats seed --shows 400 --from 1994 --to 2000 --defect-rate 0.01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, root, o)
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&o.shows, "shows", defaultSeedShows, "number of shows to generate")
	fs.Uint64Var(&o.seed, "seed", defaultSeedValue, "random seed")
	fs.IntVar(&o.from, "from", defaultSeedFrom, "first year")
	fs.IntVar(&o.to, "to", defaultSeedTo, "last year")
	fs.Float64Var(&o.defectRate, "defect-rate", 0, "share of deliberately malformed rows, 0..1")
	fs.IntVar(&o.batchSize, "batch-size", defaultSeedBatchSize, "rows per insert batch")
	fs.IntVar(&o.writers, "writers", defaultSeedWriters, "concurrent batch writers")
	return cmd
}

func runSeed(cmd *cobra.Command, root *rootOptions, o *seedOptions) error {
	if o.from > o.to {
		return fmt.Errorf("--from %d is after --to %d", o.from, o.to)
	}
	if o.defectRate < 0 || o.defectRate > 1 {
		return fmt.Errorf("--defect-rate must be within [0, 1], got %v", o.defectRate)
	}

	ctx := cmd.Context()
	log := logger.Get().Named("seed")

	rows, gen, err := sampledata.Generate(ctx,
		sampledata.WithShows(o.shows),
		sampledata.WithSeed(o.seed),
		sampledata.WithYears(o.from, o.to),
		sampledata.WithDefectRate(o.defectRate),
	)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	log.Info(ctx, "generated sample data",
		logger.Int("shows", gen.Shows),
		logger.Int("rows", gen.Rows),
		logger.Int("defects", gen.Defects),
	)

	store, err := repository.NewSQLiteStore(ctx, root.cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "close store", logger.Error(err))
		}
	}()

	res, err := ingest.Run(ctx, rows, store,
		ingest.WithBatchSize(o.batchSize),
		ingest.WithWriters(o.writers),
		ingest.WithLogger(log),
	)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d shows: %d rows written in %d batches (%d defects), %d rows in %s\n",
		gen.Shows, res.Rows, res.Batches, gen.Defects, total, root.cfg.DBPath)
	return err
}
