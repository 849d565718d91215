package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/addrfile"
	"github.com/nysenate/geodistrict/internal/api"
	"github.com/nysenate/geodistrict/internal/batchexec"
	"github.com/nysenate/geodistrict/internal/census"
	"github.com/nysenate/geodistrict/internal/geocache"
	"github.com/nysenate/geodistrict/internal/geopipeline"
	"github.com/nysenate/geodistrict/internal/google"
	"github.com/nysenate/geodistrict/internal/model"
	"github.com/nysenate/geodistrict/internal/registry"
	"github.com/nysenate/geodistrict/internal/resolve"
	"github.com/nysenate/geodistrict/internal/shapefile"
	"github.com/nysenate/geodistrict/internal/store"
	"github.com/nysenate/geodistrict/internal/streetfile"
)

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Resolve districts for every address in a CSV or XLSX file",
	Long: `Reads a headered CSV or XLSX address file, runs each row through the
district resolution pipeline with a bounded worker pool, and stores the
finished job record, which GET /api/batch/{id} then returns.

With --ftp-poll instead of a file argument, pulls every file waiting in the
configured FTP inbox and processes each in turn.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().Bool("ftp-poll", false, "pull address files from the configured FTP inbox instead of a local path")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("batch"); err != nil {
		return err
	}

	ftpPoll, _ := cmd.Flags().GetBool("ftp-poll")
	if !ftpPoll && len(args) == 0 {
		return eris.New("batch: either a file argument or --ftp-poll is required")
	}

	st, err := initStore(ctx)
	if err != nil {
		return eris.Wrap(err, "batch: init store")
	}
	defer st.Close() //nolint:errcheck

	resolver, pool, err := initBatchResolver(ctx, st)
	if err != nil {
		return eris.Wrap(err, "batch: init resolver")
	}
	defer pool.Close()

	execPool := batchexec.New(cfg.Batch.PoolSize)

	if ftpPoll {
		return runBatchFTP(ctx, st, execPool, resolver)
	}
	return runBatchFile(ctx, st, execPool, resolver, args[0])
}

func runBatchFile(ctx context.Context, st store.Store, pool *batchexec.Pool, resolver batchexec.Resolver, path string) error {
	log := zap.L().With(zap.String("command", "batch"), zap.String("file", path))

	addrs, err := addrfile.Parse(path)
	if err != nil {
		return eris.Wrap(err, "batch: parse address file")
	}
	log.Info("parsed address file", zap.Int("rows", len(addrs)))

	requests := make([]model.DistrictRequest, len(addrs))
	for i, a := range addrs {
		requests[i] = model.DistrictRequest{Address: a, USPSValidate: true}
	}

	job, results := batchexec.RunBatch(ctx, pool, resolver, filepath.Base(path), requests)
	api.RecordBatchJobSubmitted(string(job.Status))

	if err := st.CreateBatchJob(ctx, job); err != nil {
		log.Warn("could not persist batch job", zap.Error(err))
	}

	log.Info("batch run complete",
		zap.String("job_id", job.ID),
		zap.Int("total", job.Total),
		zap.Int("completed", job.Completed),
		zap.Int("failed", job.Failed),
	)

	for _, entry := range batchexec.BuildDLQ(job, requests, results) {
		log.Warn("row dead-lettered",
			zap.Int("row", entry.RowIndex),
			zap.String("error_type", entry.ErrorType),
			zap.String("error", entry.Error),
		)
	}

	fmt.Printf("job %s: %d/%d resolved, %d failed\n", job.ID, job.Completed, job.Total, job.Failed)
	return nil
}

func runBatchFTP(ctx context.Context, st store.Store, pool *batchexec.Pool, resolver batchexec.Resolver) error {
	log := zap.L().With(zap.String("command", "batch"), zap.String("mode", "ftp-poll"))

	inbox := addrfile.NewInbox(addrfile.InboxOptions{
		Host:       cfg.FTP.Host,
		User:       cfg.FTP.User,
		Password:   cfg.FTP.Password,
		InboxPath:  cfg.FTP.InboxPath,
		ResultPath: cfg.FTP.ResultPath,
	})

	names, err := inbox.Poll(ctx)
	if err != nil {
		return eris.Wrap(err, "batch: poll ftp inbox")
	}
	if len(names) == 0 {
		fmt.Println("no address files waiting in ftp inbox")
		return nil
	}
	log.Info("found inbox files", zap.Int("count", len(names)))

	tmpDir := cfg.Tigerload.TempDir
	if tmpDir == "" {
		tmpDir = "."
	}

	for _, name := range names {
		localPath, err := inbox.Fetch(ctx, name, tmpDir)
		if err != nil {
			log.Warn("could not fetch inbox file", zap.String("file", name), zap.Error(err))
			continue
		}
		if err := runBatchFile(ctx, st, pool, resolver, localPath); err != nil {
			log.Warn("batch run failed", zap.String("file", name), zap.Error(err))
		}
	}
	return nil
}

// initBatchResolver assembles a resolution pipeline from the same geocoder,
// shapefile and street-file collaborators cmd serve uses, but with no USPS
// validator and no WFS fallback. The returned pgxpool.Pool must be closed by
// the caller once the batch completes.
func initBatchResolver(ctx context.Context, st store.Store) (*resolve.Pipeline, *pgxpool.Pool, error) {
	pgPool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, eris.Wrap(err, "connect postgres")
	}

	reg := registry.New[geopipeline.Provider]()
	reg.RegisterDefault(cfg.Geocoder.Active, func() geopipeline.Provider {
		return census.New(census.WithBaseURL(cfg.Census.BaseURL), census.WithRateLimit(cfg.Census.RateLimit))
	})
	reg.Register("google", func() geopipeline.Provider {
		return google.New(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL), google.WithRateLimit(cfg.Google.RateLimit))
	})
	reg.SetFallbackChain(cfg.Geocoder.RankOrder)
	for _, name := range cfg.Geocoder.Cacheable {
		reg.MarkCacheable(name)
	}

	cache := geocache.New(pgPool, st, geocache.Options{BufferSize: cfg.Geocache.BufferSize})
	gp := geopipeline.New(reg, cache, cfg.Geocoder.Threads)

	shp := shapefile.New(pgPool)
	sf := streetfile.New(pgPool)

	pipeline := resolve.New(gp, shp, sf, nil, nil, cfg.District.ProximityThresholdMeters)
	return pipeline, pgPool, nil
}
