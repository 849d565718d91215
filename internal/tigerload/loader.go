package tigerload

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nysenate/geodistrict/internal/db"
	"github.com/nysenate/geodistrict/internal/model"
)

// LoadOptions configures a district shapefile ingest run.
type LoadOptions struct {
	Types       []model.DistrictType // district types to load; empty = all supported
	TempDir     string                // download/extract directory
	Concurrency int                   // parallel product downloads (default 3)
	BatchSize   int                   // COPY batch size (default 10,000)
	Incremental bool                  // skip products already loaded this version (cmd tigerload's flag defaults to true)
	Version     string                // dataset version/vintage tag, recorded in load_status
	DryRun      bool                  // parse without loading
}

// StatusRow represents a row from geo.load_status.
type StatusRow struct {
	DistrictType model.DistrictType
	Version      string
	RowCount     int
	LoadedAt     time.Time
	DurationMs   int
}

// Load downloads and loads district shapefiles for the given options.
func Load(ctx context.Context, pool db.Pool, opts LoadOptions) error {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.TempDir == "" {
		opts.TempDir = "/tmp/tigerload"
	}
	if opts.Version == "" {
		opts.Version = "default"
	}

	log := zap.L().With(zap.String("component", "tigerload.loader"), zap.String("version", opts.Version))

	var products []Product
	if len(opts.Types) > 0 {
		for _, t := range opts.Types {
			p, ok := ProductForType(t)
			if !ok {
				return eris.Errorf("tigerload: unknown district type %q", t)
			}
			products = append(products, p)
		}
	} else {
		products = Products
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, p := range products {
		product := p
		g.Go(func() error {
			return loadProduct(gCtx, pool, product, opts)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("district shapefiles loaded", zap.Int("products", len(products)))
	return nil
}

func loadProduct(ctx context.Context, pool db.Pool, product Product, opts LoadOptions) error {
	log := zap.L().With(
		zap.String("component", "tigerload.loader"),
		zap.String("type", string(product.Type)),
	)

	if opts.Incremental {
		loaded, err := isLoaded(ctx, pool, product.Type, opts.Version)
		if err != nil {
			return err
		}
		if loaded {
			log.Debug("already loaded at this version, skipping")
			return nil
		}
	}

	start := time.Now()

	destDir := opts.TempDir + "/" + string(product.Type)
	shpPath, err := Download(ctx, product.SourceURL, destDir)
	if err != nil {
		return eris.Wrapf(err, "tigerload: download %s", product.Type)
	}

	rows, err := ParseShapefile(shpPath, product)
	if err != nil {
		return eris.Wrapf(err, "tigerload: parse %s", product.Type)
	}

	log.Info("shapefile parsed", zap.Int("rows", len(rows)))

	if opts.DryRun {
		return nil
	}

	if err := CreateTable(ctx, pool, product); err != nil {
		return err
	}

	if err := TruncateTable(ctx, pool, product); err != nil {
		log.Warn("truncate failed (table may be empty)", zap.Error(err))
	}

	loaded, err := BulkLoad(ctx, pool, product, rows, opts.BatchSize)
	if err != nil {
		return err
	}

	duration := time.Since(start)

	if err := recordLoad(ctx, pool, product.Type, opts.Version, int(loaded), int(duration.Milliseconds())); err != nil {
		log.Warn("failed to record load status", zap.Error(err))
	}

	log.Info("product loaded", zap.Int64("rows", loaded), zap.Duration("duration", duration))
	return nil
}

func isLoaded(ctx context.Context, pool db.Pool, t model.DistrictType, version string) (bool, error) {
	var count int
	row := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM geo.load_status WHERE district_type = $1 AND version = $2",
		string(t), version,
	)
	if err := row.Scan(&count); err != nil {
		return false, eris.Wrap(err, "tigerload: check load status")
	}
	return count > 0, nil
}

func recordLoad(ctx context.Context, pool db.Pool, t model.DistrictType, version string, rowCount, durationMs int) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO geo.load_status (district_type, version, row_count, duration_ms)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (district_type, version) DO UPDATE SET
			row_count = EXCLUDED.row_count,
			loaded_at = now(),
			duration_ms = EXCLUDED.duration_ms`,
		string(t), version, rowCount, durationMs,
	)
	if err != nil {
		return eris.Wrap(err, "tigerload: record load status")
	}
	return nil
}

// LoadStatus returns current district shapefile load status from geo.load_status.
func LoadStatus(ctx context.Context, pool db.Pool) ([]StatusRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT district_type, version, row_count, loaded_at, COALESCE(duration_ms, 0)
		FROM geo.load_status
		ORDER BY district_type`)
	if err != nil {
		return nil, eris.Wrap(err, "tigerload: query load status")
	}
	defer rows.Close()

	var status []StatusRow
	for rows.Next() {
		var sr StatusRow
		var t string
		if err := rows.Scan(&t, &sr.Version, &sr.RowCount, &sr.LoadedAt, &sr.DurationMs); err != nil {
			return nil, eris.Wrap(err, "tigerload: scan load status row")
		}
		sr.DistrictType = model.DistrictType(t)
		status = append(status, sr)
	}
	return status, rows.Err()
}
