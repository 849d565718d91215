package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/nysenate/geodistrict/internal/db"
	"github.com/nysenate/geodistrict/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS public.geocode_cache (
	bldg_num    INTEGER NOT NULL,
	pre_dir     TEXT NOT NULL DEFAULT '',
	street_name TEXT NOT NULL DEFAULT '',
	post_dir    TEXT NOT NULL DEFAULT '',
	street_type TEXT NOT NULL DEFAULT '',
	zip5        TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	po_box      BOOLEAN NOT NULL DEFAULT false,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	method      TEXT NOT NULL,
	quality     TEXT NOT NULL,
	cached_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (bldg_num, pre_dir, street_name, post_dir, street_type, zip5, location, state, po_box)
);

CREATE TABLE IF NOT EXISTS public.batch_jobs (
	id           TEXT PRIMARY KEY,
	source_file  TEXT NOT NULL,
	status       TEXT NOT NULL,
	total        INTEGER NOT NULL DEFAULT 0,
	completed    INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	submitted_at TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL,
	error        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON public.batch_jobs(status);
`

// PostgresStore implements Store over db.Pool, the same narrow pgxpool
// interface internal/shapefile and internal/streetfile query through — it
// keeps the store unit-testable with pgxmock instead of requiring a live
// database for every test.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an already-constructed pgxpool.Pool.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPostgresWithPool wraps any db.Pool, production pool or mock alike.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return eris.Wrap(err, "store: migrate postgres")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "store: ping postgres")
}

func (s *PostgresStore) Close() error {
	if p, ok := s.pool.(*pgxpool.Pool); ok {
		p.Close()
	}
	return nil
}

func (s *PostgresStore) SaveGeocode(ctx context.Context, ga model.GeocodedAddress) error {
	key := ga.Street.Key()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO public.geocode_cache
			(bldg_num, pre_dir, street_name, post_dir, street_type, zip5, location, state, po_box, lat, lon, method, quality)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (bldg_num, pre_dir, street_name, post_dir, street_type, zip5, location, state, po_box) DO NOTHING
	`,
		key.BldgNum, key.PreDir, key.StreetName, key.PostDir, key.StreetType,
		key.Zip5, key.Location, key.State, key.POBox,
		ga.Geocode.Lat, ga.Geocode.Lon, ga.Geocode.Method, ga.Geocode.Quality.String(),
	)
	return eris.Wrap(err, "store: save geocode")
}

func (s *PostgresStore) CreateBatchJob(ctx context.Context, job model.BatchJob) error {
	row := toRow(job)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO public.batch_jobs (id, source_file, status, total, completed, failed, submitted_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, row.ID, row.SourceFile, row.Status, row.Total, row.Completed, row.Failed, row.SubmittedAt, row.FinishedAt, row.Error)
	return eris.Wrapf(err, "store: create batch job %s", job.ID)
}

func (s *PostgresStore) UpdateBatchJob(ctx context.Context, job model.BatchJob) error {
	row := toRow(job)
	tag, err := s.pool.Exec(ctx, `
		UPDATE public.batch_jobs
		SET status = $1, total = $2, completed = $3, failed = $4, finished_at = $5, error = $6
		WHERE id = $7
	`, row.Status, row.Total, row.Completed, row.Failed, row.FinishedAt, row.Error, row.ID)
	if err != nil {
		return eris.Wrapf(err, "store: update batch job %s", job.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: batch job not found: %s", job.ID)
	}
	return nil
}

func (s *PostgresStore) GetBatchJob(ctx context.Context, id string) (*model.BatchJob, error) {
	var row batchJobRow
	err := s.pool.QueryRow(ctx, `
		SELECT id, source_file, status, total, completed, failed, submitted_at, finished_at, error
		FROM public.batch_jobs WHERE id = $1
	`, id).Scan(&row.ID, &row.SourceFile, &row.Status, &row.Total, &row.Completed, &row.Failed, &row.SubmittedAt, &row.FinishedAt, &row.Error)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "store: get batch job %s", id)
	}
	job := fromRow(row)
	return &job, nil
}

func (s *PostgresStore) ListBatchJobs(ctx context.Context, filter BatchJobFilter) ([]model.BatchJob, error) {
	query := `SELECT id, source_file, status, total, completed, failed, submitted_at, finished_at, error FROM public.batch_jobs WHERE true`
	var args []any
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += " ORDER BY submitted_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list batch jobs")
	}
	defer rows.Close()

	var jobs []model.BatchJob
	for rows.Next() {
		var row batchJobRow
		if err := rows.Scan(&row.ID, &row.SourceFile, &row.Status, &row.Total, &row.Completed, &row.Failed, &row.SubmittedAt, &row.FinishedAt, &row.Error); err != nil {
			return nil, eris.Wrap(err, "store: scan batch job")
		}
		jobs = append(jobs, fromRow(row))
	}
	return jobs, eris.Wrap(rows.Err(), "store: list batch jobs iterate")
}
