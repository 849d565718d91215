package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // pure-Go driver, no cgo

	"github.com/nysenate/geodistrict/internal/model"
)

// SQLiteStore implements Store against a local file via modernc.org/sqlite —
// the backend fast unit tests and single-operator local runs use in place of
// Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if absent) a SQLite database at dsn and applies
// the WAL pragmas needed for concurrent readers/writers.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(10)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	bldg_num    INTEGER NOT NULL,
	pre_dir     TEXT NOT NULL DEFAULT '',
	street_name TEXT NOT NULL DEFAULT '',
	post_dir    TEXT NOT NULL DEFAULT '',
	street_type TEXT NOT NULL DEFAULT '',
	zip5        TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	po_box      INTEGER NOT NULL DEFAULT 0,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	method      TEXT NOT NULL,
	quality     TEXT NOT NULL,
	cached_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (bldg_num, pre_dir, street_name, post_dir, street_type, zip5, location, state, po_box)
);

CREATE TABLE IF NOT EXISTS batch_jobs (
	id           TEXT PRIMARY KEY,
	source_file  TEXT NOT NULL,
	status       TEXT NOT NULL,
	total        INTEGER NOT NULL DEFAULT 0,
	completed    INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	submitted_at DATETIME NOT NULL,
	finished_at  DATETIME NOT NULL,
	error        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON batch_jobs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveGeocode(ctx context.Context, ga model.GeocodedAddress) error {
	key := ga.Street.Key()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO geocode_cache
			(bldg_num, pre_dir, street_name, post_dir, street_type, zip5, location, state, po_box, lat, lon, method, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		key.BldgNum, key.PreDir, key.StreetName, key.PostDir, key.StreetType,
		key.Zip5, key.Location, key.State, boolToInt(key.POBox),
		ga.Geocode.Lat, ga.Geocode.Lon, ga.Geocode.Method, ga.Geocode.Quality.String(),
	)
	return eris.Wrap(err, "sqlite: save geocode")
}

func (s *SQLiteStore) CreateBatchJob(ctx context.Context, job model.BatchJob) error {
	row := toRow(job)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batch_jobs (id, source_file, status, total, completed, failed, submitted_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.SourceFile, row.Status, row.Total, row.Completed, row.Failed, row.SubmittedAt, row.FinishedAt, row.Error)
	return eris.Wrapf(err, "sqlite: create batch job %s", job.ID)
}

func (s *SQLiteStore) UpdateBatchJob(ctx context.Context, job model.BatchJob) error {
	row := toRow(job)
	res, err := s.db.ExecContext(ctx, `
		UPDATE batch_jobs
		SET status = ?, total = ?, completed = ?, failed = ?, finished_at = ?, error = ?
		WHERE id = ?
	`, row.Status, row.Total, row.Completed, row.Failed, row.FinishedAt, row.Error, row.ID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update batch job %s", job.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: batch job not found: %s", job.ID)
	}
	return nil
}

func (s *SQLiteStore) GetBatchJob(ctx context.Context, id string) (*model.BatchJob, error) {
	var row batchJobRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_file, status, total, completed, failed, submitted_at, finished_at, error
		FROM batch_jobs WHERE id = ?
	`, id).Scan(&row.ID, &row.SourceFile, &row.Status, &row.Total, &row.Completed, &row.Failed, &row.SubmittedAt, &row.FinishedAt, &row.Error)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get batch job %s", id)
	}
	job := fromRow(row)
	return &job, nil
}

func (s *SQLiteStore) ListBatchJobs(ctx context.Context, filter BatchJobFilter) ([]model.BatchJob, error) {
	query := `SELECT id, source_file, status, total, completed, failed, submitted_at, finished_at, error FROM batch_jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY submitted_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batch jobs")
	}
	defer rows.Close()

	var jobs []model.BatchJob
	for rows.Next() {
		var row batchJobRow
		if err := rows.Scan(&row.ID, &row.SourceFile, &row.Status, &row.Total, &row.Completed, &row.Failed, &row.SubmittedAt, &row.FinishedAt, &row.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch job")
		}
		jobs = append(jobs, fromRow(row))
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list batch jobs iterate")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
