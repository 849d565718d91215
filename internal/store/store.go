// Package store persists the two durable collections the service owns
// outside PostGIS/streetfile data: the geocode cache (public.geocode_cache,
// written by internal/geocache's flusher) and batch job bookkeeping
// (public.batch_jobs, written by cmd batch). Both backends satisfy the
// same Store interface so production code runs against Postgres while unit
// tests run against a pure-Go SQLite file.
package store

import (
	"context"
	"time"

	"github.com/nysenate/geodistrict/internal/model"
)

// BatchJobFilter narrows ListBatchJobs.
type BatchJobFilter struct {
	Status model.BatchJobStatus
	Limit  int
}

// Store is the persistence interface the service depends on.
type Store interface {
	// Geocode cache — satisfies geocache.Flusher.
	SaveGeocode(ctx context.Context, ga model.GeocodedAddress) error

	// Batch jobs
	CreateBatchJob(ctx context.Context, job model.BatchJob) error
	UpdateBatchJob(ctx context.Context, job model.BatchJob) error
	GetBatchJob(ctx context.Context, id string) (*model.BatchJob, error)
	ListBatchJobs(ctx context.Context, filter BatchJobFilter) ([]model.BatchJob, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// batchJobRow is the column order shared by every backend's scan/insert,
// kept in one place so Postgres and SQLite can't drift apart. FinishedAt is
// stored as-is, zero value meaning "not yet finished" — both drivers handle
// plain time.Time without the nullable-pointer scan ambiguity a *time.Time
// column would introduce.
type batchJobRow struct {
	ID          string
	SourceFile  string
	Status      string
	Total       int
	Completed   int
	Failed      int
	SubmittedAt time.Time
	FinishedAt  time.Time
	Error       string
}

func toRow(j model.BatchJob) batchJobRow {
	return batchJobRow{
		ID:          j.ID,
		SourceFile:  j.SourceFile,
		Status:      string(j.Status),
		Total:       j.Total,
		Completed:   j.Completed,
		Failed:      j.Failed,
		SubmittedAt: j.SubmittedAt,
		FinishedAt:  j.FinishedAt,
		Error:       j.Error,
	}
}

func fromRow(row batchJobRow) model.BatchJob {
	return model.BatchJob{
		ID:          row.ID,
		SourceFile:  row.SourceFile,
		Status:      model.BatchJobStatus(row.Status),
		Total:       row.Total,
		Completed:   row.Completed,
		Failed:      row.Failed,
		SubmittedAt: row.SubmittedAt,
		FinishedAt:  row.FinishedAt,
		Error:       row.Error,
	}
}
