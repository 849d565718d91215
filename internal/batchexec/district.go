package batchexec

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/model"
	"github.com/nysenate/geodistrict/internal/resilience"
)

// Resolver is the subset of resolve.Pipeline a batch run needs. Defined here
// rather than imported so batchexec stays usable against any resolver, not
// just the production pipeline.
type Resolver interface {
	Resolve(ctx context.Context, req model.DistrictRequest) (*model.DistrictResult, error)
}

// rowRetryConfig retries a row only on resilience.IsTransient errors
// (provider timeouts, connection resets) — an address that fails to parse
// or geocode on its merits is never worth retrying.
var rowRetryConfig = resilience.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	Multiplier:     2.0,
	JitterFraction: 0.25,
}

// RunBatch drives one row per requests[i] through resolver's pool, returning
// a BatchJob record alongside the ordered per-row results. Row failures are
// counted on the job but never stop the remaining rows. A row whose failure
// is transient is retried in place per rowRetryConfig before being counted
// as failed.
func RunBatch(ctx context.Context, pool *Pool, resolver Resolver, sourceFile string, requests []model.DistrictRequest) (model.BatchJob, []Result[*model.DistrictResult]) {
	job := model.BatchJob{
		ID:          uuid.New().String(),
		SourceFile:  sourceFile,
		Status:      model.BatchRunning,
		Total:       len(requests),
		SubmittedAt: time.Now().UTC(),
	}

	results := Run(ctx, pool, requests, func(gCtx context.Context, req model.DistrictRequest) (*model.DistrictResult, error) {
		return resilience.DoVal(gCtx, rowRetryConfig, func(innerCtx context.Context) (*model.DistrictResult, error) {
			return resolver.Resolve(innerCtx, req)
		})
	}, func(completed, total int) {
		zap.L().Debug("batchexec: row complete", zap.String("job_id", job.ID), zap.Int("completed", completed), zap.Int("total", total))
	})

	for _, r := range results {
		if r.Err != nil {
			job.Failed++
		} else {
			job.Completed++
		}
	}

	job.FinishedAt = time.Now().UTC()
	if job.Failed == job.Total && job.Total > 0 {
		job.Status = model.BatchFailed
		job.Error = "all rows failed"
	} else {
		job.Status = model.BatchComplete
	}

	return job, results
}
