package batchexec

import (
	"time"

	"github.com/google/uuid"

	"github.com/nysenate/geodistrict/internal/model"
	"github.com/nysenate/geodistrict/internal/resilience"
)

// maxRowRetries bounds how many additional offline retries (beyond the
// in-line retries RunBatch already attempted) a dead-lettered row gets.
const maxRowRetries = 5

// BuildDLQ converts a RunBatch result set's failed rows into dead letter
// entries, classifying each error as transient (eligible for a later
// reprocessing pass) or permanent.
func BuildDLQ(job model.BatchJob, requests []model.DistrictRequest, results []Result[*model.DistrictResult]) []resilience.DLQEntry {
	var entries []resilience.DLQEntry
	now := time.Now().UTC()

	for _, r := range results {
		if r.Err == nil {
			continue
		}
		entries = append(entries, resilience.DLQEntry{
			ID:           uuid.New().String(),
			BatchID:      job.ID,
			RowIndex:     r.Index,
			Address:      requests[r.Index].Address,
			Error:        r.Err.Error(),
			ErrorType:    resilience.ClassifyError(r.Err),
			FailedPhase:  "resolve",
			MaxRetries:   maxRowRetries,
			CreatedAt:    now,
			LastFailedAt: now,
		})
	}
	return entries
}
