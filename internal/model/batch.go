package model

import "time"

// BatchJobStatus tracks a batch file's progress through the executor.
type BatchJobStatus string

const (
	BatchPending  BatchJobStatus = "PENDING"
	BatchRunning  BatchJobStatus = "RUNNING"
	BatchComplete BatchJobStatus = "COMPLETE"
	BatchFailed   BatchJobStatus = "FAILED"
)

// BatchJob is the persisted record of one batch file submission (§6.1):
// a CSV or XLSX file of addresses, submitted locally or pulled from the FTP
// drop box, run row-by-row through the resolution pipeline.
type BatchJob struct {
	ID          string
	SourceFile  string
	Status      BatchJobStatus
	Total       int
	Completed   int
	Failed      int
	SubmittedAt time.Time
	FinishedAt  time.Time
	Error       string
}

// Done reports whether the job has reached a terminal state.
func (j BatchJob) Done() bool {
	return j.Status == BatchComplete || j.Status == BatchFailed
}
