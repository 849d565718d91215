package resilience

import (
	"time"

	"github.com/nysenate/geodistrict/internal/model"
)

// DLQEntry represents a batch row whose resolution failed and can be
// retried later (§6.1 batch execution model).
type DLQEntry struct {
	ID           string        `json:"id"`
	BatchID      string        `json:"batch_id"`
	RowIndex     int           `json:"row_index"`
	Address      model.Address `json:"address"`
	Error        string        `json:"error"`
	ErrorType    string        `json:"error_type"` // "transient" or "permanent"
	FailedPhase  string        `json:"failed_phase,omitempty"`
	RetryCount   int           `json:"retry_count"`
	MaxRetries   int           `json:"max_retries"`
	NextRetryAt  time.Time     `json:"next_retry_at"`
	CreatedAt    time.Time     `json:"created_at"`
	LastFailedAt time.Time     `json:"last_failed_at"`
}

// DLQFilter specifies criteria for querying the dead letter queue.
type DLQFilter struct {
	BatchID   string `json:"batch_id,omitempty"`
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry returns true if this entry hasn't exceeded its max retry count.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
