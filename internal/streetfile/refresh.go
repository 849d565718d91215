package streetfile

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/db"
	"github.com/nysenate/geodistrict/internal/model"
)

const defaultBatchSize = 5000

var loadColumns = buildLoadColumns()

func buildLoadColumns() []string {
	cols := []string{"street_name", "bldg_lo", "bldg_hi", "parity", "zip5", "city", "state"}
	for _, t := range model.AllDistrictTypes {
		cols = append(cols, districtColumns[t])
	}
	return cols
}

// Refresh truncates streetfile.ranges and bulk-loads ranges via COPY, in
// batches of batchSize (0 = default). Replaces rather than upserts: the
// source workbook is a full snapshot each cycle, not an incremental diff.
func Refresh(ctx context.Context, pool db.Pool, ranges []Range, batchSize int) (int64, error) {
	if _, err := pool.Exec(ctx, "TRUNCATE streetfile.ranges"); err != nil {
		return 0, eris.Wrap(err, "streetfile: truncate ranges")
	}
	return BulkLoad(ctx, pool, ranges, batchSize)
}

// BulkLoad COPYs ranges into streetfile.ranges without truncating first —
// used by incremental test fixtures and by Refresh after its truncate.
func BulkLoad(ctx context.Context, pool db.Pool, ranges []Range, batchSize int) (int64, error) {
	if len(ranges) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	log := zap.L().With(zap.String("component", "streetfile.refresh"), zap.Int("total_rows", len(ranges)))

	var total int64
	for i := 0; i < len(ranges); i += batchSize {
		end := i + batchSize
		if end > len(ranges) {
			end = len(ranges)
		}
		batch := make([][]any, end-i)
		for j, r := range ranges[i:end] {
			batch[j] = rowValues(r)
		}

		n, err := pool.CopyFrom(ctx, pgx.Identifier{"streetfile", "ranges"}, loadColumns, pgx.CopyFromRows(batch))
		if err != nil {
			return total, eris.Wrapf(err, "streetfile: COPY ranges (batch %d-%d)", i, end)
		}
		total += n
		log.Debug("batch loaded", zap.Int("batch_start", i), zap.Int("batch_end", end), zap.Int64("batch_rows", n))
	}
	return total, nil
}

func rowValues(r Range) []any {
	vals := []any{r.StreetName, r.BldgLo, r.BldgHi, r.Parity, r.Zip5, r.City, r.State}
	for _, t := range model.AllDistrictTypes {
		vals = append(vals, r.Districts[districtColumns[t]])
	}
	return vals
}
