package tigerload

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/db"
)

const defaultBatchSize = 10000

var loadColumns = []string{"code", "name", "the_geom"}

// BulkLoad loads parsed rows into geo.<product.Table> via COPY, in batches
// of batchSize (0 = default 10,000 — district shapefiles run far smaller
// than the Census national products this is modeled on).
func BulkLoad(ctx context.Context, pool db.Pool, product Product, rows []Row, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	log := zap.L().With(
		zap.String("component", "tigerload.copy"),
		zap.String("table", "geo."+product.Table),
		zap.Int("total_rows", len(rows)),
	)

	var total int64
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := make([][]any, end-i)
		for j, r := range rows[i:end] {
			batch[j] = []any{r.Code, r.Name, r.WKB}
		}

		n, err := pool.CopyFrom(ctx, pgx.Identifier{"geo", product.Table}, loadColumns, pgx.CopyFromRows(batch))
		if err != nil {
			return total, eris.Wrapf(err, "tigerload: COPY into geo.%s (batch %d-%d)", product.Table, i, end)
		}
		total += n

		log.Debug("batch loaded", zap.Int("batch_start", i), zap.Int("batch_end", end), zap.Int64("batch_rows", n))
	}

	return total, nil
}

// TruncateTable truncates geo.<product.Table> before a reload.
func TruncateTable(ctx context.Context, pool db.Pool, product Product) error {
	sql := fmt.Sprintf("TRUNCATE %s", pgx.Identifier{"geo", product.Table}.Sanitize())
	if _, err := pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "tigerload: truncate geo.%s", product.Table)
	}
	return nil
}
