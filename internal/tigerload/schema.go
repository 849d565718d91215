package tigerload

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/db"
)

// CreateTable creates geo.<product.Table> (code, name, the_geom) with a
// GIST spatial index, if it doesn't already exist. Shapefile lookup (§4.3)
// queries this table directly via ST_Contains/ST_DWithin.
func CreateTable(ctx context.Context, pool db.Pool, product Product) error {
	tableQuoted := pgx.Identifier{"geo", product.Table}.Sanitize()

	createSQL := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			code text NOT NULL,
			name text,
			the_geom geometry(MultiPolygon, 4326) NOT NULL
		)`,
		tableQuoted,
	)
	if _, err := pool.Exec(ctx, createSQL); err != nil {
		return eris.Wrapf(err, "tigerload: create geo.%s", product.Table)
	}

	idxName := pgx.Identifier{fmt.Sprintf("idx_%s_the_geom", product.Table)}.Sanitize()
	gistSQL := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (the_geom)", idxName, tableQuoted)
	if _, err := pool.Exec(ctx, gistSQL); err != nil {
		return eris.Wrapf(err, "tigerload: create GIST index on geo.%s", product.Table)
	}

	codeIdxName := pgx.Identifier{fmt.Sprintf("idx_%s_code", product.Table)}.Sanitize()
	codeSQL := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (code)", codeIdxName, tableQuoted)
	if _, err := pool.Exec(ctx, codeSQL); err != nil {
		return eris.Wrapf(err, "tigerload: create code index on geo.%s", product.Table)
	}

	zap.L().Debug("tigerload: table ready", zap.String("table", "geo."+product.Table))
	return nil
}
