package streetfile

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/db"
	"github.com/nysenate/geodistrict/internal/model"
)

// CreateTable creates streetfile.ranges, if it doesn't already exist: one
// row per street-range segment, carrying a district code column per
// DistrictType plus zip5/city for the CITY/ZIP5 fallback levels (§4.4).
func CreateTable(ctx context.Context, pool db.Pool) error {
	var cols strings.Builder
	for _, t := range model.AllDistrictTypes {
		cols.WriteString(districtColumns[t])
		cols.WriteString(" text,\n\t\t\t")
	}

	createSQL := `CREATE TABLE IF NOT EXISTS streetfile.ranges (
			id bigserial PRIMARY KEY,
			street_name text NOT NULL,
			bldg_lo integer NOT NULL,
			bldg_hi integer NOT NULL,
			parity char(1) NOT NULL DEFAULT 'A',
			zip5 text,
			city text,
			state text NOT NULL,
			` + cols.String() + `
			CONSTRAINT ranges_parity_check CHECK (parity IN ('O', 'E', 'A'))
		)`
	if _, err := pool.Exec(ctx, createSQL); err != nil {
		return eris.Wrap(err, "streetfile: create streetfile.ranges")
	}

	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_ranges_street_state ON streetfile.ranges (street_name, state)`); err != nil {
		return eris.Wrap(err, "streetfile: create street/state index")
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_ranges_zip5 ON streetfile.ranges (zip5)`); err != nil {
		return eris.Wrap(err, "streetfile: create zip5 index")
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_ranges_city_state ON streetfile.ranges (city, state)`); err != nil {
		return eris.Wrap(err, "streetfile: create city/state index")
	}

	zap.L().Debug("streetfile: table ready", zap.String("table", "streetfile.ranges"))
	return nil
}
