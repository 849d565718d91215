// Package shapefile implements the PostGIS-backed shapefile district lookup
// (§4.3): point-in-polygon assignment, nearby-boundary proximity, and
// multi-district overlap, against the geo.* tables tigerload populates.
package shapefile

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/nysenate/geodistrict/internal/model"
)

// Querier is the subset of db.Pool the lookup needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// descriptor maps a DistrictType to its geo.* table: one data-driven table
// instead of a hand-written query function per type.
type descriptor struct {
	table string
}

var descriptors = map[model.DistrictType]descriptor{
	model.Senate:        {table: "senate"},
	model.Assembly:      {table: "assembly"},
	model.Congressional: {table: "congressional"},
	model.County:        {table: "county"},
	model.School:        {table: "school"},
	model.Town:          {table: "town"},
	model.Election:      {table: "election"},
	model.Fire:          {table: "fire"},
	model.Village:       {table: "village"},
	model.City:          {table: "city"},
	model.Zip:           {table: "zip"},
}

// Lookup performs point-in-polygon district assignment and related queries
// against PostGIS.
type Lookup struct {
	db Querier
}

// New builds a Lookup over db.
func New(db Querier) *Lookup {
	return &Lookup{db: db}
}

// GetDistrictInfo assigns every requested district type to the point by
// ST_Contains, returning one DistrictEntry per type that contains the
// point. Types with no containing polygon are simply absent from the
// result — callers (internal/resolve) decide whether that's a failure.
func (l *Lookup) GetDistrictInfo(ctx context.Context, pt model.LatLon, types []model.DistrictType) (*model.DistrictInfo, error) {
	info := model.NewDistrictInfo()

	for _, t := range types {
		d, ok := descriptors[t]
		if !ok {
			continue
		}

		var code, name string
		var proximity float64
		row := l.db.QueryRow(ctx, pointInPolygonSQL(d.table), pt.Lon, pt.Lat)
		if err := row.Scan(&code, &name, &proximity); err != nil {
			if isNoRows(err) {
				continue
			}
			return nil, eris.Wrapf(err, "shapefile: point-in-polygon %s", t)
		}

		info.Entries[t] = model.DistrictEntry{
			Type:      t,
			Name:      name,
			Code:      model.TrimLeadingZeros(code),
			Proximity: &proximity,
		}
	}

	return info, nil
}

// pointInPolygonSQL returns code/name plus the point's distance (meters) to
// the containing polygon's boundary — consolidation (§4.7) uses this
// distance to decide whether a result sits close enough to a boundary to be
// worth reconciling against the street-file.
func pointInPolygonSQL(table string) string {
	return `SELECT code, COALESCE(name, code),
			ST_Distance(ST_Boundary(the_geom)::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		FROM geo.` + table + `
		WHERE ST_Contains(the_geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1`
}

// GetNearbyDistricts returns every district of type t within thresholdMeters
// of the point that does NOT already contain it — used by consolidation
// (§4.7) to mark a result "uncertain" near a boundary.
func (l *Lookup) GetNearbyDistricts(ctx context.Context, pt model.LatLon, t model.DistrictType, excludeCode string, thresholdMeters float64) ([]model.DistrictEntry, error) {
	d, ok := descriptors[t]
	if !ok {
		return nil, eris.Errorf("shapefile: unsupported district type %s", t)
	}

	rows, err := l.db.Query(ctx, `
		SELECT code, COALESCE(name, code),
			ST_Distance(the_geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		FROM geo.`+d.table+`
		WHERE code != $3
		  AND ST_DWithin(the_geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $4)
		ORDER BY the_geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)
	`, pt.Lon, pt.Lat, excludeCode, thresholdMeters)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: nearby districts %s", t)
	}
	defer rows.Close()

	var out []model.DistrictEntry
	for rows.Next() {
		var code, name string
		var dist float64
		if err := rows.Scan(&code, &name, &dist); err != nil {
			return nil, eris.Wrap(err, "shapefile: scan nearby district")
		}
		d := dist
		out = append(out, model.DistrictEntry{
			Type:      t,
			Name:      name,
			Code:      model.TrimLeadingZeros(code),
			Proximity: &d,
		})
	}
	return out, rows.Err()
}

func isNoRows(err error) bool {
	return err == pgx.ErrNoRows
}
