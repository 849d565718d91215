package shapefile

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/nysenate/geodistrict/internal/model"
)

// GetDistrictOverlap computes, for each reference-district code, how much of
// its area is covered by each district of targetType — used by multi-match
// (§4.8) to rank candidate districts by share of the ambiguous region.
// Area is computed in UTM (meters) via ST_Transform, since ST_Area in
// geographic (4326) coordinates is not a true area.
func (l *Lookup) GetDistrictOverlap(ctx context.Context, referenceType, targetType model.DistrictType, referenceCodes []string) (*model.DistrictOverlap, error) {
	ref, ok := descriptors[referenceType]
	if !ok {
		return nil, eris.Errorf("shapefile: unsupported reference type %s", referenceType)
	}
	tgt, ok := descriptors[targetType]
	if !ok {
		return nil, eris.Errorf("shapefile: unsupported target type %s", targetType)
	}

	overlap := &model.DistrictOverlap{
		ReferenceType:      referenceType,
		TargetType:         targetType,
		ReferenceCodes:     referenceCodes,
		TargetAreaSqMeters: make(map[string]float64),
		TargetGeometry:     make(map[string]*model.DistrictMap),
	}

	rows, err := l.db.Query(ctx, `
		SELECT t.code,
			ST_Area(ST_Transform(ST_Intersection(r.the_geom, t.the_geom), 32618)) AS area
		FROM geo.`+ref.table+` r
		JOIN geo.`+tgt.table+` t ON ST_Intersects(r.the_geom, t.the_geom)
		WHERE r.code = ANY($1)
	`, referenceCodes)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: overlap %s/%s", referenceType, targetType)
	}
	defer rows.Close()

	var total float64
	for rows.Next() {
		var code string
		var area float64
		if err := rows.Scan(&code, &area); err != nil {
			return nil, eris.Wrap(err, "shapefile: scan overlap row")
		}
		code = model.TrimLeadingZeros(code)
		overlap.TargetAreaSqMeters[code] += area
		total += area
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	overlap.TotalAreaSqMeters = total

	return overlap, nil
}
