package shapefile

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/uber/h3-go/v4"

	"github.com/nysenate/geodistrict/internal/model"
)

// h3Resolution buckets district boundaries for the nearby-district
// prefilter (GetNearbyDistrictsH3): cell edge length at this resolution is
// ~1.2km. A district is indexed under the cells holding its boundary
// vertices only, and a lookup checks only the query point's own cell.
const h3Resolution = 7

// mapCache is an immutable snapshot of every globally-cacheable district's
// boundary (§4.3's non-NonGlobalTypes), refreshed wholesale at startup —
// swapped via atomic.Pointer so concurrent readers never see a partial
// rebuild (§5).
type mapCache struct {
	byTypeAndCode map[model.DistrictType]map[string]*model.DistrictMap
	h3Index       map[h3.Cell][]cellEntry
}

type cellEntry struct {
	Type model.DistrictType
	Code string
}

var snapshot atomic.Pointer[mapCache]

// CacheDistrictMaps loads every global (non-NonGlobalTypes) district's
// boundary geometry into the process-wide snapshot. Called once by cmd serve
// at startup; nothing rebuilds it while the process runs.
func (l *Lookup) CacheDistrictMaps(ctx context.Context) error {
	next := &mapCache{
		byTypeAndCode: make(map[model.DistrictType]map[string]*model.DistrictMap),
		h3Index:       make(map[h3.Cell][]cellEntry),
	}

	for t, d := range descriptors {
		if model.NonGlobalTypes[t] {
			continue
		}

		rows, err := l.db.Query(ctx, `SELECT code, name, ST_AsEWKB(the_geom) FROM geo.`+d.table)
		if err != nil {
			return eris.Wrapf(err, "shapefile: cache district maps %s", t)
		}

		byCode := make(map[string]*model.DistrictMap)
		for rows.Next() {
			var code, name string
			var wkb []byte
			if err := rows.Scan(&code, &name, &wkb); err != nil {
				rows.Close()
				return eris.Wrap(err, "shapefile: scan district map row")
			}

			dm, err := decodeWKBToMap(wkb)
			if err != nil {
				continue
			}
			code = model.TrimLeadingZeros(code)
			dm.Metadata = &model.DistrictMetadata{Type: t, Name: name, Code: code}
			byCode[code] = dm

			for _, cell := range coveringCells(dm) {
				next.h3Index[cell] = append(next.h3Index[cell], cellEntry{Type: t, Code: code})
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		next.byTypeAndCode[t] = byCode
	}

	snapshot.Store(next)
	return nil
}

// GetDistrictMap returns the boundary for a type/code. Global types are
// served from the cached snapshot; NonGlobalTypes (SCHOOL/FIRE/CITY, whose
// codes aren't globally unique) are fetched on demand.
func (l *Lookup) GetDistrictMap(ctx context.Context, t model.DistrictType, code string) (*model.DistrictMap, error) {
	if !model.NonGlobalTypes[t] {
		snap := snapshot.Load()
		if snap == nil {
			return nil, eris.New("shapefile: district map cache not initialized")
		}
		dm, ok := snap.byTypeAndCode[t][code]
		if !ok {
			return nil, eris.Errorf("shapefile: no map for %s/%s", t, code)
		}
		return dm, nil
	}

	d, ok := descriptors[t]
	if !ok {
		return nil, eris.Errorf("shapefile: unsupported district type %s", t)
	}

	var name string
	var wkb []byte
	row := l.db.QueryRow(ctx, `SELECT name, ST_AsEWKB(the_geom) FROM geo.`+d.table+` WHERE code = $1 LIMIT 1`, code)
	if err := row.Scan(&name, &wkb); err != nil {
		return nil, eris.Wrapf(err, "shapefile: fetch map %s/%s", t, code)
	}

	dm, err := decodeWKBToMap(wkb)
	if err != nil {
		return nil, err
	}
	dm.Metadata = &model.DistrictMetadata{Type: t, Name: name, Code: code}
	return dm, nil
}

// GetNearbyDistrictsH3 prefilters candidate districts of type t by H3 cell
// membership before the caller computes exact distance — avoids a full
// table scan when the process-wide map cache is warm.
func GetNearbyDistrictsH3(pt model.LatLon, t model.DistrictType) []string {
	snap := snapshot.Load()
	if snap == nil {
		return nil
	}
	cell := h3.LatLngToCell(h3.LatLng{Lat: pt.Lat, Lng: pt.Lon}, h3Resolution)

	seen := make(map[string]bool)
	var out []string
	for _, ring := range []h3.Cell{cell} {
		for _, entry := range snap.h3Index[ring] {
			if entry.Type != t || seen[entry.Code] {
				continue
			}
			seen[entry.Code] = true
			out = append(out, entry.Code)
		}
	}
	return out
}

func coveringCells(dm *model.DistrictMap) []h3.Cell {
	seen := make(map[h3.Cell]bool)
	var out []h3.Cell
	for _, ring := range dm.Polygons {
		for _, pt := range ring {
			cell := h3.LatLngToCell(h3.LatLng{Lat: pt.Lat, Lng: pt.Lon}, h3Resolution)
			if !seen[cell] {
				seen[cell] = true
				out = append(out, cell)
			}
		}
	}
	return out
}

// decodeWKBToMap converts an EWKB MultiPolygon/Polygon into a DistrictMap,
// re-expressed as (lat, lon) rings for the wire model (model.LatLon is
// lat-first; geometry coordinates are lon-first).
func decodeWKBToMap(wkb []byte) (*model.DistrictMap, error) {
	g, err := ewkb.Unmarshal(wkb)
	if err != nil {
		return nil, eris.Wrap(err, "shapefile: decode WKB")
	}

	dm := &model.DistrictMap{}

	switch geomT := g.(type) {
	case *geom.Polygon:
		dm.GeometryType = "Polygon"
		dm.Polygons = polygonRings(geomT)
	case *geom.MultiPolygon:
		dm.GeometryType = "MultiPolygon"
		for i := 0; i < geomT.NumPolygons(); i++ {
			dm.Polygons = append(dm.Polygons, polygonRings(geomT.Polygon(i))...)
		}
	default:
		return nil, eris.New("shapefile: unsupported geometry type for district map")
	}

	return dm, nil
}

func polygonRings(p *geom.Polygon) []model.Ring {
	var rings []model.Ring
	for i := 0; i < p.NumLinearRings(); i++ {
		lr := p.LinearRing(i)
		coords := lr.FlatCoords()
		ring := make(model.Ring, 0, len(coords)/2)
		for j := 0; j+1 < len(coords); j += 2 {
			ring = append(ring, model.LatLon{Lon: coords[j], Lat: coords[j+1]})
		}
		rings = append(rings, ring)
	}
	return rings
}
