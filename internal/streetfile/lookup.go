// Package streetfile implements the tabular street-range district lookup
// (§4.4): an address whose building number falls within a known range on a
// named street resolves directly to district codes, without a spatial
// query. It is the exact-match complement to internal/shapefile's
// point-in-polygon lookup, and the source of HOUSE-level match precision
// when a shapefile result is ambiguous (§9(b)).
package streetfile

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/nysenate/geodistrict/internal/model"
)

// Querier is the subset of db.Pool the lookup needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// districtColumns lists the streetfile.ranges columns holding district
// codes, one per DistrictType, as a data-driven list instead of one query
// per type.
var districtColumns = buildDistrictColumns()

func buildDistrictColumns() map[model.DistrictType]string {
	cols := make(map[model.DistrictType]string, len(model.AllDistrictTypes))
	for _, t := range model.AllDistrictTypes {
		cols[t] = strings.ToLower(string(t))
	}
	return cols
}

// Lookup queries streetfile.ranges.
type Lookup struct {
	db Querier
}

// New builds a Lookup over db.
func New(db Querier) *Lookup {
	return &Lookup{db: db}
}

// Match is one matched streetfile row: the district assignment it carries,
// and whether it was an exact building-number match or a street/zip/city
// level fallback (§4.8's sub-level classification).
type Match struct {
	Districts map[model.DistrictType]model.DistrictEntry
	Exact     bool
}

func scanColumns() []string {
	cols := []string{"zip5", "city"}
	for _, t := range model.AllDistrictTypes {
		cols = append(cols, districtColumns[t])
	}
	return cols
}

func selectList() string {
	return strings.Join(scanColumns(), ", ")
}

// Lookup finds the exact streetfile row whose building-number range
// contains addr's BldgNum on the matching street and parity. Returns
// ok=false on no match — callers fall through to shapefile lookup or
// GetAllStandardDistrictMatches.
func (l *Lookup) Lookup(ctx context.Context, addr model.StreetAddress) (Match, bool, error) {
	if !addr.HasStreet() || addr.BldgNum == 0 {
		return Match{}, false, nil
	}

	parity := "A"
	if addr.BldgNum%2 == 0 {
		parity = "E"
	} else {
		parity = "O"
	}

	sql := `SELECT ` + selectList() + ` FROM streetfile.ranges
		WHERE street_name = $1 AND state = $2
		  AND $3 BETWEEN bldg_lo AND bldg_hi
		  AND (parity = 'A' OR parity = $4)
		LIMIT 1`

	row := l.db.QueryRow(ctx, sql, addr.StreetName, addr.State, addr.BldgNum, parity)
	districts, err := scanMatch(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Match{}, false, nil
		}
		return Match{}, false, eris.Wrap(err, "streetfile: lookup")
	}

	return Match{Districts: districts, Exact: true}, true, nil
}

// GetAllStandardDistrictMatches returns every streetfile row matching on
// street name (HOUSE number unknown or out of any range), falling back to
// zip5 or city as the match narrows, per §4.8's STREET/ZIP5/CITY sub-levels.
func (l *Lookup) GetAllStandardDistrictMatches(ctx context.Context, addr model.StreetAddress) ([]Match, model.MatchLevel, error) {
	if addr.HasStreet() {
		matches, err := l.queryBy(ctx, "street_name = $1 AND state = $2", addr.StreetName, addr.State)
		if err != nil {
			return nil, model.MatchNone, err
		}
		if len(matches) > 0 {
			return matches, model.MatchStreet, nil
		}
	}

	if addr.Zip5 != "" {
		matches, err := l.queryBy(ctx, "zip5 = $1", addr.Zip5)
		if err != nil {
			return nil, model.MatchNone, err
		}
		if len(matches) > 0 {
			return matches, model.MatchZip5, nil
		}
	}

	if addr.Location != "" {
		matches, err := l.queryBy(ctx, "city = $1 AND state = $2", strings.ToUpper(addr.Location), strings.ToUpper(addr.State))
		if err != nil {
			return nil, model.MatchNone, err
		}
		if len(matches) > 0 {
			return matches, model.MatchCity, nil
		}
	}

	return nil, model.MatchNone, nil
}

// CandidatesByZips returns, for every DistrictType, the set of distinct
// codes appearing in streetfile.ranges rows whose zip5 is one of zips — the
// candidate-set query multi-match's STREET/ZIP5/CITY levels run before
// ranking by overlap (§4.8 step 1).
func (l *Lookup) CandidatesByZips(ctx context.Context, zips []string) (map[model.DistrictType]map[string]bool, error) {
	out := make(map[model.DistrictType]map[string]bool, len(model.AllDistrictTypes))
	for _, t := range model.AllDistrictTypes {
		out[t] = make(map[string]bool)
	}
	if len(zips) == 0 {
		return out, nil
	}

	sql := `SELECT ` + selectList() + ` FROM streetfile.ranges WHERE zip5 = ANY($1)`
	rows, err := l.db.Query(ctx, sql, zips)
	if err != nil {
		return nil, eris.Wrap(err, "streetfile: candidates by zips")
	}
	defer rows.Close()

	for rows.Next() {
		districts, err := scanMatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "streetfile: scan candidates row")
		}
		for t, entry := range districts {
			out[t][entry.Code] = true
		}
	}
	return out, rows.Err()
}

// CityZipLookup returns the distinct zip5 values streetfile.ranges has on
// file for a city, used by multi-match's CITY level to expand a bare city
// name into the zip set it queries (§4.8).
func (l *Lookup) CityZipLookup(ctx context.Context, city, state string) ([]string, error) {
	rows, err := l.db.Query(ctx, `SELECT DISTINCT zip5 FROM streetfile.ranges WHERE city = $1 AND state = $2 AND zip5 <> ''`,
		strings.ToUpper(city), strings.ToUpper(state))
	if err != nil {
		return nil, eris.Wrap(err, "streetfile: city/zip lookup")
	}
	defer rows.Close()

	var zips []string
	for rows.Next() {
		var zip string
		if err := rows.Scan(&zip); err != nil {
			return nil, eris.Wrap(err, "streetfile: scan city/zip row")
		}
		zips = append(zips, zip)
	}
	return zips, rows.Err()
}

// ZipToCityState returns the distinct city/state pairs streetfile.ranges has
// on file for a zip5, used by the address service's zip-to-city/state
// lookup endpoint (§6). A zip split across city name variants (village vs.
// town, USPS preferred vs. alternate) returns every variant on file.
func (l *Lookup) ZipToCityState(ctx context.Context, zip5 string) ([]CityState, error) {
	rows, err := l.db.Query(ctx, `SELECT DISTINCT city, state FROM streetfile.ranges WHERE zip5 = $1 AND city <> ''`, zip5)
	if err != nil {
		return nil, eris.Wrap(err, "streetfile: zip/city lookup")
	}
	defer rows.Close()

	var out []CityState
	for rows.Next() {
		var cs CityState
		if err := rows.Scan(&cs.City, &cs.State); err != nil {
			return nil, eris.Wrap(err, "streetfile: scan zip/city row")
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// CityState is one city/state pair on file for a zip5.
type CityState struct {
	City  string
	State string
}

func (l *Lookup) queryBy(ctx context.Context, where string, args ...any) ([]Match, error) {
	sql := `SELECT ` + selectList() + ` FROM streetfile.ranges WHERE ` + where
	rows, err := l.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "streetfile: query")
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		districts, err := scanMatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "streetfile: scan match")
		}
		out = append(out, Match{Districts: districts, Exact: false})
	}
	return out, rows.Err()
}

// rowScanner abstracts over pgx.Row and pgx.Rows, both of which implement
// Scan(dest ...any) error.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (map[model.DistrictType]model.DistrictEntry, error) {
	dest := make([]any, 2+len(model.AllDistrictTypes))
	var zip5, city string
	dest[0] = &zip5
	dest[1] = &city

	codes := make([]string, len(model.AllDistrictTypes))
	for i := range model.AllDistrictTypes {
		dest[2+i] = &codes[i]
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	districts := make(map[model.DistrictType]model.DistrictEntry)
	for i, t := range model.AllDistrictTypes {
		code := strings.TrimSpace(codes[i])
		if code == "" {
			continue
		}
		districts[t] = model.DistrictEntry{Type: t, Code: model.TrimLeadingZeros(code)}
	}
	return districts, nil
}
