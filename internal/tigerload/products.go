// Package tigerload downloads NY State district boundary shapefiles and
// bulk-loads them into PostGIS geo.* tables for shapefile district lookup
// (internal/shapefile).
package tigerload

import "github.com/nysenate/geodistrict/internal/model"

// Product describes one district-boundary shapefile product: which
// DistrictType it feeds, the target table, which shapefile attribute
// columns carry the district code and name, and where to fetch it.
type Product struct {
	Type      model.DistrictType
	Table     string // target table under the geo schema, e.g. "senate"
	CodeField string // shapefile attribute holding the district code
	NameField string // shapefile attribute holding the district name
	SourceURL string // NY GIS open-data shapefile ZIP endpoint
}

// Products lists every district-boundary shapefile this service ingests.
// Source URLs point at the NY Senate/Census GIS open-data endpoints that
// publish each boundary set. A `tigerload` run downloads each one unless
// Incremental skips an already-loaded version or a non-empty ZIP of the same
// name is already in the temp directory, which is reused as is.
var Products = []Product{
	{
		Type:      model.Senate,
		Table:     "senate",
		CodeField: "district",
		NameField: "district",
		SourceURL: "https://gisdata.ny.gov/GISData/State/Political/senate.zip",
	},
	{
		Type:      model.Assembly,
		Table:     "assembly",
		CodeField: "district",
		NameField: "district",
		SourceURL: "https://gisdata.ny.gov/GISData/State/Political/assembly.zip",
	},
	{
		Type:      model.Congressional,
		Table:     "congressional",
		CodeField: "district",
		NameField: "district",
		SourceURL: "https://gisdata.ny.gov/GISData/State/Political/congressional.zip",
	},
	{
		Type:      model.County,
		Table:     "county",
		CodeField: "countyfp",
		NameField: "name",
		SourceURL: "https://www2.census.gov/geo/tiger/TIGER2024/COUNTY/tl_2024_us_county.zip",
	},
	{
		Type:      model.School,
		Table:     "school",
		CodeField: "sdcode",
		NameField: "sdname",
		SourceURL: "https://gisdata.ny.gov/GISData/State/Education/schooldistricts.zip",
	},
	{
		Type:      model.Town,
		Table:     "town",
		CodeField: "swis",
		NameField: "name",
		SourceURL: "https://gisdata.ny.gov/GISData/State/Political/towns.zip",
	},
	{
		Type:      model.Election,
		Table:     "election",
		CodeField: "eldistrict",
		NameField: "eldistrict",
		SourceURL: "https://gisdata.ny.gov/GISData/State/Political/electiondistricts.zip",
	},
	{
		Type:      model.Fire,
		Table:     "fire",
		CodeField: "firecode",
		NameField: "firename",
		SourceURL: "https://gisdata.ny.gov/GISData/State/Emergency/firedistricts.zip",
	},
	{
		Type:      model.Village,
		Table:     "village",
		CodeField: "placefp",
		NameField: "name",
		SourceURL: "https://gisdata.ny.gov/GISData/State/Political/villages.zip",
	},
	{
		Type:      model.City,
		Table:     "city",
		CodeField: "placefp",
		NameField: "name",
		SourceURL: "https://gisdata.ny.gov/GISData/State/Political/cities.zip",
	},
	{
		Type:      model.Zip,
		Table:     "zip",
		CodeField: "zcta5ce20",
		NameField: "zcta5ce20",
		SourceURL: "https://www2.census.gov/geo/tiger/TIGER2024/ZCTA520/tl_2024_us_zcta520.zip",
	},
}

// ProductForType looks up the shapefile product for a DistrictType.
func ProductForType(t model.DistrictType) (Product, bool) {
	for _, p := range Products {
		if p.Type == t {
			return p, true
		}
	}
	return Product{}, false
}

// ProductByTable looks up a product by its target table name.
func ProductByTable(table string) (Product, bool) {
	for _, p := range Products {
		if p.Table == table {
			return p, true
		}
	}
	return Product{}, false
}
