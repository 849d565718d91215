package model

import "strings"

// DistrictType enumerates the political/administrative district kinds the
// pipeline can assign.
type DistrictType string

const (
	Senate        DistrictType = "SENATE"
	Assembly      DistrictType = "ASSEMBLY"
	Congressional DistrictType = "CONGRESSIONAL"
	County        DistrictType = "COUNTY"
	School        DistrictType = "SCHOOL"
	Town          DistrictType = "TOWN"
	Election      DistrictType = "ELECTION"
	Fire          DistrictType = "FIRE"
	Village       DistrictType = "VILLAGE"
	City          DistrictType = "CITY"
	Zip           DistrictType = "ZIP"
)

// AllDistrictTypes lists every supported district kind, in the order the
// shapefile lookup iterates them.
var AllDistrictTypes = []DistrictType{
	Senate, Assembly, Congressional, County, School, Town, Election, Fire, Village, City,
}

// NonGlobalTypes are district kinds whose codes are not globally unique
// (e.g. SCHOOL codes repeat across counties), so their boundary maps are
// fetched on demand rather than cached process-wide (§4.3 cacheDistrictMaps).
var NonGlobalTypes = map[DistrictType]bool{
	School: true,
	Fire:   true,
	City:   true,
}

// TrimLeadingZeros strips leading zeros from a district code, per the
// leading-zero normalization invariant (§8.8): every code returned through a
// public result has no leading zeros.
func TrimLeadingZeros(code string) string {
	trimmed := strings.TrimLeft(code, "0")
	if trimmed == "" && code != "" {
		return "0"
	}
	return trimmed
}

// LatLon is a single (lat, lon) coordinate.
type LatLon struct {
	Lat float64
	Lon float64
}

// Ring is a closed ring of coordinates.
type Ring []LatLon

// DistrictMap is a geometry-type tag plus an ordered list of polygons (each
// a closed ring), optionally carrying metadata pointing back at the type and
// code it represents.
type DistrictMap struct {
	GeometryType string // "Polygon" or "MultiPolygon"
	Polygons     []Ring
	Metadata     *DistrictMetadata
}

// DistrictMetadata is a data copy of the type/name/code a DistrictMap
// belongs to — not an ownership cycle (Design Note 9).
type DistrictMetadata struct {
	Type DistrictType
	Name string
	Code string
}

// DistrictOverlap describes the area of intersection between a target
// district type and a reference district region.
type DistrictOverlap struct {
	ReferenceType      DistrictType
	TargetType         DistrictType
	ReferenceCodes     []string
	TotalAreaSqMeters  float64
	TargetAreaSqMeters map[string]float64 // per target code
	TargetGeometry     map[string]*DistrictMap
}

// DistrictEntry is a single assigned district: its name/code, an optional
// boundary map, the geocode's proximity to the district's boundary (meters),
// and an optional overlap record for multi-match results.
type DistrictEntry struct {
	Type       DistrictType
	Name       string
	Code       string
	Map        *DistrictMap
	Proximity  *float64 // nil = not computed
	Overlap    *DistrictOverlap
}

// DistrictInfo is the full set of district assignments for one location.
type DistrictInfo struct {
	Entries    map[DistrictType]DistrictEntry
	Uncertain  map[DistrictType]bool // districts near a boundary (§4.7)
}

// NewDistrictInfo returns an empty, ready-to-use DistrictInfo.
func NewDistrictInfo() *DistrictInfo {
	return &DistrictInfo{
		Entries:   make(map[DistrictType]DistrictEntry),
		Uncertain: make(map[DistrictType]bool),
	}
}

// AssignedDistricts returns the subset of DistrictType with a non-empty code.
func (d *DistrictInfo) AssignedDistricts() []DistrictType {
	var out []DistrictType
	for t, e := range d.Entries {
		if e.Code != "" {
			out = append(out, t)
		}
	}
	return out
}

// MatchLevel is the precision achieved by district assignment.
type MatchLevel string

const (
	MatchNone   MatchLevel = "NOMATCH"
	MatchCity   MatchLevel = "CITY"
	MatchZip5   MatchLevel = "ZIP5"
	MatchStreet MatchLevel = "STREET"
	MatchHouse  MatchLevel = "HOUSE"
)

// StatusCode is the response-level taxonomy of §7.
type StatusCode string

const (
	StatusSuccess StatusCode = "SUCCESS"

	// Input.
	StatusMissingAddress       StatusCode = "MISSING_ADDRESS"
	StatusMissingGeocode       StatusCode = "MISSING_GEOCODE"
	StatusMissingPoint         StatusCode = "MISSING_POINT"
	StatusMissingInputParams   StatusCode = "MISSING_INPUT_PARAMS"
	StatusInsufficientAddress  StatusCode = "INSUFFICIENT_ADDRESS"
	StatusInvalidAddress       StatusCode = "INVALID_ADDRESS"
	StatusInvalidGeocode       StatusCode = "INVALID_GEOCODE"
	StatusNonNYState           StatusCode = "NON_NY_STATE"

	// Provider selection.
	StatusServiceNotSupported  StatusCode = "SERVICE_NOT_SUPPORTED"
	StatusProviderNotSupported StatusCode = "PROVIDER_NOT_SUPPORTED"

	// Upstream.
	StatusResponseMissingError    StatusCode = "RESPONSE_MISSING_ERROR"
	StatusResponseParseError      StatusCode = "RESPONSE_PARSE_ERROR"
	StatusNoGeocodeResult         StatusCode = "NO_GEOCODE_RESULT"
	StatusNoReverseGeocodeResult  StatusCode = "NO_REVERSE_GEOCODE_RESULT"
	StatusNoAddressValidateResult StatusCode = "NO_ADDRESS_VALIDATE_RESULT"
	StatusNoDistrictResult        StatusCode = "NO_DISTRICT_RESULT"

	// Partial success.
	StatusPartialDistrictResult  StatusCode = "PARTIAL_DISTRICT_RESULT"
	StatusMultipleDistrictResult StatusCode = "MULTIPLE_DISTRICT_RESULT"

	// Internal.
	StatusInternalError StatusCode = "INTERNAL_ERROR"
	StatusDatabaseError StatusCode = "DATABASE_ERROR"
)
