package model

import "time"

// DistrictRequest carries the flags that steer the resolution pipeline
// (§4.6).
type DistrictRequest struct {
	Address          Address
	Point            *LatLon
	USPSValidate     bool
	SkipGeocode      bool
	ShowMaps         bool
	ShowMembers      bool
	ShowMultiMatch   bool
	DistrictStrategy string // "single" or "bluebird"
	Provider         string // district provider override
	GeoProvider      string // geocode provider override
	Types            []DistrictType
}

// DistrictResult is the top-level pipeline output.
type DistrictResult struct {
	GeocodedAddress GeocodedAddress
	DistrictInfo    *DistrictInfo
	MatchLevel      MatchLevel
	StatusCode      StatusCode
	Message         string
	Timestamp       time.Time
	Members         map[DistrictType]MemberInfo
}

// MemberInfo is the elected-official metadata attached when ShowMembers is
// requested (§4.6 step 8). The roster data itself comes from an external
// collaborator (out of scope per §1); this is just the attachment point.
type MemberInfo struct {
	Name   string
	Title  string
	Party  string
	Office string
}

// Success reports whether the result represents a usable resolution (full
// SUCCESS or a partial/multi-match success, not a hard failure).
func (r DistrictResult) Success() bool {
	switch r.StatusCode {
	case StatusSuccess, StatusPartialDistrictResult, StatusMultipleDistrictResult:
		return true
	default:
		return false
	}
}
