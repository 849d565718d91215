// Package model holds the shared data types that flow through the district
// resolution pipeline: addresses, geocodes, and district assignment results.
package model

import "strings"

// Address is a raw, possibly unparsed postal address as received from a
// caller (HTTP request, batch file row, or USPS response).
type Address struct {
	Addr1 string `json:"addr1"`
	Addr2 string `json:"addr2"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip5  string `json:"zip5"`
	Zip4  string `json:"zip4"`
}

// IsEmpty reports whether every field of the address is blank.
func (a Address) IsEmpty() bool {
	return a.Addr1 == "" && a.Addr2 == "" && a.City == "" && a.State == "" && a.Zip5 == "" && a.Zip4 == ""
}

// ZipProvided reports whether a well-formed 5-digit zip was supplied.
func (a Address) ZipProvided() bool {
	return len(strings.TrimSpace(a.Zip5)) == 5
}

// StreetAddress is the parsed, normalized form of an Address.
//
// Exactly one of the following describes a "cacheable" address per §4.2:
// a populated street (BldgNum > 0 and StreetName non-empty), a populated
// POBox, or a city+state/zip5-only address with an empty street.
type StreetAddress struct {
	BldgNum    int // 0 = absent
	PreDir     string
	StreetName string // upper-case canonical
	StreetType string
	PostDir    string
	UnitType   string
	UnitNum    string
	Location   string // city
	State      string
	Zip5       string
	Zip4       string
	POBox      int // 0 = not a PO box
}

// IsPOBox reports whether this address is a post office box.
func (s StreetAddress) IsPOBox() bool {
	return s.POBox > 0
}

// HasStreet reports whether a usable street name is present.
func (s StreetAddress) HasStreet() bool {
	return strings.TrimSpace(s.StreetName) != ""
}

// Retrievable implements the geocode cache's lookup eligibility rule (§4.2):
// either (street non-empty AND bldgNum > 0) or (street empty AND
// (city+state non-empty OR zip5 non-empty)).
func (s StreetAddress) Retrievable() bool {
	if s.HasStreet() {
		return s.BldgNum > 0
	}
	return (s.Location != "" && s.State != "") || s.Zip5 != ""
}

// Cacheable implements the write-path cacheability rule (§4.2): street +
// bldgNum, or PO-box-like with city/state or zip5.
func (s StreetAddress) Cacheable() bool {
	if s.HasStreet() && s.BldgNum > 0 {
		return true
	}
	if s.IsPOBox() || !s.HasStreet() {
		return (s.Location != "" && s.State != "") || s.Zip5 != ""
	}
	return false
}

// TitleCased returns a copy of s with StreetName and Location title-cased,
// used when returning a cache hit per §4.2 ("return a StreetAddress with
// name/city title-cased").
func (s StreetAddress) TitleCased(titleCase func(string) string) StreetAddress {
	out := s
	out.StreetName = titleCase(s.StreetName)
	out.Location = titleCase(s.Location)
	return out
}

// CacheKey is the composite key the geocode cache matches against: building
// number and street fields always, plus either Zip5 (when non-empty) or
// Location+State (when it's empty) — not all of zip5/city/state at once
// (§4.2).
type CacheKey struct {
	BldgNum    int
	PreDir     string
	StreetName string
	PostDir    string
	StreetType string
	Zip5       string
	Location   string
	State      string
	POBox      bool
}

// Key derives the CacheKey a StreetAddress would be stored/looked-up under.
func (s StreetAddress) Key() CacheKey {
	if s.IsPOBox() || !s.HasStreet() {
		return CacheKey{
			Location: strings.ToUpper(s.Location),
			State:    strings.ToUpper(s.State),
			Zip5:     s.Zip5,
			POBox:    true,
		}
	}
	return CacheKey{
		BldgNum:    s.BldgNum,
		PreDir:     strings.ToUpper(s.PreDir),
		StreetName: strings.ToUpper(s.StreetName),
		PostDir:    strings.ToUpper(s.PostDir),
		StreetType: strings.ToUpper(s.StreetType),
		Zip5:       s.Zip5,
		Location:   strings.ToUpper(s.Location),
		State:      strings.ToUpper(s.State),
	}
}
