// Package addrmodel normalizes raw addresses into StreetAddress records.
package addrmodel

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nysenate/geodistrict/internal/model"
)

var directionals = map[string]string{
	"NORTH": "N", "SOUTH": "S", "EAST": "E", "WEST": "W",
	"NORTHEAST": "NE", "NORTHWEST": "NW", "SOUTHEAST": "SE", "SOUTHWEST": "SW",
	"N": "N", "S": "S", "E": "E", "W": "W",
	"NE": "NE", "NW": "NW", "SE": "SE", "SW": "SW",
}

// streetTypes maps common spellings to their canonical USPS abbreviation.
// Not exhaustive — covers the street types that appear routinely in NY
// addresses; unrecognized tokens pass through unchanged.
var streetTypes = map[string]string{
	"STREET": "ST", "ST": "ST",
	"AVENUE": "AVE", "AVE": "AVE",
	"BOULEVARD": "BLVD", "BLVD": "BLVD",
	"ROAD": "RD", "RD": "RD",
	"DRIVE": "DR", "DR": "DR",
	"LANE": "LN", "LN": "LN",
	"COURT": "CT", "CT": "CT",
	"PLACE": "PL", "PL": "PL",
	"CIRCLE": "CIR", "CIR": "CIR",
	"HIGHWAY": "HWY", "HWY": "HWY",
	"PARKWAY": "PKWY", "PKWY": "PKWY",
	"TURNPIKE": "TPKE", "TPKE": "TPKE",
	"TERRACE": "TER", "TER": "TER",
	"WAY": "WAY",
	"SQUARE": "SQ", "SQ": "SQ",
}

var unitTypes = map[string]bool{
	"APT": true, "UNIT": true, "STE": true, "SUITE": true,
	"FL": true, "FLOOR": true, "RM": true, "ROOM": true, "BLDG": true,
}

var poBoxRe = regexp.MustCompile(`(?i)^P\.?\s*O\.?\s*BOX\s*(\d+)$`)

// Parse normalizes a raw Address into a StreetAddress. It never fails — an
// address it cannot make sense of simply comes back with empty fields, which
// downstream callers treat as a non-retrievable/non-cacheable address.
func Parse(a model.Address) model.StreetAddress {
	out := model.StreetAddress{
		State: strings.ToUpper(strings.TrimSpace(a.State)),
		Zip5:  strings.TrimSpace(a.Zip5),
		Zip4:  strings.TrimSpace(a.Zip4),
	}

	city := strings.TrimSpace(a.City)
	out.Location = city

	line := strings.ToUpper(strings.TrimSpace(a.Addr1))
	if line == "" {
		return out
	}

	if m := poBoxRe.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[1])
		out.POBox = n
		return out
	}

	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return out
	}

	// Leading building number.
	idx := 0
	if n, err := strconv.Atoi(strings.TrimRight(tokens[0], "-")); err == nil {
		out.BldgNum = n
		idx = 1
	}

	// Trailing unit designator: "... APT 4B" or "... #4B".
	if idx < len(tokens) {
		last := tokens[len(tokens)-1]
		if strings.HasPrefix(last, "#") {
			out.UnitNum = strings.TrimPrefix(last, "#")
			tokens = tokens[:len(tokens)-1]
		} else if len(tokens) >= 2 && unitTypes[tokens[len(tokens)-2]] {
			out.UnitType = tokens[len(tokens)-2]
			out.UnitNum = tokens[len(tokens)-1]
			tokens = tokens[:len(tokens)-2]
		}
	}

	rest := tokens[idx:]
	if len(rest) == 0 {
		return out
	}

	// Leading pre-directional.
	if canon, ok := directionals[rest[0]]; ok && len(rest) > 1 {
		out.PreDir = canon
		rest = rest[1:]
	}

	// Trailing street type, then trailing post-directional (street type
	// almost always precedes any post-directional in NY usage, e.g.
	// "MAIN ST E").
	if len(rest) > 1 {
		if canon, ok := directionals[rest[len(rest)-1]]; ok {
			out.PostDir = canon
			rest = rest[:len(rest)-1]
		}
	}
	if len(rest) > 1 {
		if canon, ok := streetTypes[rest[len(rest)-1]]; ok {
			out.StreetType = canon
			rest = rest[:len(rest)-1]
		}
	}

	out.StreetName = strings.Join(rest, " ")
	return out
}

// FormatOneLine renders a StreetAddress back into a single geocodable line,
// e.g. for handing to a provider that only accepts a free-form string. An
// address without a street line (a PO box included) renders as its city,
// state and zip alone; the box number is never included.
func FormatOneLine(s model.StreetAddress) string {
	var parts []string
	if s.BldgNum > 0 {
		parts = append(parts, strconv.Itoa(s.BldgNum))
	}
	if s.PreDir != "" {
		parts = append(parts, s.PreDir)
	}
	if s.StreetName != "" {
		parts = append(parts, s.StreetName)
	}
	if s.StreetType != "" {
		parts = append(parts, s.StreetType)
	}
	if s.PostDir != "" {
		parts = append(parts, s.PostDir)
	}
	line := strings.Join(parts, " ")
	if s.Location != "" {
		line += ", " + s.Location
	}
	if s.State != "" {
		line += ", " + s.State
	}
	if s.Zip5 != "" {
		line += " " + s.Zip5
	}
	return strings.TrimLeft(line, ", ")
}

// POBoxBlanked returns a copy of addr with Addr1 blanked, per §4.5's PO-box
// special case: providers resolve zip/city better without the box line.
func POBoxBlanked(a model.Address) model.Address {
	out := a
	out.Addr1 = ""
	return out
}
