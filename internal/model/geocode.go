package model

// Quality is a total-ordered geocode precision tag. Comparisons between
// qualities always use >=; a higher value is a more precise match.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityState
	QualityCounty
	QualityCity
	QualityZip
	QualityStreet
	QualityHouse
	QualityPoint
)

// String renders the quality tag the way it appears on the wire.
func (q Quality) String() string {
	switch q {
	case QualityState:
		return "STATE"
	case QualityCounty:
		return "COUNTY"
	case QualityCity:
		return "CITY"
	case QualityZip:
		return "ZIP"
	case QualityStreet:
		return "STREET"
	case QualityHouse:
		return "HOUSE"
	case QualityPoint:
		return "POINT"
	default:
		return "UNKNOWN"
	}
}

// ParseQuality is the inverse of Quality.String, defaulting to QualityUnknown.
func ParseQuality(s string) Quality {
	switch s {
	case "STATE":
		return QualityState
	case "COUNTY":
		return QualityCounty
	case "CITY":
		return QualityCity
	case "ZIP":
		return QualityZip
	case "STREET":
		return QualityStreet
	case "HOUSE":
		return QualityHouse
	case "POINT":
		return QualityPoint
	default:
		return QualityUnknown
	}
}

// Geocode is a (lat, lon, quality, method) record derived from an address or
// point.
type Geocode struct {
	Lat     float64
	Lon     float64
	Method  string // provider tag, e.g. "tiger", "wfs", "usps"
	Quality Quality
	Cached  bool
}

// Valid reports whether the geocode carries a usable point.
func (g Geocode) Valid() bool {
	return g.Lat != 0 || g.Lon != 0
}

// GeocodedAddress pairs an Address with its resolved Geocode. Either half may
// be the zero value; the pair is valid iff both halves pass their own
// validity checks.
type GeocodedAddress struct {
	Address Address
	Street  StreetAddress
	Geocode Geocode
}

// Valid reports whether both the address and the geocode are usable.
func (ga GeocodedAddress) Valid() bool {
	return !ga.Address.IsEmpty() && ga.Geocode.Valid()
}
