package resolve

import (
	"context"
	"sort"

	"github.com/nysenate/geodistrict/internal/model"
)

// alwaysOverlapTypes always get a DistrictOverlap computed when their
// candidate set has more than one member, and — per §4.8 step 3 — even
// when it has exactly one, since SENATE overlap can still narrow a
// borderline result.
var alwaysOverlapTypes = map[model.DistrictType]bool{
	model.Senate: true,
}

// OverlapFunc computes the area overlap between targetType's candidate
// districts and the reference zip region, grounded on
// shapefile.GetDistrictOverlap (reference type is always ZIP: §4.8 ranks
// candidates against the zip boundary in both the ZIP5/CITY and STREET
// sub-levels).
type OverlapFunc func(ctx context.Context, targetType model.DistrictType, referenceZips []string) (*model.DistrictOverlap, error)

// CityZipFunc resolves a city name to the zip5 values on file for it.
type CityZipFunc func(ctx context.Context, city, state string) ([]string, error)

// CandidatesFunc returns, per DistrictType, the distinct codes the
// street-file has on file across a zip set.
type CandidatesFunc func(ctx context.Context, zips []string) (map[model.DistrictType]map[string]bool, error)

// MultiMatch implements §4.8: sub-house-level district resolution by
// candidate-set narrowing and area overlap, for addresses whose geocode
// quality falls short of HOUSE.
type MultiMatch struct {
	Candidates CandidatesFunc
	CityZip    CityZipFunc
	Overlap    OverlapFunc
}

// Resolve picks the best available sub-level (STREET/ZIP5/CITY) for addr
// given quality, looks up the zip set it implies, and narrows each
// DistrictType's candidate set to a single code where possible, attaching
// overlap data for the rest.
func (m *MultiMatch) Resolve(ctx context.Context, addr model.StreetAddress, quality model.Quality) (*model.DistrictInfo, model.MatchLevel, error) {
	level, zips, err := m.resolveZips(ctx, addr, quality)
	if err != nil {
		return nil, model.MatchNone, err
	}
	if level == model.MatchNone {
		return model.NewDistrictInfo(), model.MatchNone, nil
	}

	candidates, err := m.Candidates(ctx, zips)
	if err != nil {
		return nil, model.MatchNone, err
	}

	info := model.NewDistrictInfo()
	for t, codes := range candidates {
		sorted := sortedCodes(codes)

		switch {
		case len(sorted) == 1 && !alwaysOverlapTypes[t]:
			info.Entries[t] = model.DistrictEntry{Type: t, Code: sorted[0]}

		case len(sorted) == 0:
			// no candidates for this type; leave unassigned

		default:
			overlap, err := m.Overlap(ctx, t, zips)
			if err != nil {
				return nil, model.MatchNone, err
			}
			entry := model.DistrictEntry{Type: t, Overlap: overlap}
			if len(sorted) == 1 {
				entry.Code = sorted[0]
			} else if single := soleIntersectingTarget(overlap); single != "" {
				entry.Code = single
			}
			info.Entries[t] = entry
		}
	}

	return info, level, nil
}

// resolveZips picks the multi-match sub-level and the zip set it implies,
// per §4.8's STREET > ZIP5 > CITY precedence.
func (m *MultiMatch) resolveZips(ctx context.Context, addr model.StreetAddress, quality model.Quality) (model.MatchLevel, []string, error) {
	zipProvided := len(addr.Zip5) == 5

	if quality >= model.QualityStreet && zipProvided {
		return model.MatchStreet, []string{addr.Zip5}, nil
	}

	if quality >= model.QualityZip && zipProvided {
		return model.MatchZip5, []string{addr.Zip5}, nil
	}

	if quality >= model.QualityCity && addr.Location != "" {
		zips, err := m.CityZip(ctx, addr.Location, addr.State)
		if err != nil {
			return model.MatchNone, nil, err
		}
		return model.MatchCity, zips, nil
	}

	return model.MatchNone, nil, nil
}

// soleIntersectingTarget returns the one target code overlap intersects,
// if exactly one target has nonzero area — the SENATE-narrowing rule of
// §4.8 step 4.
func soleIntersectingTarget(overlap *model.DistrictOverlap) string {
	var sole string
	count := 0
	for code, area := range overlap.TargetAreaSqMeters {
		if area <= 0 {
			continue
		}
		sole = code
		count++
	}
	if count == 1 {
		return sole
	}
	return ""
}

func sortedCodes(codes map[string]bool) []string {
	out := make([]string, 0, len(codes))
	for c := range codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
