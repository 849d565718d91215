package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/model"
)

// NearbyFunc looks up every district of type t within the configured
// proximity threshold of the geocode that does not already carry
// excludeCode — the shapefile "nearby districts" query, injected so
// Consolidate stays a pure function of its inputs (§8 invariant 4).
type NearbyFunc func(ctx context.Context, t model.DistrictType, excludeCode string) ([]model.DistrictEntry, error)

// Consolidate reconciles a shapefile-derived DistrictInfo against the
// street-file's exact-match districts, per §4.7:
//
//  1. Start from the shapefile result.
//  2. For each shapefile type whose proximity is below threshold: keep it
//     if the street-file agrees; if the street-file's code is among the
//     type's nearby shapefile districts, swap to it (code + map); otherwise
//     keep the shapefile code but mark the type uncertain.
//  3. Copy in any street-file type the shapefile didn't return at all.
//  4. If the street-file result is empty, every below-threshold shapefile
//     type is marked uncertain.
//
// Consolidate never mutates shapefileInfo; the returned DistrictInfo is a
// fresh copy, so repeated application with the same inputs is idempotent.
func Consolidate(
	ctx context.Context,
	shapefileInfo *model.DistrictInfo,
	streetfileDistricts map[model.DistrictType]model.DistrictEntry,
	proximityThresholdMeters float64,
	nearby NearbyFunc,
) (*model.DistrictInfo, error) {
	out := model.NewDistrictInfo()
	for t, e := range shapefileInfo.Entries {
		out.Entries[t] = e
	}

	streetfileEmpty := len(streetfileDistricts) == 0

	for t, entry := range out.Entries {
		if entry.Proximity == nil || *entry.Proximity >= proximityThresholdMeters {
			continue // above threshold: keep shapefile silently, even if street-file disagrees
		}

		sfEntry, hasStreetfile := streetfileDistricts[t]
		switch {
		case streetfileEmpty:
			out.Uncertain[t] = true

		case !hasStreetfile:
			out.Uncertain[t] = true

		case sfEntry.Code == entry.Code:
			// agree; nothing to do

		default:
			nearbyEntries, err := nearby(ctx, t, entry.Code)
			if err != nil {
				return nil, err
			}
			if replacement, ok := findByCode(nearbyEntries, sfEntry.Code); ok {
				out.Entries[t] = replacement
			} else {
				zap.L().Warn("resolve: consolidation mismatch",
					zap.String("district_type", string(t)),
					zap.String("shapefile_code", entry.Code),
					zap.String("streetfile_code", sfEntry.Code))
				out.Uncertain[t] = true
			}
		}
	}

	for t, sfEntry := range streetfileDistricts {
		if _, ok := out.Entries[t]; !ok {
			out.Entries[t] = sfEntry
		}
	}

	return out, nil
}

func findByCode(entries []model.DistrictEntry, code string) (model.DistrictEntry, bool) {
	for _, e := range entries {
		if e.Code == code {
			return e, true
		}
	}
	return model.DistrictEntry{}, false
}
