package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
)

func TestMultiMatch_CityLevel(t *testing.T) {
	mm := &MultiMatch{
		CityZip: func(ctx context.Context, city, state string) ([]string, error) {
			assert.Equal(t, "BUFFALO", city)
			return []string{"14201", "14202"}, nil
		},
		Candidates: func(ctx context.Context, zips []string) (map[model.DistrictType]map[string]bool, error) {
			return map[model.DistrictType]map[string]bool{
				model.Senate: {"60": true, "61": true, "62": true},
				model.County: {"29": true},
			}, nil
		},
		Overlap: func(ctx context.Context, targetType model.DistrictType, zips []string) (*model.DistrictOverlap, error) {
			return &model.DistrictOverlap{
				TargetType:         targetType,
				TargetAreaSqMeters: map[string]float64{"60": 100, "61": 200, "62": 50},
			}, nil
		},
	}

	addr := model.StreetAddress{Location: "BUFFALO", State: "NY"}
	info, level, err := mm.Resolve(context.Background(), addr, model.QualityCity)
	require.NoError(t, err)
	assert.Equal(t, model.MatchCity, level)
	assert.Equal(t, "29", info.Entries[model.County].Code)
	require.NotNil(t, info.Entries[model.Senate].Overlap)
	assert.Empty(t, info.Entries[model.Senate].Code)
}

func TestMultiMatch_SenateNarrowsToSoleIntersection(t *testing.T) {
	mm := &MultiMatch{
		Candidates: func(ctx context.Context, zips []string) (map[model.DistrictType]map[string]bool, error) {
			return map[model.DistrictType]map[string]bool{
				model.Senate: {"60": true, "61": true},
			}, nil
		},
		Overlap: func(ctx context.Context, targetType model.DistrictType, zips []string) (*model.DistrictOverlap, error) {
			return &model.DistrictOverlap{TargetAreaSqMeters: map[string]float64{"60": 500, "61": 0}}, nil
		},
	}

	addr := model.StreetAddress{Zip5: "12210", State: "NY"}
	info, level, err := mm.Resolve(context.Background(), addr, model.QualityZip)
	require.NoError(t, err)
	assert.Equal(t, model.MatchZip5, level)
	assert.Equal(t, "60", info.Entries[model.Senate].Code)
}

func TestMultiMatch_BelowCityQualityReturnsNoMatch(t *testing.T) {
	mm := &MultiMatch{}
	info, level, err := mm.Resolve(context.Background(), model.StreetAddress{}, model.QualityCounty)
	require.NoError(t, err)
	assert.Equal(t, model.MatchNone, level)
	assert.Empty(t, info.Entries)
}

func TestMultiMatch_StreetLevelPrefersZipOverCityZipLookup(t *testing.T) {
	mm := &MultiMatch{
		Candidates: func(ctx context.Context, zips []string) (map[model.DistrictType]map[string]bool, error) {
			assert.Equal(t, []string{"12210"}, zips)
			return map[model.DistrictType]map[string]bool{model.Senate: {"44": true}}, nil
		},
		Overlap: func(ctx context.Context, targetType model.DistrictType, zips []string) (*model.DistrictOverlap, error) {
			return &model.DistrictOverlap{TargetAreaSqMeters: map[string]float64{"44": 900}}, nil
		},
	}

	addr := model.StreetAddress{StreetName: "STATE ST", Zip5: "12210", State: "NY"}
	info, level, err := mm.Resolve(context.Background(), addr, model.QualityStreet)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStreet, level)
	assert.Equal(t, "44", info.Entries[model.Senate].Code)
}
