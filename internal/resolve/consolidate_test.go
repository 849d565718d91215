package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
)

func ptr(f float64) *float64 { return &f }

func TestConsolidate_AgreesOnLowProximity(t *testing.T) {
	shapefileInfo := model.NewDistrictInfo()
	shapefileInfo.Entries[model.Senate] = model.DistrictEntry{Type: model.Senate, Code: "40", Proximity: ptr(10)}

	streetfile := map[model.DistrictType]model.DistrictEntry{
		model.Senate: {Type: model.Senate, Code: "40"},
	}

	out, err := Consolidate(context.Background(), shapefileInfo, streetfile, 50, nil)
	require.NoError(t, err)
	assert.Equal(t, "40", out.Entries[model.Senate].Code)
	assert.False(t, out.Uncertain[model.Senate])
}

func TestConsolidate_SwapsToNearbyStreetfileCode(t *testing.T) {
	shapefileInfo := model.NewDistrictInfo()
	shapefileInfo.Entries[model.Senate] = model.DistrictEntry{Type: model.Senate, Code: "40", Proximity: ptr(15)}

	streetfile := map[model.DistrictType]model.DistrictEntry{
		model.Senate: {Type: model.Senate, Code: "41"},
	}

	nearby := func(ctx context.Context, dt model.DistrictType, exclude string) ([]model.DistrictEntry, error) {
		return []model.DistrictEntry{{Type: model.Senate, Code: "41", Name: "Senate 41"}}, nil
	}

	out, err := Consolidate(context.Background(), shapefileInfo, streetfile, 50, nearby)
	require.NoError(t, err)
	assert.Equal(t, "41", out.Entries[model.Senate].Code)
	assert.False(t, out.Uncertain[model.Senate])
}

func TestConsolidate_MarksUncertainWhenNoNearbyMatch(t *testing.T) {
	shapefileInfo := model.NewDistrictInfo()
	shapefileInfo.Entries[model.Senate] = model.DistrictEntry{Type: model.Senate, Code: "40", Proximity: ptr(15)}

	streetfile := map[model.DistrictType]model.DistrictEntry{
		model.Senate: {Type: model.Senate, Code: "99"},
	}

	nearby := func(ctx context.Context, dt model.DistrictType, exclude string) ([]model.DistrictEntry, error) {
		return nil, nil
	}

	out, err := Consolidate(context.Background(), shapefileInfo, streetfile, 50, nearby)
	require.NoError(t, err)
	assert.Equal(t, "40", out.Entries[model.Senate].Code)
	assert.True(t, out.Uncertain[model.Senate])
}

func TestConsolidate_AboveThresholdKeepsShapefileSilently(t *testing.T) {
	shapefileInfo := model.NewDistrictInfo()
	shapefileInfo.Entries[model.Senate] = model.DistrictEntry{Type: model.Senate, Code: "40", Proximity: ptr(5000)}

	streetfile := map[model.DistrictType]model.DistrictEntry{
		model.Senate: {Type: model.Senate, Code: "99"},
	}

	out, err := Consolidate(context.Background(), shapefileInfo, streetfile, 50, nil)
	require.NoError(t, err)
	assert.Equal(t, "40", out.Entries[model.Senate].Code)
	assert.False(t, out.Uncertain[model.Senate])
}

func TestConsolidate_UnionsStreetfileOnlyTypes(t *testing.T) {
	shapefileInfo := model.NewDistrictInfo()
	streetfile := map[model.DistrictType]model.DistrictEntry{
		model.School: {Type: model.School, Code: "5"},
	}

	out, err := Consolidate(context.Background(), shapefileInfo, streetfile, 50, nil)
	require.NoError(t, err)
	assert.Equal(t, "5", out.Entries[model.School].Code)
}

func TestConsolidate_EmptyStreetfileMarksUncertain(t *testing.T) {
	shapefileInfo := model.NewDistrictInfo()
	shapefileInfo.Entries[model.Senate] = model.DistrictEntry{Type: model.Senate, Code: "40", Proximity: ptr(15)}
	shapefileInfo.Entries[model.County] = model.DistrictEntry{Type: model.County, Code: "1", Proximity: ptr(5000)}

	out, err := Consolidate(context.Background(), shapefileInfo, nil, 50, nil)
	require.NoError(t, err)
	assert.True(t, out.Uncertain[model.Senate])
	assert.False(t, out.Uncertain[model.County])
}

func TestConsolidate_IdempotentUnderRepeatedApplication(t *testing.T) {
	shapefileInfo := model.NewDistrictInfo()
	shapefileInfo.Entries[model.Senate] = model.DistrictEntry{Type: model.Senate, Code: "40", Proximity: ptr(15)}

	streetfile := map[model.DistrictType]model.DistrictEntry{
		model.Senate: {Type: model.Senate, Code: "41"},
	}
	nearby := func(ctx context.Context, dt model.DistrictType, exclude string) ([]model.DistrictEntry, error) {
		return []model.DistrictEntry{{Type: model.Senate, Code: "41"}}, nil
	}

	first, err := Consolidate(context.Background(), shapefileInfo, streetfile, 50, nearby)
	require.NoError(t, err)

	second, err := Consolidate(context.Background(), first, streetfile, 50, nearby)
	require.NoError(t, err)

	assert.Equal(t, first.Entries[model.Senate].Code, second.Entries[model.Senate].Code)
	assert.Equal(t, first.Uncertain, second.Uncertain)
}
