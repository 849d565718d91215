package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
	"github.com/nysenate/geodistrict/internal/streetfile"
)

type fakeGeocoder struct {
	gc  model.Geocode
	err error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, addr model.StreetAddress, provider string) (model.Geocode, error) {
	return f.gc, f.err
}

type fakeShapefile struct {
	info   *model.DistrictInfo
	nearby []model.DistrictEntry

	nearbyPt model.LatLon // records the point GetNearbyDistricts was last called with
}

func (f *fakeShapefile) GetDistrictInfo(ctx context.Context, pt model.LatLon, types []model.DistrictType) (*model.DistrictInfo, error) {
	return f.info, nil
}
func (f *fakeShapefile) GetNearbyDistricts(ctx context.Context, pt model.LatLon, t model.DistrictType, excludeCode string, threshold float64) ([]model.DistrictEntry, error) {
	f.nearbyPt = pt
	return f.nearby, nil
}
func (f *fakeShapefile) GetDistrictMap(ctx context.Context, t model.DistrictType, code string) (*model.DistrictMap, error) {
	return &model.DistrictMap{GeometryType: "Polygon"}, nil
}
func (f *fakeShapefile) GetDistrictOverlap(ctx context.Context, referenceType, targetType model.DistrictType, codes []string) (*model.DistrictOverlap, error) {
	return &model.DistrictOverlap{}, nil
}

type fakeStreetfile struct {
	match streetfile.Match
	ok    bool
}

func (f *fakeStreetfile) Lookup(ctx context.Context, addr model.StreetAddress) (streetfile.Match, bool, error) {
	return f.match, f.ok, nil
}
func (f *fakeStreetfile) CandidatesByZips(ctx context.Context, zips []string) (map[model.DistrictType]map[string]bool, error) {
	return map[model.DistrictType]map[string]bool{model.Senate: {"60": true}}, nil
}
func (f *fakeStreetfile) CityZipLookup(ctx context.Context, city, state string) ([]string, error) {
	return []string{"12210"}, nil
}

func houseInfo() *model.DistrictInfo {
	info := model.NewDistrictInfo()
	proximity := 5000.0
	for _, t := range []model.DistrictType{model.Senate, model.Assembly, model.Congressional, model.County, model.School, model.Town} {
		info.Entries[t] = model.DistrictEntry{Type: t, Code: "1", Proximity: &proximity}
	}
	return info
}

func TestResolve_HouseMatch(t *testing.T) {
	p := New(
		&fakeGeocoder{gc: model.Geocode{Lat: 42.65, Lon: -73.75, Quality: model.QualityHouse, Method: "wfs"}},
		&fakeShapefile{info: houseInfo()},
		&fakeStreetfile{ok: false},
		nil, nil, 0,
	)

	req := model.DistrictRequest{
		Address: model.Address{Addr1: "200 State St", City: "Albany", State: "NY", Zip5: "12210"},
		Types:   []model.DistrictType{model.Senate, model.Assembly, model.Congressional, model.County, model.School, model.Town},
	}
	result, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, result.StatusCode)
	assert.Equal(t, model.MatchHouse, result.MatchLevel)
	assert.Empty(t, result.DistrictInfo.Uncertain)
}

// TestResolve_BoundaryConsolidatesAgainstRealGeocodePoint covers §8 scenario
// 3: a shapefile result below the proximity threshold that disagrees with
// the street-file must be reconciled by querying nearby districts around
// the geocode actually being resolved, not an unrelated fixed point.
func TestResolve_BoundaryConsolidatesAgainstRealGeocodePoint(t *testing.T) {
	proximity := 10.0
	info := model.NewDistrictInfo()
	info.Entries[model.Senate] = model.DistrictEntry{Type: model.Senate, Code: "44", Proximity: &proximity}

	sf := &fakeShapefile{
		info:   info,
		nearby: []model.DistrictEntry{{Type: model.Senate, Code: "46"}},
	}

	p := New(
		&fakeGeocoder{gc: model.Geocode{Lat: 42.65, Lon: -73.75, Quality: model.QualityHouse, Method: "wfs"}},
		sf,
		&fakeStreetfile{ok: true, match: streetfile.Match{
			Districts: map[model.DistrictType]model.DistrictEntry{model.Senate: {Type: model.Senate, Code: "46"}},
			Exact:     true,
		}},
		nil, nil, 0,
	)

	req := model.DistrictRequest{
		Address: model.Address{Addr1: "200 State St", City: "Albany", State: "NY", Zip5: "12210"},
		Types:   []model.DistrictType{model.Senate},
	}
	result, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, model.LatLon{Lat: 42.65, Lon: -73.75}, sf.nearbyPt, "nearby lookup must be centered on the resolved geocode, not a fixed point")
	assert.Equal(t, "46", result.DistrictInfo.Entries[model.Senate].Code)
	assert.False(t, result.DistrictInfo.Uncertain[model.Senate])
}

type fakeWFS struct {
	info *model.DistrictInfo
}

func (f *fakeWFS) GetDistrictInfo(ctx context.Context, pt model.LatLon, types []model.DistrictType) (*model.DistrictInfo, error) {
	out := model.NewDistrictInfo()
	for _, t := range types {
		if e, ok := f.info.Entries[t]; ok {
			out.Entries[t] = e
		}
	}
	return out, nil
}

func TestResolve_WFSFillsGapsAndMarksUncertain(t *testing.T) {
	p := New(
		&fakeGeocoder{gc: model.Geocode{Lat: 42.65, Lon: -73.75, Quality: model.QualityHouse, Method: "wfs"}},
		&fakeShapefile{info: houseInfo()}, // leaves Election, Fire, Village, City, Zip unassigned
		&fakeStreetfile{ok: false},
		nil, nil, 0,
	)
	p.WFS = &fakeWFS{info: func() *model.DistrictInfo {
		info := model.NewDistrictInfo()
		info.Entries[model.Village] = model.DistrictEntry{Type: model.Village, Code: "9"}
		return info
	}()}

	req := model.DistrictRequest{
		Address: model.Address{Addr1: "200 State St", City: "Albany", State: "NY", Zip5: "12210"},
	}
	result, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "9", result.DistrictInfo.Entries[model.Village].Code)
	assert.True(t, result.DistrictInfo.Uncertain[model.Village])
	assert.Empty(t, result.DistrictInfo.Entries[model.Election].Code) // WFS had nothing for it either
}

func TestResolve_NilWFSLeavesGapsEmpty(t *testing.T) {
	p := New(
		&fakeGeocoder{gc: model.Geocode{Lat: 42.65, Lon: -73.75, Quality: model.QualityHouse, Method: "wfs"}},
		&fakeShapefile{info: houseInfo()},
		&fakeStreetfile{ok: false},
		nil, nil, 0,
	)

	req := model.DistrictRequest{
		Address: model.Address{Addr1: "200 State St", City: "Albany", State: "NY", Zip5: "12210"},
	}
	result, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, result.DistrictInfo.Entries[model.Village].Code)
	assert.False(t, result.DistrictInfo.Uncertain[model.Village])
}

func TestResolve_POBox(t *testing.T) {
	info := model.NewDistrictInfo()
	info.Entries[model.Senate] = model.DistrictEntry{Type: model.Senate, Code: "44"}
	info.Entries[model.County] = model.DistrictEntry{Type: model.County, Code: "1"}

	p := New(
		&fakeGeocoder{gc: model.Geocode{Lat: 42.6, Lon: -73.7, Quality: model.QualityZip}},
		&fakeShapefile{info: info},
		&fakeStreetfile{ok: false},
		nil, nil, 0,
	)

	req := model.DistrictRequest{
		Address: model.Address{Addr1: "PO Box 7016", City: "Albany", State: "NY", Zip5: "12225"},
		Types:   []model.DistrictType{model.Senate, model.County, model.School},
	}
	result, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "PO Box 7016", result.GeocodedAddress.Address.Addr1)
	assert.Equal(t, model.StatusPartialDistrictResult, result.StatusCode)
}

func TestResolve_NonNYStateRejected(t *testing.T) {
	p := New(&fakeGeocoder{}, &fakeShapefile{info: model.NewDistrictInfo()}, &fakeStreetfile{}, nil, nil, 0)

	req := model.DistrictRequest{Address: model.Address{City: "Boston", State: "MA", Zip5: "02108"}}
	result, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNonNYState, result.StatusCode)
}

func TestResolve_CityOnlyMultiMatch(t *testing.T) {
	p := New(
		&fakeGeocoder{gc: model.Geocode{Lat: 42.8, Lon: -78.8, Quality: model.QualityCity}},
		&fakeShapefile{info: model.NewDistrictInfo()},
		&fakeStreetfile{},
		nil, nil, 0,
	)

	req := model.DistrictRequest{
		Address: model.Address{City: "Buffalo", State: "NY"},
		Types:   []model.DistrictType{model.Senate},
	}
	result, err := p.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.MatchCity, result.MatchLevel)
	assert.Equal(t, "60", result.DistrictInfo.Entries[model.Senate].Code)
	assert.Equal(t, model.StatusSuccess, result.StatusCode)
}

func TestResolve_MissingAddress(t *testing.T) {
	p := New(&fakeGeocoder{}, &fakeShapefile{info: model.NewDistrictInfo()}, &fakeStreetfile{}, nil, nil, 0)
	result, err := p.Resolve(context.Background(), model.DistrictRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusMissingAddress, result.StatusCode)
}
