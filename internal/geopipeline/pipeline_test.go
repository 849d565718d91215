package geopipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nysenate/geodistrict/internal/model"
	"github.com/nysenate/geodistrict/internal/registry"
)

type stubCache struct {
	mu   sync.Mutex
	hit  *model.Geocode
	puts []model.GeocodedAddress
}

func (c *stubCache) Get(_ context.Context, _ model.StreetAddress) (model.Geocode, bool, error) {
	if c.hit != nil {
		return *c.hit, true, nil
	}
	return model.Geocode{}, false, nil
}

func (c *stubCache) Put(ga model.GeocodedAddress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts = append(c.puts, ga)
}

type fakeProvider struct {
	name string
	gc   model.Geocode
	err  error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Geocode(_ context.Context, _ model.StreetAddress) (model.Geocode, error) {
	return f.gc, f.err
}

func TestPipeline_CacheHitShortCircuits(t *testing.T) {
	hit := model.Geocode{Lat: 1, Lon: 2, Quality: model.QualityHouse}
	reg := registry.New[Provider]()
	p := New(reg, &stubCache{hit: &hit}, 0)

	gc, err := p.Geocode(context.Background(), model.StreetAddress{BldgNum: 1, StreetName: "MAIN ST"}, "")
	require.NoError(t, err)
	assert.Equal(t, hit, gc)
}

func TestPipeline_FallbackChain(t *testing.T) {
	reg := registry.New[Provider]()
	reg.RegisterDefault("google", func() Provider { return &fakeProvider{name: "google", err: eris.New("down")} })
	reg.Register("census", func() Provider {
		return &fakeProvider{name: "census", gc: model.Geocode{Lat: 42.6, Lon: -73.7, Quality: model.QualityHouse}}
	})
	reg.SetFallbackChain([]string{"census"})
	reg.MarkCacheable("census")

	cache := &stubCache{}
	p := New(reg, cache, 0)

	gc, err := p.Geocode(context.Background(), model.StreetAddress{BldgNum: 1, StreetName: "MAIN ST"}, "")
	require.NoError(t, err)
	assert.Equal(t, "census", gc.Method)
	assert.Len(t, cache.puts, 1)
}

func TestPipeline_AllProvidersFail(t *testing.T) {
	reg := registry.New[Provider]()
	reg.RegisterDefault("google", func() Provider { return &fakeProvider{name: "google", err: eris.New("down")} })

	p := New(reg, &stubCache{}, 0)
	_, err := p.Geocode(context.Background(), model.StreetAddress{BldgNum: 1, StreetName: "MAIN ST"}, "")
	require.Error(t, err)
}

func TestPipeline_POBoxBlanksBldgNum(t *testing.T) {
	reg := registry.New[Provider]()
	var seenBldg int
	reg.RegisterDefault("google", func() Provider {
		return &probeProvider{fn: func(a model.StreetAddress) {
			seenBldg = a.BldgNum
		}}
	})

	p := New(reg, &stubCache{}, 0)
	_, _ = p.Geocode(context.Background(), model.StreetAddress{POBox: 7016, Location: "ALBANY", State: "NY"}, "")
	assert.Equal(t, 0, seenBldg)
}

type probeProvider struct {
	fn func(model.StreetAddress)
}

func (p *probeProvider) Name() string { return "probe" }
func (p *probeProvider) Geocode(_ context.Context, a model.StreetAddress) (model.Geocode, error) {
	p.fn(a)
	return model.Geocode{Lat: 1, Lon: 1, Quality: model.QualityZip}, nil
}

func TestPipeline_BatchGeocode_PreservesOrder(t *testing.T) {
	reg := registry.New[Provider]()
	reg.RegisterDefault("google", func() Provider {
		return &echoProvider{}
	})

	p := New(reg, &stubCache{}, 2)

	addrs := make([]model.StreetAddress, 10)
	for i := range addrs {
		addrs[i] = model.StreetAddress{BldgNum: i + 1, StreetName: "MAIN ST"}
	}

	results := p.BatchGeocode(context.Background(), addrs, "")
	require.Len(t, results, 10)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, float64(i+1), r.Geocode.Lat)
	}
}

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }
func (echoProvider) Geocode(_ context.Context, a model.StreetAddress) (model.Geocode, error) {
	return model.Geocode{Lat: float64(a.BldgNum), Lon: 1, Quality: model.QualityHouse}, nil
}
