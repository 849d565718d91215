package geopipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nysenate/geodistrict/internal/model"
	"github.com/nysenate/geodistrict/internal/registry"
)

// Cache is the subset of geocache.Cache the pipeline needs. Defined here
// (not imported) to keep geopipeline free of a hard dependency on the
// storage-backed cache implementation — tests substitute a stub.
type Cache interface {
	Get(ctx context.Context, addr model.StreetAddress) (model.Geocode, bool, error)
	Put(ga model.GeocodedAddress)
}

// Pipeline resolves addresses through the cache, then a registry-ordered
// fallback chain of providers: an ordered provider list with a cache check
// before provider fan-out.
type Pipeline struct {
	registry *registry.Registry[Provider]
	cache    Cache
	threads  int
}

// New builds a Pipeline over reg, writing successful cacheable-provider
// results through cache. threads bounds BatchGeocode concurrency (0 = 4).
func New(reg *registry.Registry[Provider], cache Cache, threads int) *Pipeline {
	if threads <= 0 {
		threads = 4
	}
	return &Pipeline{registry: reg, cache: cache, threads: threads}
}

// Geocode resolves one address: cache hit short-circuits the provider
// chain; a PO box is geocoded from its city, state and zip alone (the
// lookup copy has BldgNum cleared, and FormatOneLine never renders the box
// number), per §4.5.
func (p *Pipeline) Geocode(ctx context.Context, addr model.StreetAddress, requestedProvider string) (model.Geocode, error) {
	if gc, ok, err := p.cache.Get(ctx, addr); err != nil {
		zap.L().Warn("geopipeline: cache lookup failed", zap.Error(err))
	} else if ok {
		return gc, nil
	}

	lookupAddr := addr
	if lookupAddr.IsPOBox() {
		lookupAddr.BldgNum = 0
	}

	var lastErr error
	for _, name := range p.registry.FallbackChain(requestedProvider) {
		provider, ok := p.registry.NewInstance(name)
		if !ok {
			continue
		}

		gc, err := provider.Geocode(ctx, lookupAddr)
		if err != nil {
			zap.L().Warn("geopipeline: provider failed, trying next",
				zap.String("provider", name), zap.Error(err))
			lastErr = err
			continue
		}
		if !gc.Valid() {
			continue
		}

		gc.Method = name
		if p.registry.IsCacheable(name) && gc.Quality >= model.QualityHouse {
			p.cache.Put(model.GeocodedAddress{Street: addr, Geocode: gc})
		}
		return gc, nil
	}

	if lastErr != nil {
		return model.Geocode{}, eris.Wrap(lastErr, "geopipeline: all providers exhausted")
	}
	return model.Geocode{}, eris.New("geopipeline: no geocode result")
}

// BatchResult pairs an input address with its resolved geocode or error.
type BatchResult struct {
	Geocode model.Geocode
	Err     error
}

// BatchGeocode resolves a slice of addresses concurrently, bounded to
// p.threads in flight, preserving input order in the returned slice: an
// errgroup-bounded fan-out with index-addressed results so one slow or
// failing row never reorders the rest.
func (p *Pipeline) BatchGeocode(ctx context.Context, addrs []model.StreetAddress, requestedProvider string) []BatchResult {
	results := make([]BatchResult, len(addrs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.threads)

	for i, addr := range addrs {
		idx, a := i, addr
		g.Go(func() error {
			gc, err := p.Geocode(gCtx, a, requestedProvider)
			results[idx] = BatchResult{Geocode: gc, Err: err}
			return nil // per-row errors are carried in the result, not the group
		})
	}

	_ = g.Wait()
	return results
}
