// Package geopipeline resolves a street address to a Geocode
// through a registry-ordered provider fallback chain, with a write-through
// cache checked before any provider runs (§4.5).
package geopipeline

import (
	"context"

	"github.com/nysenate/geodistrict/internal/model"
)

// Provider is a single geocoding backend (Census, Google, ...).
// Implementations live in their own packages and register a factory with a
// registry.Registry[Provider]. internal/wfs is not a Provider: it answers
// district lookups directly and is wired into internal/resolve instead.
type Provider interface {
	// Name identifies the provider for logging, the registry, and the
	// cacheable-provider set.
	Name() string
	// Geocode resolves a single address to a point.
	Geocode(ctx context.Context, addr model.StreetAddress) (model.Geocode, error)
}
