// Package google implements the Google Geocoding API as a fallback
// geopipeline.Provider (§4.5): same request shape and location_type-to-quality
// mapping idiom as the Census provider, re-expressed against this repo's
// Quality taxonomy.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/nysenate/geodistrict/internal/addrmodel"
	"github.com/nysenate/geodistrict/internal/model"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.httpClient = hc }
}

// WithBaseURL overrides the Google endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(p *Provider) { p.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1) }
}

// Provider geocodes addresses via the Google Geocoding API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New builds a Google Provider authenticated with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(40, 40),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "google" }

type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// Geocode resolves addr via the Google Geocoding API.
func (p *Provider) Geocode(ctx context.Context, addr model.StreetAddress) (model.Geocode, error) {
	if p.apiKey == "" {
		return model.Geocode{}, eris.New("google: api key not configured")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return model.Geocode{}, eris.Wrap(err, "google: rate limit")
	}

	params := url.Values{
		"address": {addrmodel.FormatOneLine(addr)},
		"key":     {p.apiKey},
	}
	reqURL := p.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.Geocode{}, eris.Wrap(err, "google: build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return model.Geocode{}, eris.Wrap(err, "google: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return model.Geocode{}, eris.Errorf("google: server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Geocode{}, eris.Wrap(err, "google: read body")
	}

	var parsed geocodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Geocode{}, eris.Wrap(err, "google: parse response")
	}
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return model.Geocode{}, nil
	}

	result := parsed.Results[0]
	return model.Geocode{
		Lat:     result.Geometry.Location.Lat,
		Lon:     result.Geometry.Location.Lng,
		Quality: qualityFromLocationType(result.Geometry.LocationType),
	}, nil
}

func qualityFromLocationType(locType string) model.Quality {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return model.QualityHouse
	case "RANGE_INTERPOLATED":
		return model.QualityStreet
	case "GEOMETRIC_CENTER":
		return model.QualityCity
	default: // APPROXIMATE
		return model.QualityZip
	}
}
