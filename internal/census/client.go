// Package census implements the Census Bureau Geocoder as the default
// geopipeline.Provider (§4.5): a one-line-address GET request behind a
// rate.Limiter-gated http.Client.
package census

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/nysenate/geodistrict/internal/addrmodel"
	"github.com/nysenate/geodistrict/internal/model"
)

const defaultBaseURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
const benchmark = "Public_AR_Current"

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.httpClient = hc }
}

// WithBaseURL overrides the Census endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(p *Provider) { p.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1) }
}

// Provider geocodes addresses via the Census one-line API.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New builds a Census Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(50, 50),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "census" }

type oneLineResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"coordinates"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// Geocode resolves addr to a point via the Census one-line API. An empty,
// invalid Geocode (not an error) means Census had no match — the pipeline's
// fallback chain tries the next provider.
func (p *Provider) Geocode(ctx context.Context, addr model.StreetAddress) (model.Geocode, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return model.Geocode{}, eris.Wrap(err, "census: rate limit")
	}

	params := url.Values{
		"address":   {addrmodel.FormatOneLine(addr)},
		"benchmark": {benchmark},
		"format":    {"json"},
	}
	reqURL := p.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.Geocode{}, eris.Wrap(err, "census: build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return model.Geocode{}, eris.Wrap(err, "census: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return model.Geocode{}, eris.Errorf("census: server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Geocode{}, eris.Wrap(err, "census: read body")
	}

	var parsed oneLineResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Geocode{}, eris.Wrap(err, "census: parse response")
	}
	if len(parsed.Result.AddressMatches) == 0 {
		return model.Geocode{}, nil
	}

	match := parsed.Result.AddressMatches[0]
	return model.Geocode{
		Lat:     match.Coordinates.Y,
		Lon:     match.Coordinates.X,
		Quality: model.QualityHouse, // Census one-line matches are exact
	}, nil
}
