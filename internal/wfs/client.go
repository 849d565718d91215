// Package wfs queries an external OGC Web Feature Service as the third and
// last-resort district lookup strategy: consulted only for district types
// neither the PostGIS shapefile tables nor the street-file range lookup
// could answer for a point (internal/resolve fills these gaps after
// consolidation). Same http.Client + rate.Limiter + manual JSON shape as
// the Census/Google geocoding clients, aimed at a GetFeature endpoint
// instead of a geocoder.
package wfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/nysenate/geodistrict/internal/model"
	"github.com/nysenate/geodistrict/internal/resilience"
)

// layerDescriptor maps a DistrictType to the WFS layer (typeName) and the
// GeoJSON property keys carrying its code/name, mirroring
// internal/shapefile's per-type descriptor table.
type layerDescriptor struct {
	typeName  string
	codeProp  string
	nameProp  string
}

var layers = map[model.DistrictType]layerDescriptor{
	model.Senate:        {typeName: "nysenate:senate", codeProp: "district", nameProp: "district"},
	model.Assembly:      {typeName: "nysenate:assembly", codeProp: "district", nameProp: "district"},
	model.Congressional: {typeName: "nysenate:congressional", codeProp: "district", nameProp: "district"},
	model.County:        {typeName: "nysenate:county", codeProp: "code", nameProp: "name"},
	model.School:        {typeName: "nysenate:school", codeProp: "code", nameProp: "name"},
	model.Town:          {typeName: "nysenate:town", codeProp: "code", nameProp: "name"},
	model.Election:      {typeName: "nysenate:election", codeProp: "code", nameProp: "name"},
	model.Fire:          {typeName: "nysenate:fire", codeProp: "code", nameProp: "name"},
	model.Village:       {typeName: "nysenate:village", codeProp: "code", nameProp: "name"},
	model.City:          {typeName: "nysenate:city", codeProp: "code", nameProp: "name"},
	model.Zip:           {typeName: "nysenate:zip", codeProp: "code", nameProp: "code"},
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit applied before every
// GetFeature call.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1) }
}

// Client queries a WFS 2.0 GetFeature endpoint over HTTP, returning GeoJSON.
// A remote WFS server is the least reliable collaborator in the pipeline
// (external, last-resort, no SLA), so calls run through a circuit breaker:
// once the server starts failing consistently, the breaker stops sending it
// requests instead of letting every district lookup pile up waiting on it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
}

// New builds a Client against baseURL, the WFS server's GetFeature endpoint.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// featureCollection is the subset of a GeoJSON FeatureCollection this client
// reads: one feature per matched polygon, with arbitrary property keys.
type featureCollection struct {
	Features []struct {
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

// GetDistrictInfo queries the WFS server for every requested type, one
// CQL_FILTER=INTERSECTS(point) GetFeature request per type, and returns
// whatever types matched a feature. Types with no matching feature are
// simply absent — callers decide whether that's a failure.
func (c *Client) GetDistrictInfo(ctx context.Context, pt model.LatLon, types []model.DistrictType) (*model.DistrictInfo, error) {
	info := model.NewDistrictInfo()

	for _, t := range types {
		layer, ok := layers[t]
		if !ok {
			continue
		}

		entry, found, err := c.getFeature(ctx, layer, pt)
		if err != nil {
			return nil, eris.Wrapf(err, "wfs: get feature %s", t)
		}
		if !found {
			continue
		}
		entry.Type = t
		info.Entries[t] = entry
	}

	return info, nil
}

// featureResult pairs getFeature's two return values so it can travel
// through resilience.ExecuteVal's single-value signature.
type featureResult struct {
	entry model.DistrictEntry
	found bool
}

func (c *Client) getFeature(ctx context.Context, layer layerDescriptor, pt model.LatLon) (model.DistrictEntry, bool, error) {
	res, err := resilience.ExecuteVal(ctx, c.breaker, func(innerCtx context.Context) (featureResult, error) {
		entry, found, err := c.doGetFeature(innerCtx, layer, pt)
		return featureResult{entry: entry, found: found}, err
	})
	return res.entry, res.found, err
}

func (c *Client) doGetFeature(ctx context.Context, layer layerDescriptor, pt model.LatLon) (model.DistrictEntry, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.DistrictEntry{}, false, eris.Wrap(err, "wfs: rate limit")
	}

	params := url.Values{
		"service":      {"WFS"},
		"version":      {"2.0.0"},
		"request":      {"GetFeature"},
		"typeName":     {layer.typeName},
		"outputFormat": {"application/json"},
		"CQL_FILTER":   {fmt.Sprintf("INTERSECTS(the_geom, POINT(%f %f))", pt.Lon, pt.Lat)},
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.DistrictEntry{}, false, eris.Wrap(err, "wfs: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.DistrictEntry{}, false, eris.Wrap(err, "wfs: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return model.DistrictEntry{}, false, eris.Errorf("wfs: server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.DistrictEntry{}, false, eris.Wrap(err, "wfs: read body")
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return model.DistrictEntry{}, false, eris.Wrap(err, "wfs: parse response")
	}
	if len(fc.Features) == 0 {
		return model.DistrictEntry{}, false, nil
	}

	props := fc.Features[0].Properties
	code := model.TrimLeadingZeros(stringProp(props, layer.codeProp))
	name := stringProp(props, layer.nameProp)
	if name == "" {
		name = code
	}

	return model.DistrictEntry{Name: name, Code: code}, true, nil
}

func stringProp(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
