// Package usps implements the USPS Web Tools Address Information API
// adapter used for optional pre-geocode address correction (§4.6 step 2).
// Same http.Client + rate.Limiter plumbing as the Census/Google geocoding
// clients — USPS Web Tools is XML-only, so only the wire format differs.
package usps

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/nysenate/geodistrict/internal/model"
)

const verifyURL = "https://secure.shippingapis.com/ShippingAPI.dll"

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the USPS endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRateLimit sets the requests-per-second limit USPS Web Tools enforces
// per registered user ID.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1) }
}

// Client validates and standardizes addresses via USPS Web Tools.
type Client struct {
	userID     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New builds a Client authenticated with the USPS Web Tools user ID.
func New(userID string, opts ...Option) *Client {
	c := &Client{
		userID:     userID,
		baseURL:    verifyURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type verifyRequest struct {
	XMLName xml.Name `xml:"AddressValidateRequest"`
	USERID  string   `xml:"USERID,attr"`
	Address struct {
		Address1 string `xml:"Address1"`
		Address2 string `xml:"Address2"`
		City     string `xml:"City"`
		State    string `xml:"State"`
		Zip5     string `xml:"Zip5"`
		Zip4     string `xml:"Zip4"`
	} `xml:"Address"`
}

type verifyResponse struct {
	Address struct {
		Address2 string `xml:"Address2"`
		City     string `xml:"City"`
		State    string `xml:"State"`
		Zip5     string `xml:"Zip5"`
		Zip4     string `xml:"Zip4"`
		Error    *struct {
			Description string `xml:"Description"`
		} `xml:"Error"`
	} `xml:"Address"`
}

// Validate standardizes addr against USPS Web Tools. ok=false means USPS
// rejected or could not match the address; callers (internal/resolve) then
// retry geocoding against the raw, unvalidated address.
func (c *Client) Validate(ctx context.Context, addr model.Address) (model.Address, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return addr, false, eris.Wrap(err, "usps: rate limit")
	}

	var req verifyRequest
	req.USERID = c.userID
	req.Address.Address1 = addr.Addr2 // USPS Address1 is the secondary line (apt/unit)
	req.Address.Address2 = addr.Addr1
	req.Address.City = addr.City
	req.Address.State = addr.State
	req.Address.Zip5 = addr.Zip5
	req.Address.Zip4 = addr.Zip4

	xmlBody, err := xml.Marshal(req)
	if err != nil {
		return addr, false, eris.Wrap(err, "usps: marshal request")
	}

	params := url.Values{
		"API": {"Verify"},
		"XML": {string(xmlBody)},
	}
	reqURL := c.baseURL + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return addr, false, eris.Wrap(err, "usps: build request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return addr, false, eris.Wrap(err, "usps: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return addr, false, eris.Errorf("usps: server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return addr, false, eris.Wrap(err, "usps: read body")
	}

	var verifyResp verifyResponse
	if err := xml.Unmarshal(body, &verifyResp); err != nil {
		return addr, false, eris.Wrap(err, "usps: parse response")
	}

	if verifyResp.Address.Error != nil {
		return addr, false, nil
	}

	validated := model.Address{
		Addr1: strings.TrimSpace(verifyResp.Address.Address2),
		Addr2: addr.Addr2,
		City:  verifyResp.Address.City,
		State: verifyResp.Address.State,
		Zip5:  verifyResp.Address.Zip5,
		Zip4:  verifyResp.Address.Zip4,
	}
	return validated, true, nil
}
