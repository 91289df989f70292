package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// lookupTimeout bounds the oracle round trip; an elapsed lookup is a
// soft failure at the call site.
const lookupTimeout = 2 * time.Second

// Info is the oracle's response body. The pipeline stores only Country
// and RegionName; the rest is decoded for completeness.
type Info struct {
	IP         string  `json:"ip"`
	Country    string  `json:"country"`
	CountryISO string  `json:"country_iso"`
	RegionName string  `json:"region_name"`
	RegionCode string  `json:"region_code"`
	City       string  `json:"city"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a geolocation client against the oracle base URL,
// e.g. http://localhost:3002.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: lookupTimeout},
	}
}

// Lookup resolves an IP to country/region via GET <endpoint>/json?ip=<ip>.
// Network errors, non-2xx statuses and undecodable bodies are all
// returned as errors; callers treat them as soft and continue with empty
// geo fields.
func (c *Client) Lookup(ctx context.Context, ip string) (*Info, error) {
	reqURL := c.endpoint + "/json?ip=" + url.QueryEscape(ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("geo lookup for %s returned status %d", ip, resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode geo response: %w", err)
	}

	return &info, nil
}
