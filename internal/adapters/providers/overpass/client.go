package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diagnosai/backend/internal/domain/providers"
)

const (
	defaultInterpreterURL = "https://overpass-api.de/api/interpreter"
	defaultHTTPTimeout    = 25 * time.Second
	maxErrorBodyBytes     = 1024
)

// facilitySelectors are the tag filters that identify medical points of interest.
var facilitySelectors = []string{
	`["amenity"="hospital"]`,
	`["amenity"="clinic"]`,
	`["amenity"="doctors"]`,
	`["healthcare"="clinic"]`,
	`["amenity"="pharmacy"]`,
}

// Client implements providers.FacilityLocator against an Overpass API interpreter.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new Overpass client. An empty endpoint selects the public interpreter.
func NewClient(endpoint string, timeout time.Duration) providers.FacilityLocator {
	return NewClientWithOptions(endpoint, &http.Client{Timeout: timeout})
}

// NewClientWithOptions allows overriding the interpreter URL and HTTP client (used for tests).
func NewClientWithOptions(endpoint string, httpClient *http.Client) providers.FacilityLocator {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = defaultInterpreterURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultHTTPTimeout
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

type interpreterResponse struct {
	Elements []providers.MapElement `json:"elements"`
}

// FindNearby runs a radius query around center for hospitals, clinics, doctors and pharmacies.
func (c *Client) FindNearby(ctx context.Context, center providers.LatLng, radiusMeters int) ([]providers.MapElement, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %d", radiusMeters)
	}

	form := url.Values{"data": []string{BuildQuery(center, radiusMeters)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("overpass request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded interpreterResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}
	if decoded.Elements == nil {
		return []providers.MapElement{}, nil
	}
	return decoded.Elements, nil
}

// BuildQuery renders the Overpass QL for every facility selector on nodes, ways
// and relations. `out center` makes ways and relations report a centroid.
func BuildQuery(center providers.LatLng, radiusMeters int) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", radiusMeters, formatCoord(center.Lat), formatCoord(center.Lon))

	var sb strings.Builder
	sb.WriteString("[out:json][timeout:25];\n(\n")
	for _, selector := range facilitySelectors {
		for _, kind := range []string{"node", "way", "relation"} {
			sb.WriteString("  ")
			sb.WriteString(kind)
			sb.WriteString(selector)
			sb.WriteString(around)
			sb.WriteString(";\n")
		}
	}
	sb.WriteString(");\nout center;\n")
	return sb.String()
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
