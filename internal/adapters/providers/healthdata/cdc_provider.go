package healthdata

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
	defaultCDCBaseURL  = "https://api.cdc.gov/endpoint"
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBodyBytes  = 1024
)

// CDCProvider implements providers.HealthDataProvider against the CDC data API.
type CDCProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewCDCProvider creates a new CDC provider.
func NewCDCProvider(baseURL string, timeout time.Duration) providers.HealthDataProvider {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return NewCDCProviderWithOptions(baseURL, &http.Client{Timeout: timeout})
}

// NewCDCProviderWithOptions allows overriding the HTTP client (used for tests).
func NewCDCProviderWithOptions(baseURL string, httpClient *http.Client) providers.HealthDataProvider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultCDCBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &CDCProvider{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Fetch performs GET {baseURL}/{query} and returns the JSON body verbatim.
func (p *CDCProvider) Fetch(ctx context.Context, query string) (json.RawMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	reqURL := p.baseURL + "/" + url.PathEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build health data request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health data request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("health data request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read health data response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("health data response is not valid JSON")
	}

	return json.RawMessage(body), nil
}
