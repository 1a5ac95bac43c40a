package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/diagnosai/backend/internal/domain/providers"
	"github.com/diagnosai/backend/pkg/config"
)

const (
	defaultBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel           = "gemini-2.0-flash"
	defaultMaxOutputTokens = 300
	maxErrorBodyBytes      = 2048
)

// Client implements providers.TextGenerator on the Gemini generateContent API.
type Client struct {
	apiKey          string
	model           string
	baseURL         string
	maxOutputTokens int
	httpClient      *http.Client
}

// NewClient creates a new Gemini client.
func NewClient(cfg *config.GeminiConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:          cfg.APIKey,
		model:           model,
		baseURL:         baseURL,
		maxOutputTokens: maxTokens,
		httpClient:      &http.Client{Timeout: timeout},
	}, nil
}

var _ providers.TextGenerator = (*Client)(nil)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// GenerateText sends prompt as a single user turn and returns the concatenated
// text parts of the first candidate.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{MaxOutputTokens: c.maxOutputTokens},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordGeminiMetric(ctx, c.model, 0, time.Since(start), err)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		statusErr := fmt.Errorf("gemini request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		recordGeminiMetric(ctx, c.model, resp.StatusCode, time.Since(start), statusErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: %v", providers.ErrTextGeneratorUnauthorized, statusErr)
		}
		return "", statusErr
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		recordGeminiMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}

	if len(decoded.Candidates) == 0 {
		err := errors.New("gemini response has no candidates")
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			err = fmt.Errorf("gemini blocked the prompt: %s", decoded.PromptFeedback.BlockReason)
		}
		recordGeminiMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	var sb strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		err := errors.New("gemini response missing output text")
		recordGeminiMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	recordGeminiMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)
	return sb.String(), nil
}

type geminiMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
}

var (
	geminiMetricsOnce sync.Once
	geminiMetricsInst *geminiMetrics
)

func ensureGeminiMetrics() *geminiMetrics {
	geminiMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/diagnosai/backend/gemini")

		requestCount, err := meter.Int64Counter(
			"ai.gemini.request.count",
			metric.WithDescription("Number of Gemini requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.gemini.request.duration",
			metric.WithDescription("Gemini request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.gemini.request.errors",
			metric.WithDescription("Number of Gemini request errors"),
		)
		if err != nil {
			return
		}

		geminiMetricsInst = &geminiMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
		}
	})
	return geminiMetricsInst
}

func recordGeminiMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	m := ensureGeminiMetrics()
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	m.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
