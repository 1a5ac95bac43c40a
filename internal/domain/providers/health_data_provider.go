package providers

import (
	"context"
	"encoding/json"
)

// HealthDataProvider fetches public health statistics for a free-text query
type HealthDataProvider interface {
	// Fetch returns the upstream JSON payload. Non-2xx responses are errors.
	Fetch(ctx context.Context, query string) (json.RawMessage, error)
}
