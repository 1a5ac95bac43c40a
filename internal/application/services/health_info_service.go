package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosai/backend/internal/domain/entities"
	"github.com/diagnosai/backend/internal/domain/providers"
	"github.com/diagnosai/backend/internal/infrastructure/observability"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

const (
	healthInfoCachePrefix     = "health:"
	healthInfoCacheNamespace  = "health_info"
	defaultHealthInfoCacheTTL = 3600
)

// HealthInfoService serves public health data, caching origin responses for a fixed TTL
type HealthInfoService struct {
	provider   providers.HealthDataProvider
	cache      providers.CacheProvider
	ttlSeconds int
	metrics    *observability.Metrics
}

// NewHealthInfoService creates a new health info service. cache may be nil.
func NewHealthInfoService(provider providers.HealthDataProvider, cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) *HealthInfoService {
	if ttlSeconds <= 0 {
		ttlSeconds = defaultHealthInfoCacheTTL
	}
	return &HealthInfoService{
		provider:   provider,
		cache:      cache,
		ttlSeconds: ttlSeconds,
		metrics:    metrics,
	}
}

// HealthInfoCacheKey returns the cache key for a query
func HealthInfoCacheKey(query string) string {
	return healthInfoCachePrefix + query
}

// Lookup returns cached data when present, otherwise fetches from origin and caches the result.
// Cached data is the origin JSON, so a hit has the same shape as a miss.
// Surrounding whitespace is not part of the query.
func (s *HealthInfoService) Lookup(ctx context.Context, query string) (*entities.HealthInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required", apperrors.FieldError{Field: "query", Rule: "required"})
	}
	if s.provider == nil {
		return nil, apperrors.NewInternalError("health data provider is not configured", fmt.Errorf("nil provider"))
	}

	ctx, span := observability.StartSpan(ctx, "HealthInfoService.Lookup")
	defer span.End()

	logger := observability.LoggerFromContext(ctx)
	key := HealthInfoCacheKey(query)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil && json.Valid(cached):
			observability.RecordCacheHit(ctx, s.metrics, healthInfoCacheNamespace)
			return &entities.HealthInfo{
				Source: entities.HealthInfoSourceCache,
				Data:   json.RawMessage(cached),
			}, nil
		case err != nil && !errors.Is(err, providers.ErrCacheMiss):
			logger.Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to origin")
		}
		observability.RecordCacheMiss(ctx, s.metrics, healthInfoCacheNamespace)
	}

	start := time.Now()
	data, err := s.provider.Fetch(ctx, query)
	observability.RecordUpstreamCall(ctx, s.metrics, "cdc", time.Since(start), err)
	if err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).Str("query", query).Msg("health data fetch failed")
		return nil, apperrors.NewExternalError(err.Error(), err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data, s.ttlSeconds); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to cache health data")
		}
	}

	return &entities.HealthInfo{
		Source: entities.HealthInfoSourceOrigin,
		Data:   data,
	}, nil
}
