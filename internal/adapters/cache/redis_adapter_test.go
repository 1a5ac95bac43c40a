package cache_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosai/backend/internal/adapters/cache"
	"github.com/diagnosai/backend/internal/domain/providers"
	redisclient "github.com/diagnosai/backend/internal/infrastructure/clients/redis"
)

func unreachableAdapter(t *testing.T) providers.CacheProvider {
	t.Helper()
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewRedisAdapter(redisclient.NewClientFromRedis(rdb))
}

func TestRedisAdapter_ConnectionErrorIsNotAMiss(t *testing.T) {
	adapter := unreachableAdapter(t)

	_, err := adapter.Get(context.Background(), "health:flu")
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrCacheMiss)
	assert.Contains(t, err.Error(), "failed to get from cache")
}

func TestRedisAdapter_SetWrapsErrors(t *testing.T) {
	adapter := unreachableAdapter(t)

	err := adapter.Set(context.Background(), "health:flu", []byte(`{}`), 3600)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set in cache")
}
