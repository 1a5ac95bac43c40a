package providers

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by CacheProvider.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error
}
