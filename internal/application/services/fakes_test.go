package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/diagnosai/backend/internal/domain/entities"
	"github.com/diagnosai/backend/internal/domain/providers"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

// MemoryCache is an in-memory CacheProvider with an adjustable clock
type MemoryCache struct {
	mu      sync.RWMutex
	now     time.Time
	data    map[string]memoryEntry
	getErr  error
	setErr  error
	setKeys []string
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		data: make(map[string]memoryEntry),
	}
}

func (m *MemoryCache) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.data[key]
	if !ok || (!entry.expiresAt.IsZero() && !m.now.Before(entry.expiresAt)) {
		return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	}
	return entry.value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setKeys = append(m.setKeys, key)
	if m.setErr != nil {
		return m.setErr
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		entry.expiresAt = m.now.Add(time.Duration(expirationSeconds) * time.Second)
	}
	m.data[key] = entry
	return nil
}

// CountingHealthProvider returns a fixed payload and counts origin fetches
type CountingHealthProvider struct {
	mu      sync.Mutex
	payload json.RawMessage
	err     error
	calls   int
	query   string
}

func (p *CountingHealthProvider) Fetch(ctx context.Context, query string) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.query = query
	if p.err != nil {
		return nil, p.err
	}
	return p.payload, nil
}

func (p *CountingHealthProvider) LastQuery() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

func (p *CountingHealthProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// MockTextGenerator is a testify mock for providers.TextGenerator
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockFacilityLocator is a testify mock for providers.FacilityLocator
type MockFacilityLocator struct {
	mock.Mock
}

func (m *MockFacilityLocator) FindNearby(ctx context.Context, center providers.LatLng, radiusMeters int) ([]providers.MapElement, error) {
	args := m.Called(ctx, center, radiusMeters)
	elements, _ := args.Get(0).([]providers.MapElement)
	return elements, args.Error(1)
}

// MemoryUserRepository keeps users keyed by email
type MemoryUserRepository struct {
	mu      sync.Mutex
	users   map[string]*entities.User
	creates int
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*entities.User)}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return apperrors.NewConflictError("Email already registered")
	}
	copied := *user
	r.users[user.Email] = &copied
	r.creates++
	return nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return nil, apperrors.NewNotFoundError("user not found")
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func floatPtr(v float64) *float64 {
	return &v
}
