package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuition-pricing-service/internal/apperror"
	"tuition-pricing-service/internal/entity"
	"tuition-pricing-service/internal/repository"
)

// fakeRedis is an in-process Client. When down is set every command fails.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	down bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

var errRedisDown = errors.New("dial tcp: connection refused")

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStringResult("", errRedisDown)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStatusResult("", errRedisDown)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewIntResult(0, errRedisDown)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type countingStore struct {
	*repository.MemorySnapshotRepository
	gets int
}

func (s *countingStore) Get(ctx context.Context, id string) (*entity.PricingSnapshot, error) {
	s.gets++
	return s.MemorySnapshotRepository.Get(ctx, id)
}

func TestSnapshotCache(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemorySnapshotRepository: repository.NewMemorySnapshotRepository()}
	rdb := newFakeRedis()
	c := NewSnapshotCache(store, rdb, time.Hour)

	snap := &entity.PricingSnapshot{SnapshotID: "s1", StudentID: "st1", Payload: []byte(`{"snapshotId":"s1"}`)}
	require.NoError(t, c.Insert(ctx, snap))
	assert.Equal(t, time.Hour, rdb.ttls["snapshot:s1"])

	got, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snap.Payload, got.Payload)
	assert.Equal(t, 0, store.gets, "served from cache")

	// miss falls through and repopulates
	delete(rdb.data, "snapshot:s1")
	got, err = c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snap.Payload, got.Payload)
	assert.Equal(t, 1, store.gets)
	assert.Contains(t, rdb.data, "snapshot:s1")

	_, err = c.Get(ctx, "missing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestSnapshotCache_RedisDown(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemorySnapshotRepository: repository.NewMemorySnapshotRepository()}
	rdb := newFakeRedis()
	rdb.down = true
	c := NewSnapshotCache(store, rdb, time.Hour)

	snap := &entity.PricingSnapshot{SnapshotID: "s1", Payload: []byte(`{}`)}
	require.NoError(t, c.Insert(ctx, snap))

	got, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got.Payload))
	assert.Equal(t, 1, store.gets)

	assert.True(t, errors.Is(c.Insert(ctx, snap), repository.ErrSnapshotExists))
}

type fakeTaxProvider struct {
	configs []entity.TaxConfiguration
	calls   int
	err     error
}

func (p *fakeTaxProvider) GetActiveConfigurations(ctx context.Context, at time.Time) ([]entity.TaxConfiguration, error) {
	p.calls++
	return p.configs, p.err
}

func TestTaxCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	provider := &fakeTaxProvider{configs: []entity.TaxConfiguration{{
		ID: "t1", Code: "GST18", Type: entity.TaxTypeGST, Rate: decimal.NewFromInt(18),
		ValidFrom: now.AddDate(-1, 0, 0), IsActive: true,
	}}}
	rdb := newFakeRedis()
	c := NewTaxCache(provider, rdb, 5*time.Minute)

	got, err := c.GetActiveConfigurations(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, provider.calls)

	got, err = c.GetActiveConfigurations(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GST18", got[0].Code)
	assert.True(t, got[0].Rate.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, 1, provider.calls, "served from cache")

	require.NoError(t, c.Invalidate(ctx))
	_, err = c.GetActiveConfigurations(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestTaxCache_Failures(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.down = true

	provider := &fakeTaxProvider{}
	c := NewTaxCache(provider, rdb, time.Minute)
	_, err := c.GetActiveConfigurations(ctx, time.Now())
	require.NoError(t, err, "redis outage is not fatal")
	assert.Error(t, c.Invalidate(ctx))

	provider.err = errors.New("db down")
	_, err = c.GetActiveConfigurations(ctx, time.Now())
	assert.Error(t, err)
}
