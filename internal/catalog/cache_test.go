package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*MemoryStore
	lists int
}

func (c *countingStore) ListActive(ctx context.Context, tenantID string) ([]Offering, error) {
	c.lists++
	return c.MemoryStore.ListActive(ctx, tenantID)
}

func setupCache(t *testing.T, ttl time.Duration) (*CachedStore, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &countingStore{MemoryStore: NewMemoryStore()}
	backing.Put(Offering{TenantID: "salon-1", Name: "Facial Cleanup", IsActive: true, BasePriceMinor: 80000, Currency: "INR"})
	return NewCachedStore(backing, client, ttl, nil), backing, mr
}

func TestCachedStoreReadsThrough(t *testing.T) {
	cache, backing, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	first, err := cache.ListActive(ctx, "salon-1")
	require.NoError(t, err)
	second, err := cache.ListActive(ctx, "salon-1")
	require.NoError(t, err)

	assert.Equal(t, 1, backing.lists)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("catalog:active:salon-1"))

	mr.FastForward(2 * time.Minute)
	_, err = cache.ListActive(ctx, "salon-1")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.lists, "expired entry should hit the store")
}

func TestCachedStoreInvalidate(t *testing.T) {
	cache, backing, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	_, err := cache.ListActive(ctx, "salon-1")
	require.NoError(t, err)
	backing.Put(Offering{TenantID: "salon-1", Name: "Manicure", IsActive: true})
	require.NoError(t, cache.Invalidate(ctx, "salon-1"))

	offerings, err := cache.ListActive(ctx, "salon-1")
	require.NoError(t, err)
	assert.Len(t, offerings, 2)
}

func TestCachedStoreDisabledAndGetFallback(t *testing.T) {
	cache, backing, mr := setupCache(t, 0)
	ctx := context.Background()

	offerings, err := cache.ListActive(ctx, "salon-1")
	require.NoError(t, err)
	assert.False(t, mr.Exists("catalog:active:salon-1"))

	got, err := cache.Get(ctx, "salon-1", offerings[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Facial Cleanup", got.Name)

	inactive := backing.Put(Offering{TenantID: "salon-1", Name: "Old Service", IsActive: false})
	got, err = cache.Get(ctx, "salon-1", inactive.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Service", got.Name)

	_, err = cache.Get(ctx, "salon-1", uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStoreSurvivesRedisOutage(t *testing.T) {
	cache, backing, mr := setupCache(t, time.Minute)
	mr.SetError("ERR simulated outage")

	offerings, err := cache.ListActive(context.Background(), "salon-1")
	require.NoError(t, err)
	assert.Len(t, offerings, 1)
	assert.Equal(t, 1, backing.lists)
}
