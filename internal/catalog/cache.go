package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// CachedStore is a read-through Redis cache in front of another Store.
// Cache failures fall back to the underlying store.
type CachedStore struct {
	next   Store
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedStore wraps next with a Redis cache. A non-positive ttl disables caching.
func NewCachedStore(next Store, redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedStore {
	if next == nil {
		panic("catalog: underlying store cannot be nil")
	}
	if redisClient == nil {
		panic("catalog: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedStore{next: next, redis: redisClient, ttl: ttl, logger: logger}
}

func cacheKey(tenantID string) string {
	return fmt.Sprintf("catalog:active:%s", tenantID)
}

func (s *CachedStore) ListActive(ctx context.Context, tenantID string) ([]Offering, error) {
	if s.ttl <= 0 {
		return s.next.ListActive(ctx, tenantID)
	}

	data, err := s.redis.Get(ctx, cacheKey(tenantID)).Bytes()
	switch {
	case err == nil:
		var offerings []Offering
		if jsonErr := json.Unmarshal(data, &offerings); jsonErr == nil {
			return offerings, nil
		}
		s.logger.Warn("catalog cache entry corrupt", "tenant_id", tenantID)
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("catalog cache read failed", "tenant_id", tenantID, "error", err)
	}

	offerings, err := s.next.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(offerings); err == nil {
		if err := s.redis.Set(ctx, cacheKey(tenantID), payload, s.ttl).Err(); err != nil {
			s.logger.Warn("catalog cache write failed", "tenant_id", tenantID, "error", err)
		}
	}
	return offerings, nil
}

func (s *CachedStore) Get(ctx context.Context, tenantID string, id uuid.UUID) (*Offering, error) {
	offerings, err := s.ListActive(ctx, tenantID)
	if err == nil {
		for _, o := range offerings {
			if o.ID == id {
				found := o
				return &found, nil
			}
		}
	}
	return s.next.Get(ctx, tenantID, id)
}

// Invalidate drops the cached catalog for a tenant.
func (s *CachedStore) Invalidate(ctx context.Context, tenantID string) error {
	if err := s.redis.Del(ctx, cacheKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("catalog: invalidate cache: %w", err)
	}
	return nil
}
