package salon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ProfileStore reads and writes salon profiles.
type ProfileStore interface {
	Get(ctx context.Context, tenantID string) (*Profile, error)
	Set(ctx context.Context, profile *Profile) error
}

// Store persists salon profiles in Redis.
type Store struct {
	redis *redis.Client
}

// NewStore creates a new salon profile store.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("salon: redis client cannot be nil")
	}
	return &Store{redis: redisClient}
}

func (s *Store) key(tenantID string) string {
	return fmt.Sprintf("salon:profile:%s", tenantID)
}

// Get retrieves the salon profile, returning the default if none was saved.
func (s *Store) Get(ctx context.Context, tenantID string) (*Profile, error) {
	data, err := s.redis.Get(ctx, s.key(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultProfile(tenantID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("salon: get profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("salon: unmarshal profile: %w", err)
	}
	return &profile, nil
}

// Set saves the salon profile.
func (s *Store) Set(ctx context.Context, profile *Profile) error {
	if profile == nil || strings.TrimSpace(profile.TenantID) == "" {
		return errors.New("salon: profile tenant id required")
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("salon: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(profile.TenantID), data, 0).Err(); err != nil {
		return fmt.Errorf("salon: set profile: %w", err)
	}
	return nil
}

// StaticStore serves fixed profiles; unknown tenants get the default profile.
type StaticStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewStaticStore builds a StaticStore from the given profiles.
func NewStaticStore(profiles ...*Profile) *StaticStore {
	s := &StaticStore{profiles: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		if p != nil {
			s.profiles[p.TenantID] = p
		}
	}
	return s
}

func (s *StaticStore) Get(_ context.Context, tenantID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[tenantID]; ok {
		copied := *p
		return &copied, nil
	}
	return DefaultProfile(tenantID), nil
}

func (s *StaticStore) Set(_ context.Context, profile *Profile) error {
	if profile == nil || strings.TrimSpace(profile.TenantID) == "" {
		return errors.New("salon: profile tenant id required")
	}
	copied := *profile
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.TenantID] = &copied
	return nil
}
