package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/salon-booking-platform/internal/tenancy"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

const sessionKeyPrefix = "salon:session:"

// ErrSessionNotFound is returned by backends when no session is stored.
var ErrSessionNotFound = errors.New("conversation: session not found")

// SessionStore is a raw session backend keyed by tenant and phone.
type SessionStore interface {
	Get(ctx context.Context, tenantID, phone string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, tenantID, phone string) error
}

// StateStore applies the inactivity window on top of a backend: a missing or
// stale session loads as a fresh one at WELCOME.
type StateStore struct {
	backend SessionStore
	window  time.Duration
	now     func() time.Time
	logger  *logging.Logger
}

// StateStoreOption customizes a StateStore.
type StateStoreOption func(*StateStore)

// WithStateClock overrides the time source.
func WithStateClock(now func() time.Time) StateStoreOption {
	return func(s *StateStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStateStore expires sessions idle for longer than window.
func NewStateStore(backend SessionStore, window time.Duration, logger *logging.Logger, opts ...StateStoreOption) *StateStore {
	if backend == nil {
		panic("conversation: session backend cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &StateStore{backend: backend, window: window, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the current session. expired is true when an old session was
// discarded because it sat idle past the window.
func (s *StateStore) Load(ctx context.Context, tenantID, phone string) (session *Session, expired bool, err error) {
	now := s.now()
	existing, err := s.backend.Get(ctx, tenantID, phone)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return NewSession(tenantID, phone, now), false, nil
	case err != nil:
		return nil, false, err
	}
	if existing.Expired(now, s.window) {
		s.logger.Info("conversation session expired",
			"tenant_id", tenantID,
			"phone", logging.MaskPhone(phone),
			"step", existing.Step,
			"last_updated_at", existing.LastUpdatedAt,
		)
		fresh := NewSession(tenantID, phone, now)
		fresh.CustomerName = existing.CustomerName
		return fresh, true, nil
	}
	return existing, false, nil
}

// Save stamps the session and writes it back.
func (s *StateStore) Save(ctx context.Context, session *Session) error {
	session.LastUpdatedAt = s.now().UTC()
	return s.backend.Put(ctx, session)
}

// Clear removes the session so the next message starts over.
func (s *StateStore) Clear(ctx context.Context, tenantID, phone string) error {
	return s.backend.Delete(ctx, tenantID, phone)
}

// RedisSessionStore keeps sessions as JSON with a TTL equal to the inactivity window.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisSessionStore keeps sessions in Redis with the given TTL.
func NewRedisSessionStore(redisClient *redis.Client, ttl time.Duration) *RedisSessionStore {
	if redisClient == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisSessionStore{
		redis:  redisClient,
		ttl:    ttl,
		tracer: otel.Tracer("salon.internal.conversation.session"),
	}
}

func sessionKey(tenantID, phone string) string {
	return sessionKeyPrefix + tenancy.SessionKey(tenantID, phone)
}

func (s *RedisSessionStore) Get(ctx context.Context, tenantID, phone string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session.get")
	defer span.End()
	span.SetAttributes(attribute.String("salon.tenant_id", tenantID))

	raw, err := s.redis.Get(ctx, sessionKey(tenantID, phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, session *Session) error {
	ctx, span := s.tracer.Start(ctx, "conversation.session.put")
	defer span.End()
	span.SetAttributes(
		attribute.String("salon.tenant_id", session.TenantID),
		attribute.String("salon.step", string(session.Step)),
	)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("conversation: encode session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.TenantID, session.Phone), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, tenantID, phone string) error {
	if err := s.redis.Del(ctx, sessionKey(tenantID, phone)).Err(); err != nil {
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}

// MemorySessionStore keeps sessions in process.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func (s *MemorySessionStore) Get(_ context.Context, tenantID, phone string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[tenancy.SessionKey(tenantID, phone)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.clone(), nil
}

func (s *MemorySessionStore) Put(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[tenancy.SessionKey(session.TenantID, session.Phone)] = session.clone()
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, tenantID, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tenancy.SessionKey(tenantID, phone))
	return nil
}
