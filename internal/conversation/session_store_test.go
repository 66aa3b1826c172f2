package conversation

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

func setupRedisSessions(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, ttl), mr
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	store, mr := setupRedisSessions(t, 24*time.Hour)
	ctx := context.Background()

	_, err := store.Get(ctx, "salon-1", "+919812345678")
	require.ErrorIs(t, err, ErrSessionNotFound)

	s := NewSession("salon-1", "+919812345678", testNow)
	s.Step = StepAwaitingTime
	s.chooseService(uuid.New(), "Haircut")
	s.Date = "2026-10-20"
	s.OfferedTimes = []string{"09:00", "09:30"}
	require.NoError(t, store.Put(ctx, s))

	key := "salon:session:salon-1:+919812345678"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 24*time.Hour, mr.TTL(key))

	got, err := store.Get(ctx, "salon-1", "+91 98123 45678")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, StepAwaitingTime, got.Step)
	assert.Equal(t, "Haircut", got.ServiceName)
	assert.Equal(t, []string{"09:00", "09:30"}, got.OfferedTimes)

	require.NoError(t, store.Delete(ctx, "salon-1", "+919812345678"))
	assert.False(t, mr.Exists(key))
}

func TestRedisSessionStoreExpiresWithTTL(t *testing.T) {
	store, mr := setupRedisSessions(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, NewSession("salon-1", "+919812345678", testNow)))

	mr.FastForward(61 * time.Minute)
	_, err := store.Get(ctx, "salon-1", "+919812345678")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStoreSurfacesErrors(t *testing.T) {
	store, mr := setupRedisSessions(t, time.Hour)
	mr.SetError("READONLY")
	_, err := store.Get(context.Background(), "salon-1", "+919812345678")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestStateStoreExpiresIdleSessions(t *testing.T) {
	now := testNow
	backend := NewMemorySessionStore()
	states := NewStateStore(backend, 24*time.Hour, nil, WithStateClock(func() time.Time { return now }))
	ctx := context.Background()

	fresh, expired, err := states.Load(ctx, "salon-1", "+919812345678")
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, StepWelcome, fresh.Step)

	fresh.Step = StepAwaitingDate
	fresh.CustomerName = "Priya"
	require.NoError(t, states.Save(ctx, fresh))

	now = now.Add(24 * time.Hour)
	same, expired, err := states.Load(ctx, "salon-1", "+919812345678")
	require.NoError(t, err)
	assert.False(t, expired, "exactly the window is still active")
	assert.Equal(t, fresh.ID, same.ID)

	now = now.Add(time.Minute)
	reset, expired, err := states.Load(ctx, "salon-1", "+919812345678")
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, StepWelcome, reset.Step)
	assert.NotEqual(t, fresh.ID, reset.ID)
	assert.Equal(t, "Priya", reset.CustomerName)
}

func TestStateStoreSaveStampsAndClearRemoves(t *testing.T) {
	now := testNow
	backend := NewMemorySessionStore()
	states := NewStateStore(backend, time.Hour, nil, WithStateClock(func() time.Time { return now }))
	ctx := context.Background()

	s := NewSession("salon-1", "+919812345678", testNow.Add(-time.Hour))
	now = now.Add(5 * time.Minute)
	require.NoError(t, states.Save(ctx, s))
	stored, err := backend.Get(ctx, "salon-1", "+919812345678")
	require.NoError(t, err)
	assert.True(t, stored.LastUpdatedAt.Equal(now))

	require.NoError(t, states.Clear(ctx, "salon-1", "+919812345678"))
	_, err = backend.Get(ctx, "salon-1", "+919812345678")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionSelectionsClearDownstream(t *testing.T) {
	s := NewSession("salon-1", "+919812345678", testNow)
	s.chooseService(uuid.New(), "Haircut")
	s.Date = "2026-10-20"
	s.OfferedTimes = []string{"10:00"}
	s.Time = "10:00"
	s.StaffID = uuid.New()
	s.StaffName = "Asha"

	at, ok := s.ScheduledAt(kolkata)
	require.True(t, ok)
	assert.True(t, at.Equal(time.Date(2026, 10, 20, 10, 0, 0, 0, kolkata)))

	s.clearTime()
	assert.Empty(t, s.Time)
	assert.Empty(t, s.StaffName)
	assert.Equal(t, "2026-10-20", s.Date)

	s.chooseService(uuid.New(), "Pedicure")
	assert.Empty(t, s.Date)
	assert.Equal(t, "Pedicure", s.ServiceName)

	id := s.ID
	s.CustomerName = "Priya"
	s.Reset(testNow)
	assert.NotEqual(t, id, s.ID)
	assert.Equal(t, StepWelcome, s.Step)
	assert.Empty(t, s.ServiceName)
	assert.Equal(t, "Priya", s.CustomerName)
}
