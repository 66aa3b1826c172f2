package salon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStoreReturnsDefaultForUnknownTenant(t *testing.T) {
	store := NewStore(setupTestRedis(t))

	profile, err := store.Get(context.Background(), "salon-9")
	require.NoError(t, err)
	assert.Equal(t, "salon-9", profile.TenantID)
	assert.Equal(t, 30, profile.SlotIntervalMinutes)
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(setupTestRedis(t))
	ctx := context.Background()

	profile := DefaultProfile("salon-1")
	profile.Name = "Glow Studio"
	profile.BusinessHours.Sunday = &DayHours{Open: "10:00", Close: "14:00"}
	require.NoError(t, store.Set(ctx, profile))

	got, err := store.Get(ctx, "salon-1")
	require.NoError(t, err)
	assert.Equal(t, "Glow Studio", got.Name)
	require.NotNil(t, got.BusinessHours.Sunday)
	assert.Equal(t, "14:00", got.BusinessHours.Sunday.Close)
}

func TestStoreSetRequiresTenant(t *testing.T) {
	store := NewStore(setupTestRedis(t))
	assert.Error(t, store.Set(context.Background(), &Profile{}))
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Mount("/admin/salons", h.Routes())
	return r
}

func TestHandlerUpdateAndGet(t *testing.T) {
	h := NewHandler(NewStaticStore(), logging.Default())
	router := newRouter(h)

	body, _ := json.Marshal(map[string]any{
		"name":                  "Glow Studio",
		"timezone":              "Europe/London",
		"slot_interval_minutes": 15,
	})
	req := httptest.NewRequest(http.MethodPut, "/admin/salons/salon-1/profile", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/admin/salons/salon-1/profile", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Glow Studio", got.Name)
	assert.Equal(t, "Europe/London", got.Timezone)
	assert.Equal(t, 15, got.SlotIntervalMinutes)
	assert.Equal(t, "INR", got.Currency)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	router := newRouter(NewHandler(NewStaticStore(), nil))

	cases := []string{
		`{"timezone": "Nowhere/City"}`,
		`{"slot_interval_minutes": 1}`,
		`not json`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPut, "/admin/salons/salon-1/profile", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}
