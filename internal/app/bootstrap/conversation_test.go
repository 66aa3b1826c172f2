package bootstrap

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/salon-booking-platform/internal/config"
	"github.com/wolfman30/salon-booking-platform/internal/conversation"
	"github.com/wolfman30/salon-booking-platform/internal/events"
	"github.com/wolfman30/salon-booking-platform/internal/notify"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		SessionInactivityWindow: 24 * time.Hour,
		SessionLockTTL:          time.Second,
		SessionLockWait:         time.Second,
		MaxSlotsShown:           10,
		DateOptionsShown:        7,
		NumericDateOrder:        "dmy",
		BookingNote:             "booked via chat",
		DemoTenantID:            "demo",
		UseMemoryQueue:          true,
		OutboxPollInterval:      time.Second,
	}
}

func TestBuildConversationRequiresConfig(t *testing.T) {
	if _, err := BuildConversation(context.Background(), nil, Infra{}, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildConversationInMemorySeedsDemoSalon(t *testing.T) {
	conv, err := BuildConversation(context.Background(), testConfig(), Infra{Registerer: prometheus.NewRegistry()}, logging.New("error"))
	require.NoError(t, err)

	reply, err := conv.Engine.Handle(context.Background(), conversation.InboundMessage{
		TenantID:    "demo",
		PhoneNumber: "+919876543210",
		Message:     "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, conversation.StepAwaitingService, reply.CurrentStep)
	assert.Contains(t, reply.ReplyText, "Welcome to Glow Demo Salon!")
	assert.Contains(t, reply.ReplyText, "Haircut")

	_, ok := conv.Outbox.(*events.MemoryOutbox)
	assert.True(t, ok, "expected in-memory outbox, got %T", conv.Outbox)
}

func TestBuildConversationKeepsSavedProfileName(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()
	client := BuildRedisClient(context.Background(), cfg, nil, true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	store := salon.NewStore(client)
	saved := salon.DefaultProfile("demo")
	saved.Name = "Asha's Studio"
	require.NoError(t, store.Set(context.Background(), saved))

	conv, err := BuildConversation(context.Background(), cfg, Infra{Redis: client}, nil)
	require.NoError(t, err)

	profile, err := conv.Profiles.Get(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, "Asha's Studio", profile.Name)
}

func TestBuildRedisClientDisabled(t *testing.T) {
	cfg := testConfig()
	if client := BuildRedisClient(context.Background(), cfg, nil, true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
	cfg.RedisAddr = "127.0.0.1:1"
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when redis is unreachable")
	}
}

func TestBuildProfileStore(t *testing.T) {
	if _, ok := BuildProfileStore(nil).(*salon.StaticStore); !ok {
		t.Fatalf("expected static store without redis")
	}
}

func TestReminderRedisOptUsesReminderDB(t *testing.T) {
	cfg := testConfig()
	cfg.RedisAddr = "redis:6379"
	cfg.RedisPassword = "pw"
	cfg.ReminderRedisDB = 3
	cfg.RedisTLS = true

	opt := ReminderRedisOpt(cfg)
	assert.Equal(t, "redis:6379", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 3, opt.DB)
	assert.NotNil(t, opt.TLSConfig)
}

func TestBuildPostgresPoolEmptyURL(t *testing.T) {
	pool, err := BuildPostgresPool(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	assert.Nil(t, pool)

	db, err := BuildSQLDB(testConfig())
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestBuildAsyncDefaultsToMemory(t *testing.T) {
	async, err := BuildAsync(testConfig(), nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, async.InProcess)
	assert.IsType(t, &conversation.MemoryQueue{}, async.Queue)
	assert.IsType(t, &conversation.MemoryJobStore{}, async.Jobs)
	assert.NotNil(t, async.Publisher)
}

func TestBuildAsyncRejectsBadStores(t *testing.T) {
	for _, kind := range []string{"postgres", "dynamodb", "etcd"} {
		cfg := testConfig()
		cfg.JobStore = kind
		if _, err := BuildAsync(cfg, nil, nil, nil); err == nil {
			t.Fatalf("expected error for JOB_STORE=%s", kind)
		}
	}

	cfg := testConfig()
	cfg.UseMemoryQueue = false
	cfg.ConversationQueueURL = "https://sqs.ap-south-1.amazonaws.com/123/inbound.fifo"
	_, err := BuildAsync(cfg, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "AWS"))
}

func TestBuildEmailSenderFallsBackToStub(t *testing.T) {
	sender := BuildEmailSender(testConfig(), nil, logging.New("error"))
	assert.IsType(t, &notify.StubEmailSender{}, sender)

	cfg := testConfig()
	cfg.SendGridAPIKey = "SG.key"
	cfg.SendGridFromEmail = "bookings@glow.example"
	assert.IsType(t, &notify.SendGridSender{}, BuildEmailSender(cfg, nil, nil))
}

func TestBuildReminderSchedulerDisabled(t *testing.T) {
	scheduler, client := BuildReminderScheduler(testConfig(), nil)
	assert.Nil(t, scheduler)
	assert.Nil(t, client)
}

func TestBuildDelivererEmailsSalon(t *testing.T) {
	outbox := events.NewMemoryOutbox()
	profile := salon.DefaultProfile("glow")
	profile.Name = "Glow Salon"
	profile.Notifications = salon.NotificationPrefs{EmailEnabled: true, EmailRecipients: []string{"owner@glow.example"}}
	profiles := salon.NewStaticStore(profile)
	email := notify.NewStubEmailSender(logging.New("error"))

	_, err := outbox.Append(context.Background(), "glow", "booking:1", "", events.BookingConfirmedV1{
		BookingID:       "b-1",
		TenantID:        "glow",
		ServiceName:     "Haircut",
		StaffName:       "Asha",
		CustomerPhone:   "+919876543210",
		ScheduledAt:     time.Date(2026, 10, 20, 5, 0, 0, 0, time.UTC),
		DurationMinutes: 45,
		AmountMinor:     50000,
		Currency:        "INR",
	})
	require.NoError(t, err)

	d := BuildDeliverer(testConfig(), outbox, email, profiles, nil, prometheus.NewRegistry(), logging.New("error"))
	d.Drain(context.Background())

	sent := email.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner@glow.example", sent[0].To)
	assert.Empty(t, outbox.Pending())
}
