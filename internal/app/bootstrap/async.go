package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/salon-booking-platform/internal/config"
	"github.com/wolfman30/salon-booking-platform/internal/conversation"
	"github.com/wolfman30/salon-booking-platform/internal/events"
	"github.com/wolfman30/salon-booking-platform/internal/notify"
	"github.com/wolfman30/salon-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/salon-booking-platform/internal/reminders"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

const memoryQueueBuffer = 1024

// JobStore both records and updates async job state.
type JobStore interface {
	conversation.JobRecorder
	conversation.JobUpdater
}

// Async is the inbound queue, its publisher and the job store.
type Async struct {
	Queue     conversation.Queue
	InProcess bool
	Publisher *conversation.Publisher
	Jobs      JobStore
}

// BuildAsync picks the queue and job store. awsCfg may be nil when no AWS
// service is configured; asking for SQS or DynamoDB without it is an error.
func BuildAsync(cfg *appconfig.Config, awsCfg *aws.Config, pool *pgxpool.Pool, logger *logging.Logger) (*Async, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	out := &Async{}
	if cfg.UseMemoryQueue || strings.TrimSpace(cfg.ConversationQueueURL) == "" {
		out.Queue = conversation.NewMemoryQueue(memoryQueueBuffer)
		out.InProcess = true
		logger.Info("using in-memory conversation queue")
	} else {
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: CONVERSATION_QUEUE_URL set but AWS is not configured")
		}
		out.Queue = conversation.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.ConversationQueueURL)
		logger.Info("using sqs conversation queue", "queue_url", cfg.ConversationQueueURL)
	}
	out.Publisher = conversation.NewPublisher(out.Queue, logger)

	kind := cfg.JobStore
	if kind == "" {
		switch {
		case pool != nil:
			kind = "postgres"
		case !out.InProcess && awsCfg != nil:
			kind = "dynamodb"
		default:
			kind = "memory"
		}
	}
	switch kind {
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: JOB_STORE=postgres requires DATABASE_URL")
		}
		out.Jobs = conversation.NewPGJobStore(pool)
	case "dynamodb":
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: JOB_STORE=dynamodb requires AWS configuration")
		}
		out.Jobs = conversation.NewJobStore(dynamodb.NewFromConfig(*awsCfg), cfg.ConversationJobsTable, logger)
	case "memory":
		if !out.InProcess {
			logger.Warn("in-memory job store with an external queue; job status is only visible to this process")
		}
		out.Jobs = conversation.NewMemoryJobStore()
	default:
		return nil, fmt.Errorf("bootstrap: unknown JOB_STORE %q", kind)
	}
	logger.Info("conversation job store ready", "store", kind)
	return out, nil
}

// BuildEmailSender prefers SendGrid, then SES, then a logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		logger.Info("email notifications via sendgrid")
		return sender
	}
	if awsCfg != nil && cfg.SESFromEmail != "" {
		if sender := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			logger.Info("email notifications via ses")
			return sender
		}
	}
	logger.Warn("no email provider configured; booking emails are logged only")
	return notify.NewStubEmailSender(logger)
}

// BuildReminderScheduler returns nil when reminders are disabled. The caller
// closes the returned client.
func BuildReminderScheduler(cfg *appconfig.Config, logger *logging.Logger) (*reminders.Scheduler, *asynq.Client) {
	if !cfg.RemindersEnabled || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil
	}
	client := asynq.NewClient(ReminderRedisOpt(cfg))
	return reminders.NewScheduler(client, cfg.ReminderLeadTime, logger), client
}

// BuildDeliverer routes booking.confirmed.v1 events to the salon email and,
// when scheduled, the customer reminder.
func BuildDeliverer(cfg *appconfig.Config, source events.Source, email notify.EmailSender, profiles salon.ProfileStore,
	scheduler *reminders.Scheduler, reg prometheus.Registerer, logger *logging.Logger) *events.Deliverer {
	fanout := events.NewFanout().
		On(events.BookingConfirmedType, notify.NewService(email, profiles, logger).OutboxHandler())
	if scheduler != nil {
		fanout.On(events.BookingConfirmedType, scheduler.OutboxHandler())
	}
	d := events.NewDeliverer(source, fanout, logger).WithInterval(cfg.OutboxPollInterval)
	if reg != nil {
		d.WithMetrics(metrics.NewOutboxMetrics(reg))
	}
	return d
}
