package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPGJobStore_PutPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPGJobStoreWithQuerier(mock)
	mock.ExpectExec("INSERT INTO conversation_jobs").
		WithArgs("job-1", "pending", "inbound_message", "salon-1", pgxmock.AnyArg(), "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job := &JobRecord{
		JobID:       "job-1",
		RequestType: jobTypeInbound,
		TenantID:    "salon-1",
		Request:     &InboundMessage{TenantID: "salon-1", PhoneNumber: "+919812345678", Message: "hi"},
	}
	if err := store.PutPending(context.Background(), job); err != nil {
		t.Fatalf("PutPending returned error: %v", err)
	}
	if job.Status != JobStatusPending || job.ExpiresAt == 0 {
		t.Fatalf("expected defaults to be stamped, got %#v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGJobStore_MarkCompletedMissingJob(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPGJobStoreWithQuerier(mock)
	mock.ExpectExec("UPDATE conversation_jobs").
		WithArgs("job-x", "completed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.MarkCompleted(context.Background(), "job-x", &Reply{ReplyText: "ok"})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGJobStore_GetJobDecodesPayloads(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"job_id", "status", "request_type", "tenant_id", "request", "reply",
		"error_message", "created_at", "updated_at", "expires_at"}).
		AddRow("job-1", "completed", "inbound_message", "salon-1",
			[]byte(`{"tenantId":"salon-1","phoneNumber":"+919812345678","message":"yes"}`),
			[]byte(`{"replyText":"You're booked!","currentStep":"COMPLETED","bookingId":"b-1"}`),
			"", created, created, created.Add(jobTTL))
	mock.ExpectQuery("SELECT job_id").WithArgs("job-1").WillReturnRows(rows)

	job, err := newPGJobStoreWithQuerier(mock).GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if job.Status != JobStatusCompleted || job.TenantID != "salon-1" {
		t.Fatalf("unexpected job %#v", job)
	}
	if job.Request == nil || job.Request.Message != "yes" {
		t.Fatalf("expected request to decode, got %#v", job.Request)
	}
	if job.Reply == nil || job.Reply.BookingID != "b-1" || job.Reply.CurrentStep != StepCompleted {
		t.Fatalf("expected reply to decode, got %#v", job.Reply)
	}
	if job.ExpiresAt != created.Add(jobTTL).Unix() {
		t.Fatalf("unexpected expiry %d", job.ExpiresAt)
	}
}

func TestPGJobStore_GetJobNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT job_id").WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"job_id"}))

	if _, err := newPGJobStoreWithQuerier(mock).GetJob(context.Background(), "nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
