package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type jobQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGJobStore persists job records to PostgreSQL for deployments without DynamoDB.
type PGJobStore struct {
	db jobQuerier
}

// NewPGJobStore builds a Postgres-backed job store.
func NewPGJobStore(db *pgxpool.Pool) *PGJobStore {
	if db == nil {
		panic("conversation: pgx pool cannot be nil")
	}
	return &PGJobStore{db: db}
}

func newPGJobStoreWithQuerier(db jobQuerier) *PGJobStore {
	return &PGJobStore{db: db}
}

var _ JobRecorder = (*PGJobStore)(nil)
var _ JobUpdater = (*PGJobStore)(nil)

// PutPending inserts a pending job record.
func (s *PGJobStore) PutPending(ctx context.Context, job *JobRecord) error {
	if job == nil {
		return errors.New("conversation: job cannot be nil")
	}
	stampPending(job)

	reqJSON, err := marshalJSON(job.Request)
	if err != nil {
		return err
	}
	now, _ := time.Parse(time.RFC3339Nano, job.CreatedAt)
	expiresAt := time.Unix(job.ExpiresAt, 0).UTC()
	if _, execErr := s.db.Exec(ctx, `
		INSERT INTO conversation_jobs (
			job_id, status, request_type, tenant_id,
			request, reply, error_message,
			created_at, updated_at, expires_at
		)
		VALUES ($1,$2,$3,$4,$5,NULL,$6,$7,$8,$9)
	`, job.JobID, string(job.Status), string(job.RequestType), nullString(job.TenantID), reqJSON, job.ErrorMessage, now, now, expiresAt); execErr != nil {
		return fmt.Errorf("conversation: failed to persist job: %w", execErr)
	}
	return nil
}

// MarkCompleted updates the job as completed with the reply that was sent.
func (s *PGJobStore) MarkCompleted(ctx context.Context, jobID string, reply *Reply) error {
	if jobID == "" {
		return errors.New("conversation: jobID required")
	}
	replyJSON, err := marshalJSON(reply)
	if err != nil {
		return err
	}

	result, execErr := s.db.Exec(ctx, `
		UPDATE conversation_jobs
		SET status = $2,
		    reply = $3,
		    error_message = '',
		    updated_at = $4
		WHERE job_id = $1
	`, jobID, string(JobStatusCompleted), replyJSON, time.Now().UTC())
	if execErr != nil {
		return fmt.Errorf("conversation: failed to update job: %w", execErr)
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// MarkFailed marks the job as failed with an error message.
func (s *PGJobStore) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	if jobID == "" {
		return errors.New("conversation: jobID required")
	}

	result, execErr := s.db.Exec(ctx, `
		UPDATE conversation_jobs
		SET status = $2,
		    reply = NULL,
		    error_message = $3,
		    updated_at = $4
		WHERE job_id = $1
	`, jobID, string(JobStatusFailed), errMsg, time.Now().UTC())
	if execErr != nil {
		return fmt.Errorf("conversation: failed to update job: %w", execErr)
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// GetJob loads a job by ID.
func (s *PGJobStore) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	if jobID == "" {
		return nil, errors.New("conversation: jobID required")
	}

	var (
		requestJSON []byte
		replyJSON   []byte
		tenantID    pgtype.Text
		createdAt   time.Time
		updatedAt   time.Time
		expiresAt   pgtype.Timestamptz
		status      string
		reqType     string
		errMsg      string
	)

	row := s.db.QueryRow(ctx, `
		SELECT job_id, status, request_type, tenant_id,
		       request, reply, error_message,
		       created_at, updated_at, expires_at
		FROM conversation_jobs
		WHERE job_id = $1
	`, jobID)

	if err := row.Scan(&jobID, &status, &reqType, &tenantID,
		&requestJSON, &replyJSON, &errMsg,
		&createdAt, &updatedAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("conversation: failed to fetch job: %w", err)
	}

	job := &JobRecord{
		JobID:        jobID,
		Status:       JobStatus(status),
		RequestType:  jobType(reqType),
		ErrorMessage: errMsg,
		CreatedAt:    createdAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    updatedAt.UTC().Format(time.RFC3339Nano),
	}
	if tenantID.Valid {
		job.TenantID = tenantID.String
	}
	if expiresAt.Valid {
		job.ExpiresAt = expiresAt.Time.Unix()
	}

	if len(requestJSON) > 0 {
		var req InboundMessage
		if err := json.Unmarshal(requestJSON, &req); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode request: %w", err)
		}
		job.Request = &req
	}
	if len(replyJSON) > 0 {
		var reply Reply
		if err := json.Unmarshal(replyJSON, &reply); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode reply: %w", err)
		}
		job.Reply = &reply
	}
	return job, nil
}

func marshalJSON(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *InboundMessage:
		if t == nil {
			return nil, nil
		}
	case *Reply:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to encode json: %w", err)
	}
	return data, nil
}

func nullString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
