package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"brandguard/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	scores, err := marshalScores(job.ComplianceScores)
	if err != nil {
		return err
	}
	query := `
INSERT INTO jobs (id, brand_id, status, attempt_count, is_tweak, current_image_url, original_had_logos,
                  user_prompt, user_tweak_instruction, compliance_scores, idempotency_key, expires_at,
                  webhook_url, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.BrandID,
		job.Status,
		job.AttemptCount,
		job.IsTweak,
		nullableString(job.CurrentImageURL),
		job.OriginalHadLogos,
		job.UserPrompt,
		nullableString(job.UserTweakInstruction),
		scores,
		nullableString(job.IdempotencyKey),
		nullableTime(job.ExpiresAt),
		nullableString(job.WebhookURL),
		nullableString(job.ErrorMessage),
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// Update persists all pipeline-mutable fields. The write-once rule for
// original_had_logos is reinforced in SQL: once set, the stored value wins.
func (r *JobRepositoryPG) Update(ctx context.Context, job *domain.Job) error {
	scores, err := marshalScores(job.ComplianceScores)
	if err != nil {
		return err
	}
	query := `
UPDATE jobs
SET status = $2,
    attempt_count = $3,
    current_image_url = $4,
    original_had_logos = COALESCE(original_had_logos, $5),
    compliance_scores = $6,
    error_message = $7,
    updated_at = $8
WHERE id = $1;
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.AttemptCount,
		nullableString(job.CurrentImageURL),
		job.OriginalHadLogos,
		scores,
		nullableString(job.ErrorMessage),
		job.UpdatedAt,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT id, brand_id, status, attempt_count, is_tweak, COALESCE(current_image_url, ''), original_had_logos,
       user_prompt, COALESCE(user_tweak_instruction, ''), compliance_scores, COALESCE(idempotency_key, ''),
       expires_at, COALESCE(webhook_url, ''), COALESCE(error_message, ''), created_at, updated_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	return scanJob(row)
}

// ClaimPending atomically claims the oldest pending job for this worker,
// moving it to generating so concurrent workers skip it. Returns
// domain.ErrNotFound when the queue is empty.
func (r *JobRepositoryPG) ClaimPending(ctx context.Context) (*domain.Job, error) {
	query := `
UPDATE jobs
SET status = 'generating', updated_at = NOW()
WHERE id = (
    SELECT id FROM jobs
    WHERE status = 'pending'
    ORDER BY created_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING id, brand_id, status, attempt_count, is_tweak, COALESCE(current_image_url, ''), original_had_logos,
          user_prompt, COALESCE(user_tweak_instruction, ''), compliance_scores, COALESCE(idempotency_key, ''),
          expires_at, COALESCE(webhook_url, ''), COALESCE(error_message, ''), created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, query)
	return scanJob(row)
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var scores []byte
	var expiresAt *time.Time
	if err := row.Scan(
		&job.ID,
		&job.BrandID,
		&job.Status,
		&job.AttemptCount,
		&job.IsTweak,
		&job.CurrentImageURL,
		&job.OriginalHadLogos,
		&job.UserPrompt,
		&job.UserTweakInstruction,
		&scores,
		&job.IdempotencyKey,
		&expiresAt,
		&job.WebhookURL,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if expiresAt != nil {
		job.ExpiresAt = *expiresAt
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &job.ComplianceScores); err != nil {
			return nil, fmt.Errorf("decode compliance scores: %w", err)
		}
	}
	return &job, nil
}

func marshalScores(scores []domain.ComplianceScore) ([]byte, error) {
	if len(scores) == 0 {
		return []byte("[]"), nil
	}
	raw, err := json.Marshal(scores)
	if err != nil {
		return nil, fmt.Errorf("encode compliance scores: %w", err)
	}
	return raw, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
