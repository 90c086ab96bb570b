package idempotency

import (
	"context"
	"errors"
	"time"

	"brandguard/internal/domain"
	"brandguard/internal/infra"
)

// Guard short-circuits job creation when a caller-supplied key matches a
// live, unexpired prior job. The existing job is returned unchanged; no new
// job is created.
type Guard struct {
	store  Store
	jobs   domain.JobRepository
	ttl    time.Duration
	logger infra.Logger
}

func NewGuard(store Store, jobs domain.JobRepository, ttl time.Duration, logger infra.Logger) *Guard {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Guard{store: store, jobs: jobs, ttl: ttl, logger: logger}
}

// Check returns the existing job for the key, or nil when the key is new,
// expired, or empty. A stale mapping to a vanished job is treated as new.
func (g *Guard) Check(ctx context.Context, key string) (*domain.Job, error) {
	if key == "" {
		return nil, nil
	}
	jobID, err := g.store.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if jobID == "" {
		return nil, nil
	}

	job, err := g.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			g.logger.Warn().
				Str("idempotency_key", key).
				Str("job_id", jobID).
				Msg("idempotency: key maps to missing job, treating as new")
			return nil, nil
		}
		return nil, err
	}
	if !job.ExpiresAt.IsZero() && time.Now().After(job.ExpiresAt) {
		return nil, nil
	}

	g.logger.Info().
		Str("idempotency_key", key).
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Msg("idempotency: short-circuiting duplicate job creation")
	return job, nil
}

// Remember binds the key to a freshly created job for the guard's TTL and
// stamps the job's expiry.
func (g *Guard) Remember(ctx context.Context, key string, job *domain.Job) error {
	if key == "" {
		return nil
	}
	job.IdempotencyKey = key
	if job.ExpiresAt.IsZero() {
		job.ExpiresAt = time.Now().UTC().Add(g.ttl)
	}
	return g.store.Remember(ctx, key, job.ID, g.ttl)
}
