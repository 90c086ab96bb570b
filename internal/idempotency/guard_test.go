package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandguard/internal/domain"
)

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]domain.Job
}

func newMemJobs() *memJobs { return &memJobs{jobs: make(map[string]domain.Job)} }

func (m *memJobs) Create(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobs) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *memJobs) Update(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func newRedisGuard(t *testing.T, jobs domain.JobRepository, ttl time.Duration) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewGuard(NewRedisStore(rdb), jobs, ttl, zerolog.Nop()), mr
}

func TestGuardShortCircuitsDuplicateCreation(t *testing.T) {
	jobs := newMemJobs()
	guard, _ := newRedisGuard(t, jobs, time.Hour)
	ctx := context.Background()

	job := &domain.Job{
		ID:         "job-1",
		BrandID:    "brand-1",
		Status:     domain.JobStatusGenerating,
		UserPrompt: "a summer banner",
	}
	require.NoError(t, guard.Remember(ctx, "idem-1", job))
	require.NoError(t, jobs.Create(ctx, job))

	assert.Equal(t, "idem-1", job.IdempotencyKey)
	assert.False(t, job.ExpiresAt.IsZero(), "Remember must stamp an expiry")

	existing, err := guard.Check(ctx, "idem-1")
	require.NoError(t, err)
	require.NotNil(t, existing, "duplicate key must return the prior job")
	// The prior job is returned unchanged; no new job is created.
	assert.Equal(t, "job-1", existing.ID)
	assert.Equal(t, domain.JobStatusGenerating, existing.Status)
	assert.Equal(t, "a summer banner", existing.UserPrompt)
}

func TestGuardTreatsUnknownKeyAsNew(t *testing.T) {
	guard, _ := newRedisGuard(t, newMemJobs(), time.Hour)

	existing, err := guard.Check(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Nil(t, existing)
}

func TestGuardIgnoresEmptyKey(t *testing.T) {
	guard, _ := newRedisGuard(t, newMemJobs(), time.Hour)
	ctx := context.Background()

	existing, err := guard.Check(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, existing)

	// Remember with an empty key is a no-op, not an error.
	job := &domain.Job{ID: "job-1"}
	require.NoError(t, guard.Remember(ctx, "", job))
	assert.Empty(t, job.IdempotencyKey)
}

func TestGuardExpiredKeyTreatedAsNew(t *testing.T) {
	jobs := newMemJobs()
	guard, mr := newRedisGuard(t, jobs, time.Minute)
	ctx := context.Background()

	job := &domain.Job{ID: "job-1", Status: domain.JobStatusCompleted}
	require.NoError(t, guard.Remember(ctx, "idem-1", job))
	require.NoError(t, jobs.Create(ctx, job))

	mr.FastForward(2 * time.Minute)

	existing, err := guard.Check(ctx, "idem-1")
	require.NoError(t, err)
	assert.Nil(t, existing, "expired key must not short-circuit")
}

func TestGuardExpiredJobTreatedAsNew(t *testing.T) {
	// The redis key is still live but the job record itself has expired.
	jobs := newMemJobs()
	guard, _ := newRedisGuard(t, jobs, time.Hour)
	ctx := context.Background()

	job := &domain.Job{ID: "job-1", Status: domain.JobStatusCompleted}
	require.NoError(t, guard.Remember(ctx, "idem-1", job))
	job.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, jobs.Create(ctx, job))

	existing, err := guard.Check(ctx, "idem-1")
	require.NoError(t, err)
	assert.Nil(t, existing, "expired job must not short-circuit")
}

func TestGuardStaleMappingToMissingJob(t *testing.T) {
	jobs := newMemJobs()
	guard, _ := newRedisGuard(t, jobs, time.Hour)
	ctx := context.Background()

	vanished := &domain.Job{ID: "job-gone"}
	require.NoError(t, guard.Remember(ctx, "idem-1", vanished))
	// The job was never persisted, so the mapping is stale.

	existing, err := guard.Check(ctx, "idem-1")
	require.NoError(t, err)
	assert.Nil(t, existing, "stale mapping must be treated as new")
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Remember(ctx, "k", "job-1", 10*time.Millisecond))
	got, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got)

	time.Sleep(20 * time.Millisecond)
	got, err = store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}
