package domain

import "context"

// JobRepository defines persistence for job entities. Every stage transition
// is persisted before the next stage begins, so a crash between stages leaves
// the job resumable from its last committed status.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	Update(ctx context.Context, job *Job) error
}

// BrandContextProvider supplies a brand's full guideline set and its
// pre-computed Compressed Twin. Returns ErrNotFound for unknown brands.
type BrandContextProvider interface {
	GetBrandContext(ctx context.Context, brandID string) (*BrandContext, error)
}

// AssetRepository handles persistence for generated assets.
type AssetRepository interface {
	Save(ctx context.Context, asset *Asset) error
	ListByJobID(ctx context.Context, jobID string) ([]Asset, error)
}

// AnalyticsRepository updates daily metrics counters.
type AnalyticsRepository interface {
	IncrementCounters(ctx context.Context, day string, counters map[string]int) error
}

// Notifier delivers the terminal-status webhook. Fired exactly once per job;
// delivery retries belong to the external collaborator, not this core.
type Notifier interface {
	Notify(ctx context.Context, job *Job) error
}
