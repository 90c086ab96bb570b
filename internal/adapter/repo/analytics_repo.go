package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"brandguard/internal/domain"
)

// AnalyticsRepositoryPG implements domain.AnalyticsRepository with a simple
// per-day upsert of metric counters.
type AnalyticsRepositoryPG struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepositoryPG {
	return &AnalyticsRepositoryPG{pool: pool}
}

// IncrementCounters bumps each metric for the given day.
func (r *AnalyticsRepositoryPG) IncrementCounters(ctx context.Context, day string, counters map[string]int) error {
	query := `
INSERT INTO analytics_daily (day, metric, count)
VALUES ($1, $2, $3)
ON CONFLICT (day, metric) DO UPDATE SET count = analytics_daily.count + EXCLUDED.count;
`
	for metric, delta := range counters {
		if delta == 0 {
			continue
		}
		if _, err := r.pool.Exec(ctx, query, day, metric, delta); err != nil {
			return err
		}
	}
	return nil
}

var _ domain.AnalyticsRepository = (*AnalyticsRepositoryPG)(nil)
