package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"brandguard/internal/domain"
)

// AssetRepositoryPG implements domain.AssetRepository.
type AssetRepositoryPG struct {
	pool *pgxpool.Pool
}

func NewAssetRepository(pool *pgxpool.Pool) *AssetRepositoryPG {
	return &AssetRepositoryPG{pool: pool}
}

// Save inserts one generated-asset record.
func (r *AssetRepositoryPG) Save(ctx context.Context, asset *domain.Asset) error {
	query := `
INSERT INTO assets (id, job_id, url, storage_key, format, width, height, bytes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		asset.ID,
		asset.JobID,
		asset.URL,
		nullableString(asset.StorageKey),
		asset.Format,
		asset.Width,
		asset.Height,
		asset.Bytes,
		asset.CreatedAt,
	)
	return err
}

// ListByJobID returns the job's assets in generation order.
func (r *AssetRepositoryPG) ListByJobID(ctx context.Context, jobID string) ([]domain.Asset, error) {
	query := `
SELECT id, job_id, url, COALESCE(storage_key, ''), format, width, height, bytes, created_at
FROM assets
WHERE job_id = $1
ORDER BY created_at;
`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(
			&asset.ID,
			&asset.JobID,
			&asset.URL,
			&asset.StorageKey,
			&asset.Format,
			&asset.Width,
			&asset.Height,
			&asset.Bytes,
			&asset.CreatedAt,
		); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)
