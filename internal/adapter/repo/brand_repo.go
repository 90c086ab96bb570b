package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"brandguard/internal/domain"
)

// BrandRepositoryPG implements domain.BrandContextProvider against the brand
// store maintained by the ingestion service.
type BrandRepositoryPG struct {
	pool *pgxpool.Pool
}

func NewBrandRepository(pool *pgxpool.Pool) *BrandRepositoryPG {
	return &BrandRepositoryPG{pool: pool}
}

// GetBrandContext loads the full guideline text, the pre-computed Compressed
// Twin, and the brand's logo definitions. Returns domain.ErrNotFound for
// unknown brands.
func (r *BrandRepositoryPG) GetBrandContext(ctx context.Context, brandID string) (*domain.BrandContext, error) {
	query := `
SELECT id, name, full_guidelines, compressed_twin
FROM brands
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, brandID)

	var (
		brand domain.BrandContext
		twin  []byte
	)
	if err := row.Scan(&brand.BrandID, &brand.Name, &brand.FullGuidelines, &twin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(twin) > 0 {
		if err := json.Unmarshal(twin, &brand.CompressedTwin); err != nil {
			return nil, fmt.Errorf("decode compressed twin: %w", err)
		}
	}

	logos, err := r.listLogos(ctx, brandID)
	if err != nil {
		return nil, err
	}
	brand.Logos = logos
	return &brand, nil
}

func (r *BrandRepositoryPG) listLogos(ctx context.Context, brandID string) ([]domain.Logo, error) {
	query := `
SELECT id, url, COALESCE(mime, ''), COALESCE(variant, '')
FROM brand_logos
WHERE brand_id = $1
ORDER BY created_at;
`
	rows, err := r.pool.Query(ctx, query, brandID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logos []domain.Logo
	for rows.Next() {
		var logo domain.Logo
		if err := rows.Scan(&logo.ID, &logo.URL, &logo.MIME, &logo.Variant); err != nil {
			return nil, err
		}
		logos = append(logos, logo)
	}
	return logos, rows.Err()
}

var _ domain.BrandContextProvider = (*BrandRepositoryPG)(nil)
