package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"brandguard/internal/domain"
	"brandguard/internal/infra"
)

// logoKeywords are the tweak-instruction phrases that signal the user wants
// logo material added or changed on a continuation turn.
var logoKeywords = []string{"logo", "brand mark", "brandmark", "icon", "symbol", "emblem"}

// NeedsLogos decides whether brand logo material is required this turn.
//
// The first generation of a fresh conversation always attempts logos. A
// continuation turn preserves whatever logo posture the original generation
// had, unless the user's tweak explicitly mentions logo intent.
func NeedsLogos(job *domain.Job) bool {
	if !job.Continuation() {
		return true
	}
	return job.HadLogos() || mentionsLogo(job.UserTweakInstruction)
}

func mentionsLogo(instruction string) bool {
	lowered := strings.ToLower(instruction)
	for _, keyword := range logoKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// Resolver fetches, rasterizes and verifies brand logos for a job turn.
type Resolver struct {
	fetcher    Fetcher
	rasterizer Rasterizer
	verifier   Verifier
	timeout    time.Duration
	logger     infra.Logger
}

// NewResolver wires a resolver. The timeout bounds each individual logo
// download.
func NewResolver(fetcher Fetcher, rasterizer Rasterizer, verifier Verifier, timeout time.Duration, logger infra.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Resolver{
		fetcher:    fetcher,
		rasterizer: rasterizer,
		verifier:   verifier,
		timeout:    timeout,
		logger:     logger,
	}
}

// Resolve returns whether logos are needed this turn and the subset of logo
// rasters that fetched and verified cleanly. A single logo failing is logged
// and dropped; it never aborts the batch, so the result may be empty even
// when needsLogos is true.
func (r *Resolver) Resolve(ctx context.Context, job *domain.Job, logos []domain.Logo) (bool, [][]byte) {
	needsLogos := NeedsLogos(job)
	if !needsLogos || len(logos) == 0 {
		return needsLogos, nil
	}

	results := make([][]byte, len(logos))
	var group errgroup.Group
	for i, logo := range logos {
		i, logo := i, logo
		group.Go(func() error {
			raster, err := r.resolveOne(ctx, logo)
			if err != nil {
				// Partial-failure policy: drop this logo, keep the batch.
				r.logger.Warn().
					Err(err).
					Str("job_id", job.ID).
					Str("logo_id", logo.ID).
					Str("logo_url", logo.URL).
					Msg("assets: logo resolution failed, dropping from batch")
				return nil
			}
			results[i] = raster
			return nil
		})
	}
	_ = group.Wait()

	resolved := make([][]byte, 0, len(logos))
	for _, raster := range results {
		if len(raster) > 0 {
			resolved = append(resolved, raster)
		}
	}

	r.logger.Debug().
		Str("job_id", job.ID).
		Int("requested", len(logos)).
		Int("resolved", len(resolved)).
		Msg("assets: logo batch resolved")

	return needsLogos, resolved
}

func (r *Resolver) resolveOne(ctx context.Context, logo domain.Logo) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, contentType, err := r.fetcher.Fetch(ctx, logo.URL)
	if err != nil {
		return nil, err
	}

	mime := logo.MIME
	if mime == "" {
		mime = contentType
	}
	raster, err := r.rasterizer.Rasterize(raw, mime)
	if err != nil {
		return nil, err
	}
	if !r.verifier.Verify(raster) {
		return nil, fmt.Errorf("raster failed verification")
	}
	return raster, nil
}
