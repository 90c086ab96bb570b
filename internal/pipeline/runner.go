package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"brandguard/internal/assets"
	"brandguard/internal/brandprompt"
	"brandguard/internal/domain"
	"brandguard/internal/infra"
	"brandguard/internal/providers/audit"
)

// BlobStore persists generated image bytes and returns the canonical storage
// key.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// RunnerOptions wires the runner's collaborators.
type RunnerOptions struct {
	Jobs                domain.JobRepository
	Brands              domain.BrandContextProvider
	Assets              domain.AssetRepository
	Analytics           domain.AnalyticsRepository
	Notifier            domain.Notifier
	Resolver            *assets.Resolver
	Optimizer           brandprompt.Optimizer
	Generation          *GenerationStage
	Audit               *AuditStage
	Registry            *Registry
	Store               BlobStore
	StorageBaseURL      string
	MaxCorrectionRounds int
	Logger              infra.Logger
}

// Runner sequences one job through generation, audit and bounded correction
// rounds, persisting every transition before the next stage begins. A job is
// owned by exactly one Execute call until it reaches a terminal status.
type Runner struct {
	jobs           domain.JobRepository
	brands         domain.BrandContextProvider
	assetRepo      domain.AssetRepository
	analytics      domain.AnalyticsRepository
	notifier       domain.Notifier
	resolver       *assets.Resolver
	optimizer      brandprompt.Optimizer
	generation     *GenerationStage
	auditStage     *AuditStage
	registry       *Registry
	store          BlobStore
	storageBaseURL string
	maxRounds      int
	logger         infra.Logger
}

func NewRunner(opts RunnerOptions) *Runner {
	maxRounds := opts.MaxCorrectionRounds
	if maxRounds < 0 {
		maxRounds = 0
	}
	return &Runner{
		jobs:           opts.Jobs,
		brands:         opts.Brands,
		assetRepo:      opts.Assets,
		analytics:      opts.Analytics,
		notifier:       opts.Notifier,
		resolver:       opts.Resolver,
		optimizer:      opts.Optimizer,
		generation:     opts.Generation,
		auditStage:     opts.Audit,
		registry:       opts.Registry,
		store:          opts.Store,
		storageBaseURL: opts.StorageBaseURL,
		maxRounds:      maxRounds,
		logger:         opts.Logger,
	}
}

// Execute runs the full pipeline for one job. Only generation exhaustion and
// an unknown brand propagate as errors; every other failure mode is absorbed
// into job state so the caller always receives a well-formed record.
func (r *Runner) Execute(ctx context.Context, job *domain.Job) error {
	if job.Status.IsTerminal() {
		return domain.ErrJobTerminal
	}

	brand, err := r.brands.GetBrandContext(ctx, job.BrandID)
	if err != nil {
		return fmt.Errorf("load brand context for %s: %w", job.BrandID, err)
	}

	if !r.registry.Register(job.ID) {
		return domain.ErrDuplicateOperation
	}
	defer r.registry.Deregister(job.ID)

	userText, original := promptTexts(job)
	optimized := r.optimizePrompt(ctx, userText)

	correction := ""
	for round := 0; ; round++ {
		if r.checkCancelled(ctx, job) {
			return nil
		}
		if job.Status != domain.JobStatusGenerating {
			if err := r.advance(ctx, job, domain.JobStatusGenerating); err != nil {
				return err
			}
		} else if err := r.jobs.Update(ctx, job); err != nil {
			return fmt.Errorf("persist job %s: %w", job.ID, err)
		}

		needsLogos, logoRasters := r.resolver.Resolve(ctx, job, brand.Logos)
		if job.RecordOriginalHadLogos(len(logoRasters) > 0) {
			r.logger.Debug().
				Str("job_id", job.ID).
				Bool("original_had_logos", len(logoRasters) > 0).
				Msg("pipeline: committed original logo posture")
		}

		prompt := brandprompt.Compose(brandprompt.ComposeInput{
			UserPrompt:     optimized,
			OriginalPrompt: original,
			BrandName:      brand.Name,
			Twin:           brand.CompressedTwin,
			LogoCount:      len(logoRasters),
			Correction:     correction,
		})
		r.logger.Debug().
			Str("job_id", job.ID).
			Bool("needs_logos", needsLogos).
			Int("logos", len(logoRasters)).
			Int("round", round).
			Msg("pipeline: prompt composed")

		generated, genErr := r.generation.Run(ctx, job.ID, prompt, logoRasters)
		job.AttemptCount++
		if genErr != nil {
			job.ErrorMessage = genErr.Error()
			if err := r.advance(ctx, job, domain.JobStatusFailed); err != nil {
				return err
			}
			r.finish(ctx, job)
			return genErr
		}

		r.persistGenerated(ctx, job, generated.Data, generated.Format, generated.URL, generated.Width, generated.Height)
		if err := r.advance(ctx, job, domain.JobStatusGenerated); err != nil {
			return err
		}

		if r.checkCancelled(ctx, job) {
			return nil
		}
		if err := r.advance(ctx, job, domain.JobStatusAuditing); err != nil {
			return err
		}

		score := r.auditStage.Run(ctx, audit.ReviewRequest{
			ImageData:  generated.Data,
			ImageMIME:  generated.Format,
			ImageURL:   job.CurrentImageURL,
			Guidelines: brand.FullGuidelines,
			RequestID:  job.ID,
		})
		job.AppendScore(score)
		if score.Degraded {
			r.countMetric(ctx, "audits_degraded")
		}
		if err := r.advance(ctx, job, domain.JobStatusAudited); err != nil {
			return err
		}

		if score.Approved {
			if err := r.advance(ctx, job, domain.JobStatusCompleted); err != nil {
				return err
			}
			r.finish(ctx, job)
			return nil
		}

		if round >= r.maxRounds {
			if err := r.advance(ctx, job, domain.JobStatusNeedsReview); err != nil {
				return err
			}
			r.finish(ctx, job)
			return nil
		}

		correction = BuildCorrectionInstruction(score)
		r.logger.Info().
			Str("job_id", job.ID).
			Int("round", round+1).
			Float64("overall_score", score.OverallScore).
			Msg("pipeline: entering correction round")
	}
}

// promptTexts selects the instruction driving this turn and the verbatim
// original used for text-intent decisions.
func promptTexts(job *domain.Job) (userText, original string) {
	original = job.UserPrompt
	if job.IsTweak && job.UserTweakInstruction != "" {
		return job.UserTweakInstruction, original
	}
	return job.UserPrompt, original
}

func (r *Runner) optimizePrompt(ctx context.Context, userText string) string {
	if r.optimizer == nil {
		return userText
	}
	optimized, err := r.optimizer.Optimize(ctx, userText)
	if err != nil || optimized == "" {
		if err != nil {
			r.logger.Warn().Err(err).Msg("pipeline: prompt optimization failed, using original wording")
		}
		return userText
	}
	return optimized
}

// advance applies one state-machine transition and persists it before the
// next stage begins, keeping the job resumable from its last committed
// status.
func (r *Runner) advance(ctx context.Context, job *domain.Job, to domain.JobStatus) error {
	if err := job.Transition(to); err != nil {
		return err
	}
	if err := r.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persist job %s at %s: %w", job.ID, to, err)
	}
	return nil
}

// checkCancelled honors an external cancellation request at a stage boundary.
// The final persist runs on a detached context because the caller's context
// may itself be the reason we are stopping.
func (r *Runner) checkCancelled(ctx context.Context, job *domain.Job) bool {
	if !r.registry.Cancelled(job.ID) && ctx.Err() == nil {
		return false
	}
	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.advance(persistCtx, job, domain.JobStatusCancelled); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("pipeline: failed to mark job cancelled")
		return true
	}
	r.logger.Info().Str("job_id", job.ID).Msg("pipeline: job cancelled")
	r.finish(persistCtx, job)
	return true
}

// persistGenerated stores the produced bytes, updates the job's current image
// reference and records an asset row. Storage problems are logged, not
// fatal; the in-memory bytes still drive the audit.
func (r *Runner) persistGenerated(ctx context.Context, job *domain.Job, data []byte, format, sourceURL string, width, height int) {
	imageURL := sourceURL
	storageKey := ""
	if r.store != nil && len(data) > 0 {
		key := fmt.Sprintf("generated/%s/round-%02d.png", job.ID, job.AttemptCount)
		saved, err := r.store.Write(ctx, key, data)
		if err != nil {
			r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("pipeline: persist image to storage failed")
		} else {
			storageKey = saved
			imageURL = fmt.Sprintf("%s/%s", r.storageBaseURL, saved)
		}
	}
	if imageURL == "" {
		imageURL = fmt.Sprintf("inline:%s/round-%02d", job.ID, job.AttemptCount)
	}
	job.CurrentImageURL = imageURL

	if r.assetRepo != nil {
		record := &domain.Asset{
			ID:         uuid.NewString(),
			JobID:      job.ID,
			URL:        imageURL,
			StorageKey: storageKey,
			Format:     format,
			Width:      width,
			Height:     height,
			Bytes:      int64(len(data)),
			CreatedAt:  time.Now().UTC(),
		}
		if err := r.assetRepo.Save(ctx, record); err != nil {
			r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("pipeline: save asset record failed")
		}
	}
}

// finish fires the terminal webhook as an explicit fire-and-forget task with
// logged-but-swallowed failure, and bumps the day's counters. Called exactly
// once per job, on the transition into a terminal status.
func (r *Runner) finish(ctx context.Context, job *domain.Job) {
	r.countMetric(ctx, "jobs_"+string(job.Status))

	if r.notifier == nil {
		return
	}
	snapshot := *job
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.notifier.Notify(notifyCtx, &snapshot); err != nil {
			r.logger.Warn().Err(err).Str("job_id", snapshot.ID).Msg("pipeline: webhook notification failed")
		}
	}()
}

func (r *Runner) countMetric(ctx context.Context, metric string) {
	if r.analytics == nil {
		return
	}
	day := time.Now().UTC().Format("2006-01-02")
	if err := r.analytics.IncrementCounters(ctx, day, map[string]int{metric: 1}); err != nil {
		r.logger.Warn().Err(err).Str("metric", metric).Msg("pipeline: analytics increment failed")
	}
}
