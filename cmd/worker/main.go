package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"brandguard/internal/adapter/repo"
	"brandguard/internal/assets"
	"brandguard/internal/brandprompt"
	"brandguard/internal/domain"
	opshttp "brandguard/internal/http"
	"brandguard/internal/idempotency"
	"brandguard/internal/infra"
	"brandguard/internal/infra/credentials"
	"brandguard/internal/notify"
	"brandguard/internal/pipeline"
	"brandguard/internal/providers/audit"
	"brandguard/internal/providers/genai"
	"brandguard/internal/providers/image"
	"brandguard/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	registry := pipeline.NewRegistry()
	defer registry.Close()

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiAPIKey == "" {
		credStore := credentials.NewStore(pool)
		keyFromStore, err := credStore.GeminiAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
		} else {
			geminiAPIKey = keyFromStore
		}
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	generationClient, err := genai.NewClient(genai.Options{
		APIKey:     geminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GenerationModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure generation client")
	}
	reasoningClient, err := genai.NewClient(genai.Options{
		APIKey:     geminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.ReasoningModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure reasoning client")
	}
	if geminiAPIKey == "" {
		logger.Warn().
			Str("generation_model", generationClient.Model()).
			Str("reasoning_model", reasoningClient.Model()).
			Msg("worker: gemini api key missing, using synthetic generation and audit")
	}

	jobs := repo.NewJobRepository(pool)
	brands := repo.NewBrandRepository(pool)
	assetRepo := repo.NewAssetRepository(pool)
	analytics := repo.NewAnalyticsRepository(pool)

	var idemStore idempotency.Store
	if rdb, err := infra.NewRedisClient(ctx, cfg); err != nil {
		logger.Warn().Err(err).Msg("worker: redis unavailable, idempotency keys are process-local")
		idemStore = idempotency.NewMemoryStore()
	} else {
		defer rdb.Close()
		idemStore = idempotency.NewRedisStore(rdb)
	}
	guard := idempotency.NewGuard(idemStore, jobs, cfg.IdempotencyTTL, logger)

	rasterizer := assets.NewStandardRasterizer()
	resolver := assets.NewResolver(
		assets.NewHTTPFetcher(httpClient),
		rasterizer,
		rasterizer,
		cfg.LogoFetchTimeout,
		logger,
	)

	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Jobs:                jobs,
		Brands:              brands,
		Assets:              assetRepo,
		Analytics:           analytics,
		Notifier:            notify.NewWebhookNotifier(httpClient, logger),
		Resolver:            resolver,
		Optimizer:           brandprompt.NewGeminiOptimizer(reasoningClient, brandprompt.NewStaticOptimizer()),
		Generation:          pipeline.NewGenerationStage(image.NewGeminiGenerator(generationClient), time.Second, cfg.GenerationTimeout, logger),
		Audit:               pipeline.NewAuditStage(audit.NewGeminiReviewer(reasoningClient), cfg.AuditTimeout, logger),
		Registry:            registry,
		Store:               fileStore,
		StorageBaseURL:      strings.TrimRight(cfg.StorageBaseURL, "/"),
		MaxCorrectionRounds: cfg.MaxCorrectionRound,
		Logger:              logger,
	})

	ops := opshttp.NewOps(jobs, guard, registry, fileStore.BasePath(), func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	}, logger)
	opsServer := infra.NewHTTPServer(cfg, ops.Router())
	go func() {
		logger.Info().Str("port", cfg.OpsPort).Msg("worker: ops server listening")
		if err := opsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("worker: ops server stopped")
		}
	}()

	w := &jobWorker{
		ctx:          ctx,
		jobs:         jobs,
		runner:       runner,
		pollInterval: cfg.JobPollInterval,
		logger:       logger,
	}
	if err := w.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("worker: ops server shutdown failed")
	}
	logger.Info().Msg("worker: stopped")
}

// jobWorker drives the claim/execute poll loop.
type jobWorker struct {
	ctx          context.Context
	jobs         *repo.JobRepositoryPG
	runner       *pipeline.Runner
	pollInterval time.Duration
	logger       infra.Logger
}

func (w *jobWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		job, err := w.jobs.ClaimPending(w.ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				time.Sleep(w.pollInterval)
				continue
			}
			if w.ctx.Err() != nil {
				return w.ctx.Err()
			}
			w.logger.Error().Err(err).Msg("worker: failed to claim job")
			time.Sleep(w.pollInterval)
			continue
		}

		w.handleJob(job)
	}
}

func (w *jobWorker) handleJob(job *domain.Job) {
	w.logger.Info().
		Str("job_id", job.ID).
		Str("brand_id", job.BrandID).
		Bool("is_tweak", job.IsTweak).
		Msg("worker: picked job")

	if err := w.runner.Execute(w.ctx, job); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateOperation):
			w.logger.Warn().Str("job_id", job.ID).Msg("worker: job already running, skipping")
		case errors.Is(err, domain.ErrJobTerminal):
			w.logger.Warn().Str("job_id", job.ID).Msg("worker: job already terminal, skipping")
		default:
			w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job failed")
		}
		return
	}
	w.logger.Info().
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Int("attempts", job.AttemptCount).
		Msg("worker: job finished")
}
