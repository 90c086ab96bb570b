package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"brandguard/internal/domain"
	"brandguard/internal/idempotency"
	"brandguard/internal/infra"
	"brandguard/internal/middleware"
	"brandguard/internal/pipeline"
)

// Ops is the worker's operational HTTP surface: health probes, job
// submission behind the idempotency guard, a read-only status peek, and the
// external cancellation trigger.
type Ops struct {
	jobs       domain.JobRepository
	guard      *idempotency.Guard
	registry   *pipeline.Registry
	staticDir  string
	readyCheck func() error
	logger     infra.Logger
}

// NewOps wires the ops handler set. readyCheck may be nil.
func NewOps(jobs domain.JobRepository, guard *idempotency.Guard, registry *pipeline.Registry, staticDir string, readyCheck func() error, logger infra.Logger) *Ops {
	return &Ops{
		jobs:       jobs,
		guard:      guard,
		registry:   registry,
		staticDir:  staticDir,
		readyCheck: readyCheck,
		logger:     logger,
	}
}

// Router builds the chi router for the ops surface.
func (o *Ops) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(o.logger))

	r.Get("/healthz", o.handleHealth)
	r.Get("/readyz", o.handleReady)
	r.Post("/jobs", o.handleCreateJob)
	r.Get("/jobs/{id}", o.handleGetJob)
	r.Post("/jobs/{id}/cancel", o.handleCancelJob)

	if o.staticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(o.staticDir))))
	}
	return r
}

func (o *Ops) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (o *Ops) handleReady(w http.ResponseWriter, r *http.Request) {
	if o.readyCheck != nil {
		if err := o.readyCheck(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "running_jobs": len(o.registry.Running())})
}

type createJobRequest struct {
	BrandID              string `json:"brand_id"`
	UserPrompt           string `json:"user_prompt"`
	IsTweak              bool   `json:"is_tweak"`
	UserTweakInstruction string `json:"user_tweak_instruction"`
	CurrentImageURL      string `json:"current_image_url"`
	WebhookURL           string `json:"webhook_url"`
	IdempotencyKey       string `json:"idempotency_key"`
}

// handleCreateJob enqueues a pending job. A caller-supplied idempotency key
// matching a live, unexpired prior job returns that job unchanged instead of
// creating a new one.
func (o *Ops) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	req.BrandID = strings.TrimSpace(req.BrandID)
	req.UserPrompt = strings.TrimSpace(req.UserPrompt)
	if req.BrandID == "" || req.UserPrompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "brand_id and user_prompt are required"})
		return
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}
	if o.guard != nil {
		existing, err := o.guard.Check(r.Context(), key)
		if err != nil {
			o.logger.Error().Err(err).Msg("ops: idempotency check failed")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			return
		}
		if existing != nil {
			writeJSON(w, http.StatusOK, existing)
			return
		}
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:                   uuid.NewString(),
		BrandID:              req.BrandID,
		Status:               domain.JobStatusPending,
		IsTweak:              req.IsTweak,
		CurrentImageURL:      strings.TrimSpace(req.CurrentImageURL),
		UserPrompt:           req.UserPrompt,
		UserTweakInstruction: strings.TrimSpace(req.UserTweakInstruction),
		WebhookURL:           strings.TrimSpace(req.WebhookURL),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if o.guard != nil && key != "" {
		if err := o.guard.Remember(r.Context(), key, job); err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("ops: remember idempotency key failed")
		}
	}
	if err := o.jobs.Create(r.Context(), job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("ops: create job failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (o *Ops) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := o.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "job not found"})
			return
		}
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("ops: load job failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob flags a running job for cancellation; the pipeline honors
// it at its next stage boundary.
func (o *Ops) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if o.registry.Cancel(jobID) {
		writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "cancelling": true})
		return
	}

	// Not running here: cancel directly if the job is still pending.
	job, err := o.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "job not found"})
			return
		}
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("ops: load job failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	if job.Status.IsTerminal() {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "job already terminal", "status": job.Status})
		return
	}
	if err := job.Transition(domain.JobStatusCancelled); err != nil {
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		return
	}
	if err := o.jobs.Update(r.Context(), job); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("ops: persist cancellation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "status": job.Status})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
