package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"brandguard/internal/domain"
	"brandguard/internal/infra"
)

// WebhookNotifier posts the terminal-status payload to the job's webhook URL.
// It makes a single delivery attempt; retries are the responsibility of the
// external delivery collaborator.
type WebhookNotifier struct {
	client *http.Client
	logger infra.Logger
}

func NewWebhookNotifier(client *http.Client, logger infra.Logger) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{client: client, logger: logger}
}

type webhookPayload struct {
	JobID        string           `json:"job_id"`
	BrandID      string           `json:"brand_id"`
	Status       domain.JobStatus `json:"status"`
	AttemptCount int              `json:"attempt_count"`
	ImageURL     string           `json:"image_url,omitempty"`
	OverallScore *float64         `json:"overall_score,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, job *domain.Job) error {
	if job.WebhookURL == "" {
		return nil
	}

	payload := webhookPayload{
		JobID:        job.ID,
		BrandID:      job.BrandID,
		Status:       job.Status,
		AttemptCount: job.AttemptCount,
		ImageURL:     job.CurrentImageURL,
		ErrorMessage: job.ErrorMessage,
	}
	if score := job.LatestScore(); score != nil {
		payload.OverallScore = &score.OverallScore
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	n.logger.Debug().
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Msg("notify: webhook delivered")
	return nil
}

// NopNotifier discards notifications; used when no webhook delivery is
// configured.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, job *domain.Job) error { return nil }

var (
	_ domain.Notifier = (*WebhookNotifier)(nil)
	_ domain.Notifier = NopNotifier{}
)
