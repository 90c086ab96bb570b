package pipeline

import (
	"context"
	"fmt"
	"time"

	"brandguard/internal/domain"
	"brandguard/internal/infra"
	"brandguard/internal/providers/audit"
)

// AuditStage scores a produced image against the full, uncompressed brand
// guidelines. It never returns an error: when the reasoning call fails for
// any reason it degrades to a clearly-flagged zero score so the job can still
// reach a terminal state. This asymmetry with the generation stage is
// deliberate; audit failure is not fatal to the job.
type AuditStage struct {
	reviewer audit.Reviewer
	timeout  time.Duration
	logger   infra.Logger
}

func NewAuditStage(reviewer audit.Reviewer, timeout time.Duration, logger infra.Logger) *AuditStage {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &AuditStage{reviewer: reviewer, timeout: timeout, logger: logger}
}

// Run performs one audit call and returns a well-formed score in every case.
func (s *AuditStage) Run(ctx context.Context, req audit.ReviewRequest) domain.ComplianceScore {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	score, err := s.reviewer.Review(callCtx, req)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("request_id", req.RequestID).
			Msg("pipeline: audit call failed, returning degraded score")
		return DegradedScore(err)
	}

	s.logger.Info().
		Str("request_id", req.RequestID).
		Float64("overall_score", score.OverallScore).
		Bool("approved", score.Approved).
		Msg("pipeline: audit completed")
	return score
}

// DegradedScore builds the synthetic result returned when the audit itself
// breaks: zero overall, not approved, every standard category failed, each
// carrying a violation that names the failure and calls for manual review.
func DegradedScore(cause error) domain.ComplianceScore {
	description := fmt.Sprintf("compliance audit failed (%v); the asset could not be scored and requires manual review", cause)
	categories := make([]domain.CategoryScore, 0, len(domain.StandardCategories))
	for _, name := range domain.StandardCategories {
		categories = append(categories, domain.CategoryScore{
			Category: name,
			Score:    0.0,
			Passed:   false,
			Violations: []domain.Violation{{
				Category:      name,
				Description:   description,
				Severity:      domain.SeverityCritical,
				FixSuggestion: "Re-run the audit once the reviewer is reachable, or review the asset manually.",
			}},
		})
	}
	return domain.ComplianceScore{
		OverallScore: 0.0,
		Categories:   categories,
		Approved:     false,
		Summary:      fmt.Sprintf("Audit failed (%v); manual review required.", cause),
		Degraded:     true,
		AuditedAt:    time.Now().UTC(),
	}
}
