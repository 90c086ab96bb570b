package audit

import (
	"context"
	"fmt"
	"strings"

	"brandguard/internal/domain"
	"brandguard/internal/providers/genai"
)

// GeminiReviewer adapts the Gemini client to the Reviewer contract.
type GeminiReviewer struct {
	client *genai.Client
}

func NewGeminiReviewer(client *genai.Client) *GeminiReviewer {
	return &GeminiReviewer{client: client}
}

func (r *GeminiReviewer) Review(ctx context.Context, req ReviewRequest) (domain.ComplianceScore, error) {
	raw, err := r.client.AnalyzeImage(ctx, genai.AnalyzeRequest{
		ImageData:  req.ImageData,
		ImageMIME:  req.ImageMIME,
		ImageURL:   req.ImageURL,
		Guidelines: req.Guidelines,
		Prompt:     buildReviewPrompt(),
		RequestID:  req.RequestID,
	})
	if err != nil {
		return domain.ComplianceScore{}, fmt.Errorf("compliance review: %w", err)
	}
	return ParseVerdict(raw)
}

func buildReviewPrompt() string {
	var b strings.Builder
	b.WriteString("You are a brand compliance reviewer. Score the attached image against the brand guidelines that follow.\n")
	b.WriteString("Respond with JSON only, using this shape:\n")
	b.WriteString(`{"overall_score": 0-100, "summary": "...", "categories": [{"category": "colors|typography|layout|logo_usage", "score": 0-100, "passed": true/false, "violations": [{"description": "...", "severity": "low|medium|high|critical", "fix_suggestion": "..."}]}]}`)
	b.WriteString("\nReport every category even when it passes cleanly. Every violation must include a concrete fix suggestion.")
	return b.String()
}

var _ Reviewer = (*GeminiReviewer)(nil)
