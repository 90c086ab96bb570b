package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"brandguard/internal/domain"
)

// verdictJSON is the wire contract emitted by the reasoning model.
type verdictJSON struct {
	OverallScore float64 `json:"overall_score"`
	Summary      string  `json:"summary"`
	Categories   []struct {
		Category   string  `json:"category"`
		Score      float64 `json:"score"`
		Passed     bool    `json:"passed"`
		Violations []struct {
			Category      string `json:"category,omitempty"`
			Description   string `json:"description"`
			Severity      string `json:"severity"`
			FixSuggestion string `json:"fix_suggestion"`
		} `json:"violations,omitempty"`
	} `json:"categories"`
}

// ParseVerdict decodes and normalizes the model's structured verdict into a
// ComplianceScore. Scores are clamped to [0,100], missing standard categories
// are filled in as passed, and approval follows the threshold policy.
func ParseVerdict(raw json.RawMessage) (domain.ComplianceScore, error) {
	var verdict verdictJSON
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return domain.ComplianceScore{}, fmt.Errorf("decode verdict: %w", err)
	}

	score := domain.ComplianceScore{
		OverallScore: clampScore(verdict.OverallScore),
		Summary:      strings.TrimSpace(verdict.Summary),
		AuditedAt:    time.Now().UTC(),
	}

	seen := map[string]bool{}
	for _, cat := range verdict.Categories {
		name := normalizeCategory(cat.Category)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out := domain.CategoryScore{
			Category: name,
			Score:    clampScore(cat.Score),
			Passed:   cat.Passed,
		}
		for _, v := range cat.Violations {
			out.Violations = append(out.Violations, domain.Violation{
				Category:      name,
				Description:   strings.TrimSpace(v.Description),
				Severity:      normalizeSeverity(v.Severity),
				FixSuggestion: fallbackFix(v.FixSuggestion, name),
			})
		}
		score.Categories = append(score.Categories, out)
	}

	// Reasoning models occasionally omit clean categories; report them as
	// passed so the score always carries the full standard breakdown.
	for _, name := range domain.StandardCategories {
		if !seen[name] {
			score.Categories = append(score.Categories, domain.CategoryScore{
				Category: name,
				Score:    score.OverallScore,
				Passed:   true,
			})
		}
	}

	score.Approved = score.OverallScore >= domain.ApprovalThreshold
	if score.Summary == "" {
		score.Summary = fmt.Sprintf("Compliance review scored %.1f overall.", score.OverallScore)
	}
	return score, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func normalizeCategory(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	switch name {
	case "color", "colours", "colors", "colour":
		return "colors"
	case "typography", "fonts", "font":
		return "typography"
	case "layout", "composition":
		return "layout"
	case "logo", "logos", "logo_usage":
		return "logo_usage"
	}
	return name
}

func normalizeSeverity(s string) domain.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(domain.SeverityCritical):
		return domain.SeverityCritical
	case string(domain.SeverityHigh):
		return domain.SeverityHigh
	case string(domain.SeverityLow):
		return domain.SeverityLow
	default:
		return domain.SeverityMedium
	}
}

// fallbackFix guarantees the non-degraded invariant that every violation
// carries a usable fix suggestion.
func fallbackFix(fix, category string) string {
	fix = strings.TrimSpace(fix)
	if fix != "" {
		return fix
	}
	return fmt.Sprintf("Review the %s guidelines and regenerate the affected area.", strings.ReplaceAll(category, "_", " "))
}
