package domain

import "time"

// ApprovalThreshold is the minimum overall score for an asset to be approved.
const ApprovalThreshold = 80.0

// StandardCategories lists the guideline categories every audit reports on,
// in presentation order.
var StandardCategories = []string{"colors", "typography", "layout", "logo_usage"}

// Severity grades how badly a violation breaks brand guidelines.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so correction instructions can prioritize the worst
// violations first. Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	}
	return 4
}

// Violation describes a single guideline breach found during an audit.
type Violation struct {
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	Severity      Severity `json:"severity"`
	FixSuggestion string   `json:"fix_suggestion,omitempty"`
}

// CategoryScore breaks the audit down per guideline category.
type CategoryScore struct {
	Category   string      `json:"category"`
	Score      float64     `json:"score"`
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
}

// ComplianceScore is the output of one audit call. Degraded marks synthetic
// scores produced when the audit itself failed; those always carry a zero
// overall score and require manual review.
type ComplianceScore struct {
	OverallScore float64         `json:"overall_score"`
	Categories   []CategoryScore `json:"categories"`
	Approved     bool            `json:"approved"`
	Summary      string          `json:"summary"`
	Degraded     bool            `json:"degraded,omitempty"`
	AuditedAt    time.Time       `json:"audited_at"`
}

// Violations flattens all category violations in category order.
func (c ComplianceScore) Violations() []Violation {
	var out []Violation
	for _, cat := range c.Categories {
		out = append(out, cat.Violations...)
	}
	return out
}
