package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"brandguard/internal/domain"
)

// maxCorrectionItems caps how many violations one correction instruction
// lists; beyond that the generative model stops acting on the detail.
const maxCorrectionItems = 8

// BuildCorrectionInstruction derives a textual correction directive from a
// rejected audit, listing unresolved violations worst-first together with
// their fix suggestions. The result feeds back into the prompt composer for
// the next generation round.
func BuildCorrectionInstruction(score domain.ComplianceScore) string {
	violations := score.Violations()
	if len(violations) == 0 {
		return fmt.Sprintf("The previous attempt scored %.1f, below the %.0f approval threshold. Regenerate with stricter adherence to the brand guidelines.", score.OverallScore, domain.ApprovalThreshold)
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Severity.Rank() < violations[j].Severity.Rank()
	})
	if len(violations) > maxCorrectionItems {
		violations = violations[:maxCorrectionItems]
	}

	var b strings.Builder
	b.WriteString("Fix the following brand compliance violations from the previous attempt:\n")
	for i, v := range violations {
		fmt.Fprintf(&b, "%d. [%s/%s] %s", i+1, v.Severity, v.Category, v.Description)
		if fix := strings.TrimSpace(v.FixSuggestion); fix != "" {
			fmt.Fprintf(&b, " Fix: %s", fix)
		}
		b.WriteString("\n")
	}
	return b.String()
}
