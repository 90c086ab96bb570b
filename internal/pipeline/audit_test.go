package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"brandguard/internal/domain"
	"brandguard/internal/providers/audit"
)

type scriptedReviewer struct {
	scores []domain.ComplianceScore
	errs   []error
	calls  int
}

func (r *scriptedReviewer) Review(ctx context.Context, req audit.ReviewRequest) (domain.ComplianceScore, error) {
	idx := r.calls
	r.calls++
	if idx < len(r.errs) && r.errs[idx] != nil {
		return domain.ComplianceScore{}, r.errs[idx]
	}
	if idx < len(r.scores) {
		return r.scores[idx], nil
	}
	return domain.ComplianceScore{OverallScore: 90, Approved: true, AuditedAt: time.Now().UTC()}, nil
}

func TestAuditStageNeverPropagatesFailure(t *testing.T) {
	reviewer := &scriptedReviewer{errs: []error{errors.New("reasoning model timeout")}}
	stage := NewAuditStage(reviewer, time.Second, zerolog.Nop())

	score := stage.Run(context.Background(), audit.ReviewRequest{RequestID: "job-1"})
	if !score.Degraded {
		t.Fatal("expected degraded score on reviewer failure")
	}
	if score.Approved {
		t.Fatal("degraded score must never approve")
	}
	if score.OverallScore != 0 {
		t.Fatalf("degraded overall = %v, want 0", score.OverallScore)
	}
}

func TestAuditStagePassesThroughHealthyScore(t *testing.T) {
	reviewer := &scriptedReviewer{scores: []domain.ComplianceScore{{
		OverallScore: 85, Approved: true, Summary: "looks on-brand",
	}}}
	stage := NewAuditStage(reviewer, time.Second, zerolog.Nop())

	score := stage.Run(context.Background(), audit.ReviewRequest{RequestID: "job-1"})
	if score.Degraded || !score.Approved || score.OverallScore != 85 {
		t.Fatalf("unexpected score: %+v", score)
	}
}

func TestDegradedScoreShape(t *testing.T) {
	cause := errors.New("reasoning model timeout")
	score := DegradedScore(cause)

	if score.OverallScore != 0 || score.Approved || !score.Degraded {
		t.Fatalf("unexpected degraded shape: %+v", score)
	}
	if !strings.Contains(score.Summary, "manual review") {
		t.Fatalf("summary must call for manual review: %q", score.Summary)
	}
	if len(score.Categories) != len(domain.StandardCategories) {
		t.Fatalf("got %d categories, want %d", len(score.Categories), len(domain.StandardCategories))
	}
	for i, cat := range score.Categories {
		if cat.Category != domain.StandardCategories[i] {
			t.Fatalf("category %d = %q, want %q", i, cat.Category, domain.StandardCategories[i])
		}
		if cat.Passed || cat.Score != 0 {
			t.Fatalf("category %q must fail with zero score: %+v", cat.Category, cat)
		}
		if len(cat.Violations) != 1 {
			t.Fatalf("category %q must carry exactly one violation", cat.Category)
		}
		v := cat.Violations[0]
		if v.Severity != domain.SeverityCritical {
			t.Fatalf("violation severity = %s, want critical", v.Severity)
		}
		if !strings.Contains(v.Description, "reasoning model timeout") {
			t.Fatalf("violation must name the failure: %q", v.Description)
		}
		if v.FixSuggestion == "" {
			t.Fatal("violation must carry a fix suggestion")
		}
	}
}
