package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusPending, JobStatusGenerating, true},
		{JobStatusPending, JobStatusCancelled, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusGenerating, JobStatusGenerated, true},
		{JobStatusGenerating, JobStatusFailed, true},
		{JobStatusGenerating, JobStatusAudited, false},
		{JobStatusGenerated, JobStatusAuditing, true},
		{JobStatusGenerated, JobStatusGenerating, false},
		{JobStatusAuditing, JobStatusAudited, true},
		{JobStatusAuditing, JobStatusCompleted, false},
		{JobStatusAudited, JobStatusCompleted, true},
		{JobStatusAudited, JobStatusGenerating, true},
		{JobStatusAudited, JobStatusNeedsReview, true},
		{JobStatusAudited, JobStatusFailed, false},
		{JobStatusCompleted, JobStatusGenerating, false},
		{JobStatusFailed, JobStatusPending, false},
		{JobStatusCancelled, JobStatusGenerating, false},
		{JobStatusNeedsReview, JobStatusAudited, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCancellableFromEveryNonTerminalState(t *testing.T) {
	for from := range legalTransitions {
		if from.IsTerminal() {
			t.Fatalf("terminal status %s must not appear in the transition table", from)
		}
		if !CanTransition(from, JobStatusCancelled) {
			t.Errorf("expected %s -> cancelled to be legal", from)
		}
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	job := &Job{Status: JobStatusPending}
	err := job.Transition(JobStatusCompleted)
	if err == nil {
		t.Fatal("expected error for pending -> completed")
	}
	var illegal *IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalTransitionError, got %T", err)
	}
	if illegal.From != JobStatusPending || illegal.To != JobStatusCompleted {
		t.Fatalf("unexpected error detail: %v", illegal)
	}
	if job.Status != JobStatusPending {
		t.Fatalf("status mutated on rejected transition: %s", job.Status)
	}
}

func TestTransitionUpdatesTimestamp(t *testing.T) {
	job := &Job{Status: JobStatusPending}
	before := job.UpdatedAt
	if err := job.Transition(JobStatusGenerating); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != JobStatusGenerating {
		t.Fatalf("status = %s, want generating", job.Status)
	}
	if !job.UpdatedAt.After(before) {
		t.Fatal("UpdatedAt not advanced")
	}
}

func TestRecordOriginalHadLogosWriteOnce(t *testing.T) {
	job := &Job{Status: JobStatusGenerating}

	if !job.RecordOriginalHadLogos(true) {
		t.Fatal("first record on a fresh job must succeed")
	}
	if !job.HadLogos() {
		t.Fatal("HadLogos should reflect the recorded value")
	}

	// A second write never takes effect, regardless of the value.
	if job.RecordOriginalHadLogos(false) {
		t.Fatal("second record must be rejected")
	}
	if !job.HadLogos() {
		t.Fatal("recorded value must survive a rejected rewrite")
	}
}

func TestRecordOriginalHadLogosOnlyBeforeFirstAttempt(t *testing.T) {
	job := &Job{Status: JobStatusGenerating, AttemptCount: 1}
	if job.RecordOriginalHadLogos(true) {
		t.Fatal("record must be rejected once an attempt has been counted")
	}
	if job.OriginalHadLogos != nil {
		t.Fatal("field must stay unset")
	}
	if job.HadLogos() {
		t.Fatal("HadLogos defaults to false before any record")
	}
}

func TestContinuation(t *testing.T) {
	cases := []struct {
		name            string
		attemptCount    int
		isTweak         bool
		currentImageURL string
		want            bool
	}{
		{"fresh first turn", 0, false, "", false},
		{"first attempt counted", 1, false, "", false},
		{"later attempt", 2, false, "", true},
		{"tweak with image", 0, true, "https://cdn.example.com/a.png", true},
		{"tweak without image", 0, true, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := &Job{
				AttemptCount:    tc.attemptCount,
				IsTweak:         tc.isTweak,
				CurrentImageURL: tc.currentImageURL,
			}
			if got := job.Continuation(); got != tc.want {
				t.Fatalf("Continuation() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAppendScoreKeepsChronologicalOrder(t *testing.T) {
	job := &Job{}
	if job.LatestScore() != nil {
		t.Fatal("LatestScore on empty history must be nil")
	}
	job.AppendScore(ComplianceScore{OverallScore: 40})
	job.AppendScore(ComplianceScore{OverallScore: 70})
	job.AppendScore(ComplianceScore{OverallScore: 90, Approved: true})

	if len(job.ComplianceScores) != 3 {
		t.Fatalf("history length = %d, want 3", len(job.ComplianceScores))
	}
	if job.ComplianceScores[0].OverallScore != 40 {
		t.Fatal("history order disturbed")
	}
	latest := job.LatestScore()
	if latest == nil || latest.OverallScore != 90 || !latest.Approved {
		t.Fatalf("unexpected latest score: %+v", latest)
	}
}

func TestJobJSONRoundTrip(t *testing.T) {
	had := true
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	job := Job{
		ID:                   "job-1",
		BrandID:              "brand-1",
		Status:               JobStatusAudited,
		AttemptCount:         2,
		IsTweak:              true,
		CurrentImageURL:      "https://cdn.example.com/a.png",
		OriginalHadLogos:     &had,
		UserPrompt:           "summer banner",
		UserTweakInstruction: "make it blue",
		ComplianceScores: []ComplianceScore{{
			OverallScore: 65,
			Categories: []CategoryScore{{
				Category: "colors",
				Score:    50,
				Passed:   false,
				Violations: []Violation{{
					Category:      "colors",
					Description:   "background is off-palette",
					Severity:      SeverityHigh,
					FixSuggestion: "use the primary palette",
				}},
			}},
			Summary:   "off-brand colors",
			AuditedAt: now,
		}},
		IdempotencyKey: "idem-1",
		ExpiresAt:      now.Add(time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	raw, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Job
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != job.ID || got.Status != job.Status || got.AttemptCount != job.AttemptCount {
		t.Fatalf("identity fields lost: %+v", got)
	}
	if got.OriginalHadLogos == nil || !*got.OriginalHadLogos {
		t.Fatal("original_had_logos lost in round trip")
	}
	if len(got.ComplianceScores) != 1 {
		t.Fatalf("score history lost: %d entries", len(got.ComplianceScores))
	}
	v := got.ComplianceScores[0].Categories[0].Violations[0]
	if v.Severity != SeverityHigh || v.FixSuggestion == "" {
		t.Fatalf("violation detail lost: %+v", v)
	}
}
