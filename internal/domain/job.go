package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusGenerating  JobStatus = "generating"
	JobStatusGenerated   JobStatus = "generated"
	JobStatusAuditing    JobStatus = "auditing"
	JobStatusAudited     JobStatus = "audited"
	JobStatusNeedsReview JobStatus = "needs_review"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCancelled   JobStatus = "cancelled"
)

// legalTransitions is the single authority on lifecycle moves. An audited job
// either completes, re-enters generation for a correction round, or parks in
// needs_review. Generation exhaustion is the only path to failed. Cancellation
// is honored from any non-terminal state.
var legalTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusGenerating, JobStatusCancelled},
	JobStatusGenerating: {JobStatusGenerated, JobStatusFailed, JobStatusCancelled},
	JobStatusGenerated:  {JobStatusAuditing, JobStatusCancelled},
	JobStatusAuditing:   {JobStatusAudited, JobStatusCancelled},
	JobStatusAudited:    {JobStatusCompleted, JobStatusGenerating, JobStatusNeedsReview, JobStatusCancelled},
}

// IsTerminal reports whether the status ends the job lifecycle.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusNeedsReview:
		return true
	}
	return false
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to JobStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job encapsulates one generation-audit-correction conversation. A Job is
// owned exclusively by its running pipeline until it reaches a terminal
// status, so its fields need no locking across jobs.
type Job struct {
	ID                   string            `json:"job_id"`
	BrandID              string            `json:"brand_id"`
	Status               JobStatus         `json:"status"`
	AttemptCount         int               `json:"attempt_count"`
	IsTweak              bool              `json:"is_tweak"`
	CurrentImageURL      string            `json:"current_image_url,omitempty"`
	OriginalHadLogos     *bool             `json:"original_had_logos,omitempty"`
	UserPrompt           string            `json:"user_prompt"`
	UserTweakInstruction string            `json:"user_tweak_instruction,omitempty"`
	ComplianceScores     []ComplianceScore `json:"compliance_scores,omitempty"`
	IdempotencyKey       string            `json:"idempotency_key,omitempty"`
	ExpiresAt            time.Time         `json:"expires_at"`
	WebhookURL           string            `json:"webhook_url,omitempty"`
	ErrorMessage         string            `json:"error_message,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// Transition moves the job to the requested status, rejecting moves absent
// from the transition table. An illegal move is a programming error, distinct
// from the job-domain failure taxonomy.
func (j *Job) Transition(to JobStatus) error {
	if !CanTransition(j.Status, to) {
		return &IllegalTransitionError{From: j.Status, To: to}
	}
	j.Status = to
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Continuation reports whether this turn continues an earlier conversation
// rather than opening a fresh one: either a later attempt, or a tweak of an
// already produced image.
func (j *Job) Continuation() bool {
	return j.AttemptCount > 1 || (j.IsTweak && j.CurrentImageURL != "")
}

// RecordOriginalHadLogos commits the logo posture of the original generation.
// The field is write-once: it only takes effect on the turn where the attempt
// count is about to become 1, and is never rewritten afterward. Returns true
// when the value was recorded.
func (j *Job) RecordOriginalHadLogos(had bool) bool {
	if j.OriginalHadLogos != nil || j.AttemptCount != 0 {
		return false
	}
	j.OriginalHadLogos = &had
	return true
}

// HadLogos reads the committed logo posture, defaulting to false before the
// first generation has recorded it.
func (j *Job) HadLogos() bool {
	return j.OriginalHadLogos != nil && *j.OriginalHadLogos
}

// AppendScore records an audit result. The score history is append-only and
// chronological.
func (j *Job) AppendScore(score ComplianceScore) {
	j.ComplianceScores = append(j.ComplianceScores, score)
}

// LatestScore returns the most recent audit result, or nil when no audit has
// run yet.
func (j *Job) LatestScore() *ComplianceScore {
	if len(j.ComplianceScores) == 0 {
		return nil
	}
	return &j.ComplianceScores[len(j.ComplianceScores)-1]
}
